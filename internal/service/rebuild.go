package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

// RebuildService recomputes player aggregates from the score ledger.
type RebuildService struct {
	store  store.Store
	logger *slog.Logger
}

// NewRebuildService creates a new rebuild service.
func NewRebuildService(store store.Store, logger *slog.Logger) *RebuildService {
	return &RebuildService{
		store:  store,
		logger: logger,
	}
}

// RebuildReport summarizes a RebuildAll run.
type RebuildReport struct {
	Players  int           `json:"players"`
	Rebuilt  int           `json:"rebuilt"`
	Failed   []string      `json:"failed,omitempty"`
	Duration time.Duration `json:"duration"`
}

// rebuildAttempts bounds how often a rebuild restarts after a concurrent
// write to the same player.
const rebuildAttempts = 5

// RebuildPlayer replays every record of the player into a fresh aggregate.
// Minted points are kept but clamped to the rebuilt total. A submission or
// mint landing mid-rebuild restarts it from a fresh read.
func (s *RebuildService) RebuildPlayer(ctx context.Context, userID string) (*domain.PlayerSummary, error) {
	for attempt := 1; ; attempt++ {
		summary, err := s.rebuildOnce(ctx, userID)
		if !errors.Is(err, store.ErrVersionConflict) {
			return summary, err
		}
		if attempt == rebuildAttempts {
			s.logger.Warn("rebuild gave up after concurrent writes", "user_id", userID, "attempts", attempt)
			return nil, errors.Conflict("Player kept changing during rebuild, try again")
		}
		s.logger.Debug("player changed during rebuild, retrying", "user_id", userID, "attempt", attempt)
	}
}

func (s *RebuildService) rebuildOnce(ctx context.Context, userID string) (*domain.PlayerSummary, error) {
	player, err := s.store.GetPlayer(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFoundf("User %s not found", userID)
		}
		return nil, fmt.Errorf("get player: %w", err)
	}

	before := player.TotalPoints
	player.ResetTotals()

	var records int
	for rec, err := range s.store.UserScores(ctx, userID) {
		if err != nil {
			return nil, fmt.Errorf("scan scores: %w", err)
		}
		player.Apply(rec)
		records++
	}
	player.MintedPoints = min(player.MintedPoints, player.TotalPoints)
	player.UpdatedAt = time.Now().UTC()

	if err := s.store.ReplacePlayerTotals(ctx, player); err != nil {
		if errors.Is(err, store.ErrVersionConflict) {
			return nil, err
		}
		return nil, errors.Persistence(err, "Failed to save rebuilt aggregate")
	}

	if before != player.TotalPoints {
		s.logger.Warn("player aggregate drift corrected",
			"user_id", userID,
			"before", before,
			"after", player.TotalPoints)
	}
	s.logger.Info("player aggregate rebuilt", "user_id", userID, "records", records)

	return player.Summary(), nil
}

// RebuildAll rebuilds every player. A failure for one player is recorded
// in the report and does not stop the run.
func (s *RebuildService) RebuildAll(ctx context.Context) (*RebuildReport, error) {
	start := time.Now()

	ids, err := s.store.ListPlayerIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	report := &RebuildReport{Players: len(ids)}
	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if _, err := s.RebuildPlayer(ctx, userID); err != nil {
			s.logger.Error("rebuild failed", "user_id", userID, "error", err)
			report.Failed = append(report.Failed, userID)
			continue
		}
		report.Rebuilt++
	}
	report.Duration = time.Since(start)

	s.logger.Info("rebuild complete",
		"players", report.Players,
		"rebuilt", report.Rebuilt,
		"failed", len(report.Failed),
		"duration", report.Duration)
	return report, nil
}
