package service

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

// StatsService computes per-user and global per-game statistics from the ledger.
type StatsService struct {
	store  store.Store
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(store store.Store, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  store,
		logger: logger,
	}
}

// UserStats is the response of GET /scores/stats.
type UserStats struct {
	User      *domain.PlayerSummary `json:"user"`
	GameStats domain.UserGameStats  `json:"gameStats"`
}

// UserGameStats returns count, best, points and mean score per game for one user.
// Every game type is present; games never played are zero.
func (s *StatsService) UserGameStats(ctx context.Context, userID string) (domain.UserGameStats, error) {
	aggs, err := s.store.UserGameAggregates(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("aggregate user scores: %w", err)
	}
	return domain.BuildUserGameStats(aggs), nil
}

// GlobalGameStats returns the single best record of every game across all users.
func (s *StatsService) GlobalGameStats(ctx context.Context) (domain.GlobalGameStats, error) {
	games := domain.AllGameTypes()
	tops := make([]*domain.ScoreRecord, len(games))

	g, gctx := errgroup.WithContext(ctx)
	for i, game := range games {
		g.Go(func() error {
			rec, err := s.store.TopGameScore(gctx, game)
			if err != nil {
				return fmt.Errorf("top %s score: %w", game, err)
			}
			tops[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := make(domain.GlobalGameStats, len(games))
	for i, game := range games {
		stats[game] = domain.GlobalStatFromRecord(tops[i])
	}
	return stats, nil
}

// UserStats returns the caller's summary and per-game stats.
func (s *StatsService) UserStats(ctx context.Context, userID string) (*UserStats, error) {
	player, err := s.store.GetPlayer(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("User not found")
		}
		return nil, fmt.Errorf("get player: %w", err)
	}

	gameStats, err := s.UserGameStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserStats{User: player.Summary(), GameStats: gameStats}, nil
}

// PersonalHighScore returns the caller's best score in one game, zero when never played.
func (s *StatsService) PersonalHighScore(ctx context.Context, userID string, game domain.GameType) (int64, error) {
	if !game.Valid() {
		return 0, errors.InvalidInput("Invalid game type")
	}

	player, err := s.store.GetPlayer(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, errors.NotFound("User not found")
		}
		return 0, fmt.Errorf("get player: %w", err)
	}
	return player.HighScores[game], nil
}
