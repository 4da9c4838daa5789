package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

// LeaderboardService ranks players and records. Ranks are positional:
// the i-th entry of a page has rank skip+i+1.
type LeaderboardService struct {
	store  store.Store
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service.
func NewLeaderboardService(store store.Store, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  store,
		logger: logger,
	}
}

// Overall ranks players by lifetime points.
func (s *LeaderboardService) Overall(ctx context.Context, page domain.PageRequest) (*domain.OverallLeaderboard, error) {
	page = page.Normalize(domain.DefaultLeaderboardPageSize)

	players, total, err := s.store.ListPlayersByPoints(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("list players by points: %w", err)
	}

	entries := make([]domain.OverallEntry, len(players))
	for i, p := range players {
		p.FillCounters()
		entries[i] = domain.OverallEntry{
			Rank:          page.Rank(i),
			WalletAddress: p.WalletAddress,
			TotalPoints:   p.TotalPoints,
			HighScores:    p.HighScores,
			GamesPlayed:   p.GamesPlayed,
		}
	}

	return &domain.OverallLeaderboard{
		Leaderboard: entries,
		Pagination:  domain.NewPagination(page, total),
	}, nil
}

// Game ranks individual records of one game by score.
func (s *LeaderboardService) Game(ctx context.Context, game domain.GameType, page domain.PageRequest) (*domain.GameLeaderboard, error) {
	if !game.Valid() {
		return nil, errors.InvalidInput("Invalid game type")
	}
	page = page.Normalize(domain.DefaultLeaderboardPageSize)

	records, total, err := s.store.ListGameScores(ctx, game, page)
	if err != nil {
		return nil, fmt.Errorf("list %s scores: %w", game, err)
	}

	entries := make([]domain.GameEntry, len(records))
	for i, rec := range records {
		entries[i] = domain.GameEntry{
			Rank:          page.Rank(i),
			ScoreID:       rec.ID,
			WalletAddress: rec.WalletAddress,
			Score:         rec.Score,
			Points:        rec.Points,
			PlayedAt:      rec.PlayedAt,
		}
	}

	return &domain.GameLeaderboard{
		GameType:    game,
		Leaderboard: entries,
		Pagination:  domain.NewPagination(page, total),
	}, nil
}

// GameHighScores ranks wallets by their best score in one game.
func (s *LeaderboardService) GameHighScores(ctx context.Context, game domain.GameType, page domain.PageRequest) (*domain.HighScoreLeaderboard, error) {
	if !game.Valid() {
		return nil, errors.InvalidInput("Invalid game type")
	}
	page = page.Normalize(domain.DefaultLeaderboardPageSize)

	bests, total, err := s.store.GameHighScores(ctx, game, page)
	if err != nil {
		return nil, fmt.Errorf("group %s high scores: %w", game, err)
	}

	entries := make([]domain.HighScoreEntry, len(bests))
	for i, b := range bests {
		entries[i] = domain.HighScoreEntry{
			Rank:          page.Rank(i),
			WalletAddress: b.WalletAddress,
			HighScore:     b.HighScore,
			TotalPoints:   b.TotalPoints,
			GamesPlayed:   b.GamesPlayed,
			LastPlayed:    b.LastPlayed,
		}
	}

	return &domain.HighScoreLeaderboard{
		GameType:    game,
		Leaderboard: entries,
		Pagination:  domain.NewPagination(page, total),
	}, nil
}
