package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
)

func seedLeaderboard(t *testing.T) (*testEnv, domain.Identity, domain.Identity, domain.Identity) {
	t.Helper()
	env := newTestEnv(t, newTestStore(t), ScoreServiceOptions{Publisher: realtime.NoopPublisher{}})
	alice := createPlayer(t, env.store, walletA)
	bob := createPlayer(t, env.store, walletB)
	carol := createPlayer(t, env.store, walletC)

	submit(t, env.scores, alice, domain.GameSnake, 30)
	submit(t, env.scores, alice, domain.GameSnake, 10)
	submit(t, env.scores, bob, domain.GameSnake, 50)
	submit(t, env.scores, carol, domain.GameSnake, 30)
	submit(t, env.scores, carol, domain.GameBreakBricks, 5)
	return env, alice, bob, carol
}

func TestLeaderboard_Overall(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	lb, err := env.leaderboards.Overall(context.Background(), domain.PageRequest{})
	require.NoError(t, err)

	require.Len(t, lb.Leaderboard, 3)
	assert.Equal(t, walletB, lb.Leaderboard[0].WalletAddress)
	assert.Equal(t, int64(500), lb.Leaderboard[0].TotalPoints)
	assert.Equal(t, walletA, lb.Leaderboard[1].WalletAddress)
	assert.Equal(t, walletC, lb.Leaderboard[2].WalletAddress)
	for i, e := range lb.Leaderboard {
		assert.Equal(t, i+1, e.Rank)
		assert.Len(t, e.HighScores, 4)
	}
	assert.Equal(t, domain.Pagination{CurrentPage: 1, TotalPages: 1, TotalCount: 3}, lb.Pagination)
}

func TestLeaderboard_OverallSecondPageRanks(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	lb, err := env.leaderboards.Overall(context.Background(), domain.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)

	require.Len(t, lb.Leaderboard, 1)
	assert.Equal(t, 3, lb.Leaderboard[0].Rank)
	assert.True(t, lb.Pagination.HasPrevPage)
	assert.False(t, lb.Pagination.HasNextPage)
	assert.Equal(t, 2, lb.Pagination.TotalPages)
}

func TestLeaderboard_PageSizeClamped(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	lb, err := env.leaderboards.Game(context.Background(), domain.GameSnake, domain.PageRequest{Page: -3, Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, lb.Pagination.CurrentPage)
	assert.Len(t, lb.Leaderboard, 4)
}

func TestLeaderboard_GameRanksRecords(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	lb, err := env.leaderboards.Game(context.Background(), domain.GameSnake, domain.PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)

	scores := make([]int64, len(lb.Leaderboard))
	for i, e := range lb.Leaderboard {
		scores[i] = e.Score
	}
	assert.Equal(t, []int64{50, 30, 30, 10}, scores)
	// equal scores keep insertion order
	assert.Equal(t, walletA, lb.Leaderboard[1].WalletAddress)
	assert.Equal(t, walletC, lb.Leaderboard[2].WalletAddress)
	assert.Equal(t, int64(4), lb.Pagination.TotalCount)
}

func TestLeaderboard_GameHighScoresGroupsByWallet(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	lb, err := env.leaderboards.GameHighScores(context.Background(), domain.GameSnake, domain.PageRequest{})
	require.NoError(t, err)

	require.Len(t, lb.Leaderboard, 3)
	assert.Equal(t, domain.GameSnake, lb.GameType)
	assert.Equal(t, walletB, lb.Leaderboard[0].WalletAddress)

	alice := lb.Leaderboard[1]
	assert.Equal(t, walletA, alice.WalletAddress)
	assert.Equal(t, 2, alice.Rank)
	assert.Equal(t, int64(30), alice.HighScore)
	assert.Equal(t, int64(400), alice.TotalPoints)
	assert.Equal(t, int64(2), alice.GamesPlayed)
	assert.Equal(t, int64(3), lb.Pagination.TotalCount)
}

func TestLeaderboard_RejectsUnknownGame(t *testing.T) {
	env := newTestEnv(t, newTestStore(t), ScoreServiceOptions{})

	_, err := env.leaderboards.Game(context.Background(), "pong", domain.PageRequest{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	_, err = env.leaderboards.GameHighScores(context.Background(), "", domain.PageRequest{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestLeaderboard_EmptyGame(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	lb, err := env.leaderboards.GameHighScores(context.Background(), domain.GameCarRacing, domain.PageRequest{})
	require.NoError(t, err)
	assert.Empty(t, lb.Leaderboard)
	assert.Equal(t, 0, lb.Pagination.TotalPages)
}

func TestStats_GlobalGameStats(t *testing.T) {
	env, _, _, _ := seedLeaderboard(t)

	stats, err := env.stats.GlobalGameStats(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 4)

	snake := stats[domain.GameSnake]
	assert.Equal(t, int64(50), snake.HighestScore)
	assert.Equal(t, walletB, *snake.WalletAddress)
	assert.Equal(t, int64(500), snake.Points)
	assert.NotNil(t, snake.PlayedAt)

	cars := stats[domain.GameCarRacing]
	assert.Equal(t, domain.GlobalGameStat{}, cars)
}

func TestStats_UserStats(t *testing.T) {
	env, alice, _, _ := seedLeaderboard(t)

	stats, err := env.stats.UserStats(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(400), stats.User.TotalPoints)
	assert.Equal(t, domain.UserGameStat{TotalGames: 2, HighScore: 30, TotalPoints: 400, AverageScore: 20}, stats.GameStats[domain.GameSnake])
	assert.Equal(t, domain.UserGameStat{}, stats.GameStats[domain.GameFallingFruit])

	_, err = env.stats.UserStats(context.Background(), "player-missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestStats_PersonalHighScore(t *testing.T) {
	env, alice, _, _ := seedLeaderboard(t)

	best, err := env.stats.PersonalHighScore(context.Background(), alice.UserID, domain.GameSnake)
	require.NoError(t, err)
	assert.Equal(t, int64(30), best)

	best, err = env.stats.PersonalHighScore(context.Background(), alice.UserID, domain.GameCarRacing)
	require.NoError(t, err)
	assert.Zero(t, best)

	_, err = env.stats.PersonalHighScore(context.Background(), alice.UserID, "pong")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
