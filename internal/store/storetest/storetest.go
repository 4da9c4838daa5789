// Package storetest is a behavioral test suite shared by every store.Store backend.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/id"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

// Factory returns an empty store that is closed when the test ends.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CreateAndGetPlayer", testCreateAndGetPlayer},
		{"DuplicateWallet", testDuplicateWallet},
		{"AppendAndGetScore", testAppendAndGetScore},
		{"ApplyScore", testApplyScore},
		{"ApplyScoreMissingPlayer", testApplyScoreMissingPlayer},
		{"ApplyScoreConcurrent", testApplyScoreConcurrent},
		{"ListUserScores", testListUserScores},
		{"ListGameScores", testListGameScores},
		{"TopGameScore", testTopGameScore},
		{"GameHighScores", testGameHighScores},
		{"UserGameAggregates", testUserGameAggregates},
		{"ListPlayersByPoints", testListPlayersByPoints},
		{"ReplacePlayerTotals", testReplacePlayerTotals},
		{"ApplyMint", testApplyMint},
		{"UserScoresIterator", testUserScoresIterator},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

var base = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// NewPlayer creates and stores a player with the given wallet.
func NewPlayer(t *testing.T, s store.PlayerStore, wallet string) *domain.Player {
	t.Helper()
	p := domain.NewPlayer(id.MustGenerate(id.PrefixPlayer), wallet, base)
	require.NoError(t, s.CreatePlayer(context.Background(), p))
	return p
}

// NewScore appends a record for p and returns it.
func NewScore(t *testing.T, s store.ScoreStore, p *domain.Player, game domain.GameType, score int64, offset time.Duration) *domain.ScoreRecord {
	t.Helper()
	rec := &domain.ScoreRecord{
		ID:            id.MustGenerate(id.PrefixScore),
		UserID:        p.ID,
		WalletAddress: p.WalletAddress,
		GameType:      game,
		Score:         score,
		Points:        score * 10,
		PlayedAt:      base.Add(offset),
	}
	require.NoError(t, s.AppendScore(context.Background(), rec))
	return rec
}

func testCreateAndGetPlayer(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")

	got, err := s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xAAA", got.WalletAddress)
	assert.Len(t, got.HighScores, len(domain.AllGameTypes()))
	assert.Len(t, got.GamesPlayed, len(domain.AllGameTypes()))
	assert.Nil(t, got.LastPlayed)

	byWallet, err := s.GetPlayerByWallet(ctx, "0xAAA")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byWallet.ID)

	_, err = s.GetPlayer(ctx, "player-missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testDuplicateWallet(t *testing.T, s store.Store) {
	NewPlayer(t, s, "0xAAA")

	dup := domain.NewPlayer(id.MustGenerate(id.PrefixPlayer), "0xAAA", base)
	err := s.CreatePlayer(context.Background(), dup)
	assert.True(t, errors.Is(err, store.ErrAlreadyExists))
}

func testAppendAndGetScore(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")

	rec := &domain.ScoreRecord{
		ID:            id.MustGenerate(id.PrefixScore),
		UserID:        p.ID,
		WalletAddress: p.WalletAddress,
		GameType:      domain.GameSnake,
		Score:         15,
		Points:        150,
		GameData:      map[string]any{"length": float64(16)},
		PlayedAt:      base,
	}
	require.NoError(t, s.AppendScore(ctx, rec))

	got, err := s.GetScore(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Score, got.Score)
	assert.Equal(t, rec.Points, got.Points)
	assert.Equal(t, rec.GameType, got.GameType)
	assert.Equal(t, float64(16), got.GameData["length"])
	assert.True(t, rec.PlayedAt.Equal(got.PlayedAt))

	_, err = s.GetScore(ctx, "score-missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testApplyScore(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")

	first := &domain.ScoreRecord{GameType: domain.GameSnake, Score: 12, Points: 120, PlayedAt: base}
	second := &domain.ScoreRecord{GameType: domain.GameSnake, Score: 8, Points: 80, PlayedAt: base.Add(time.Minute)}

	for _, rec := range []*domain.ScoreRecord{first, second} {
		found, err := s.ApplyScore(ctx, p.ID, rec)
		require.NoError(t, err)
		assert.True(t, found)
	}

	got, err := s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.TotalPoints)
	assert.Equal(t, int64(12), got.HighScores[domain.GameSnake])
	assert.Equal(t, int64(2), got.GamesPlayed[domain.GameSnake])
	assert.Equal(t, int64(0), got.GamesPlayed[domain.GameCarRacing])
	require.NotNil(t, got.LastPlayed)
	assert.True(t, second.PlayedAt.Equal(*got.LastPlayed))
}

func testApplyScoreMissingPlayer(t *testing.T, s store.Store) {
	found, err := s.ApplyScore(context.Background(), "player-missing",
		&domain.ScoreRecord{GameType: domain.GameSnake, Score: 1, Points: 10, PlayedAt: base})
	require.NoError(t, err)
	assert.False(t, found)
}

func testApplyScoreConcurrent(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			game := domain.AllGameTypes()[i%2]
			_, err := s.ApplyScore(ctx, p.ID, &domain.ScoreRecord{
				GameType: game,
				Score:    int64(i),
				Points:   10,
				PlayedAt: base.Add(time.Duration(i) * time.Second),
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n*10), got.TotalPoints)
	assert.Equal(t, int64(n/2), got.GamesPlayed[domain.AllGameTypes()[0]])
	assert.Equal(t, int64(n/2), got.GamesPlayed[domain.AllGameTypes()[1]])
	assert.Equal(t, int64(n-1), got.HighScores[domain.AllGameTypes()[1]])
	assert.Equal(t, int64(n-2), got.HighScores[domain.AllGameTypes()[0]])
}

func testListUserScores(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")
	other := NewPlayer(t, s, "0xBBB")

	for i := range 5 {
		NewScore(t, s, p, domain.GameSnake, int64(i), time.Duration(i)*time.Minute)
	}
	NewScore(t, s, p, domain.GameCarRacing, 99, time.Hour)
	NewScore(t, s, other, domain.GameSnake, 50, 0)

	recs, total, err := s.ListUserScores(ctx, store.ScoreFilter{UserID: p.ID}, domain.PageRequest{Page: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, recs, 3)
	assert.Equal(t, domain.GameCarRacing, recs[0].GameType)
	assert.Equal(t, int64(4), recs[1].Score)
	assert.Equal(t, int64(3), recs[2].Score)

	recs, total, err = s.ListUserScores(ctx, store.ScoreFilter{UserID: p.ID, GameType: domain.GameSnake}, domain.PageRequest{Page: 2, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(1), recs[0].Score)
	assert.Equal(t, int64(0), recs[1].Score)
}

func testListGameScores(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewPlayer(t, s, "0xAAA")
	b := NewPlayer(t, s, "0xBBB")

	NewScore(t, s, a, domain.GameSnake, 10, 0)
	NewScore(t, s, b, domain.GameSnake, 30, time.Minute)
	NewScore(t, s, a, domain.GameSnake, 20, 2*time.Minute)
	NewScore(t, s, a, domain.GameBreakBricks, 500, 0)

	recs, total, err := s.ListGameScores(ctx, domain.GameSnake, domain.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, recs, 2)
	assert.Equal(t, int64(30), recs[0].Score)
	assert.Equal(t, "0xBBB", recs[0].WalletAddress)
	assert.Equal(t, int64(20), recs[1].Score)

	recs, _, err = s.ListGameScores(ctx, domain.GameFallingFruit, domain.PageRequest{Page: 1, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func testTopGameScore(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")

	top, err := s.TopGameScore(ctx, domain.GameSnake)
	require.NoError(t, err)
	assert.Nil(t, top)

	NewScore(t, s, p, domain.GameSnake, 5, 0)
	best := NewScore(t, s, p, domain.GameSnake, 9, time.Minute)
	NewScore(t, s, p, domain.GameSnake, 9, 2*time.Minute)

	top, err = s.TopGameScore(ctx, domain.GameSnake)
	require.NoError(t, err)
	require.NotNil(t, top)
	assert.Equal(t, int64(9), top.Score)
	// equal scores resolve to the earlier record
	assert.Equal(t, best.ID, top.ID)
}

func testGameHighScores(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := NewPlayer(t, s, "0xAAA")
	b := NewPlayer(t, s, "0xBBB")
	c := NewPlayer(t, s, "0xCCC")

	NewScore(t, s, a, domain.GameSnake, 10, 0)
	NewScore(t, s, a, domain.GameSnake, 40, time.Minute)
	NewScore(t, s, b, domain.GameSnake, 25, 2*time.Minute)
	NewScore(t, s, c, domain.GameSnake, 5, 3*time.Minute)
	NewScore(t, s, c, domain.GameCarRacing, 100, 0)

	bests, total, err := s.GameHighScores(ctx, domain.GameSnake, domain.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, bests, 2)

	assert.Equal(t, "0xAAA", bests[0].WalletAddress)
	assert.Equal(t, int64(40), bests[0].HighScore)
	assert.Equal(t, int64(500), bests[0].TotalPoints)
	assert.Equal(t, int64(2), bests[0].GamesPlayed)
	assert.True(t, base.Add(time.Minute).Equal(bests[0].LastPlayed))

	assert.Equal(t, "0xBBB", bests[1].WalletAddress)

	bests, _, err = s.GameHighScores(ctx, domain.GameSnake, domain.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, bests, 1)
	assert.Equal(t, "0xCCC", bests[0].WalletAddress)

	bests, total, err = s.GameHighScores(ctx, domain.GameBreakBricks, domain.PageRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, bests)
}

func testUserGameAggregates(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")

	NewScore(t, s, p, domain.GameSnake, 10, 0)
	NewScore(t, s, p, domain.GameSnake, 20, time.Minute)
	NewScore(t, s, p, domain.GameFallingFruit, 7, 0)

	aggs, err := s.UserGameAggregates(ctx, p.ID)
	require.NoError(t, err)

	byGame := make(map[domain.GameType]domain.GameAggregate)
	for _, a := range aggs {
		byGame[a.GameType] = a
	}
	require.Len(t, byGame, 2)
	assert.Equal(t, domain.GameAggregate{GameType: domain.GameSnake, Count: 2, HighScore: 20, Points: 300, ScoreSum: 30}, byGame[domain.GameSnake])
	assert.Equal(t, domain.GameAggregate{GameType: domain.GameFallingFruit, Count: 1, HighScore: 7, Points: 70, ScoreSum: 7}, byGame[domain.GameFallingFruit])
}

func testListPlayersByPoints(t *testing.T, s store.Store) {
	ctx := context.Background()
	for i, pts := range []int64{50, 300, 0, 300, 120} {
		p := NewPlayer(t, s, fmt.Sprintf("0x%03d", i))
		if pts > 0 {
			_, err := s.ApplyScore(ctx, p.ID, &domain.ScoreRecord{GameType: domain.GameSnake, Score: pts / 10, Points: pts, PlayedAt: base})
			require.NoError(t, err)
		}
	}

	players, total, err := s.ListPlayersByPoints(ctx, domain.PageRequest{Page: 1, Size: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, players, 3)
	assert.Equal(t, []int64{300, 300, 120}, []int64{players[0].TotalPoints, players[1].TotalPoints, players[2].TotalPoints})
	// ties keep creation order
	assert.Equal(t, "0x001", players[0].WalletAddress)
	assert.Equal(t, "0x003", players[1].WalletAddress)
	assert.Equal(t, int64(30), players[0].HighScores[domain.GameSnake])

	players, _, err = s.ListPlayersByPoints(ctx, domain.PageRequest{Page: 2, Size: 3})
	require.NoError(t, err)
	require.Len(t, players, 2)
	assert.Equal(t, int64(50), players[0].TotalPoints)
	assert.Equal(t, int64(0), players[1].TotalPoints)

	ids, err := s.ListPlayerIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func testReplacePlayerTotals(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")
	_, err := s.ApplyScore(ctx, p.ID, &domain.ScoreRecord{GameType: domain.GameSnake, Score: 99, Points: 990, PlayedAt: base})
	require.NoError(t, err)
	_, err = s.ApplyMint(ctx, p.ID, 300)
	require.NoError(t, err)

	stale := *p
	p, err = s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)

	// a copy read before the score and mint must not overwrite them
	stale.TotalPoints = 1
	assert.True(t, errors.Is(s.ReplacePlayerTotals(ctx, &stale), store.ErrVersionConflict))

	lastPlayed := base.Add(time.Hour)
	p.ResetTotals()
	p.TotalPoints = 70
	p.MintedPoints = 70
	p.HighScores[domain.GameCarRacing] = 7
	p.GamesPlayed[domain.GameCarRacing] = 1
	p.LastPlayed = &lastPlayed
	require.NoError(t, s.ReplacePlayerTotals(ctx, p))

	got, err := s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.TotalPoints)
	assert.Equal(t, int64(70), got.MintedPoints)
	assert.Equal(t, int64(0), got.HighScores[domain.GameSnake])
	assert.Equal(t, int64(0), got.GamesPlayed[domain.GameSnake])
	assert.Equal(t, int64(7), got.HighScores[domain.GameCarRacing])
	require.NotNil(t, got.LastPlayed)
	assert.True(t, lastPlayed.Equal(*got.LastPlayed))

	// replace never raises minted points
	got.MintedPoints = 500
	got.TotalPoints = 900
	require.NoError(t, s.ReplacePlayerTotals(ctx, got))
	got, err = s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(70), got.MintedPoints)

	missing := domain.NewPlayer("player-missing", "0xZZZ", base)
	assert.True(t, errors.Is(s.ReplacePlayerTotals(ctx, missing), store.ErrNotFound))
}

func testApplyMint(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := NewPlayer(t, s, "0xAAA")
	_, err := s.ApplyScore(ctx, p.ID, &domain.ScoreRecord{GameType: domain.GameSnake, Score: 25, Points: 250, PlayedAt: base})
	require.NoError(t, err)

	got, err := s.ApplyMint(ctx, p.ID, 200)
	require.NoError(t, err)
	assert.Equal(t, int64(200), got.MintedPoints)
	assert.Equal(t, int64(50), got.AvailablePoints())

	_, err = s.ApplyMint(ctx, p.ID, 51)
	assert.True(t, errors.Is(err, store.ErrInsufficientPoints))

	_, err = s.ApplyMint(ctx, "player-missing", 1)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func testUserScoresIterator(t *testing.T, s store.Store) {
	p := NewPlayer(t, s, "0xAAA")
	want := []int64{3, 1, 2}
	for i, score := range want {
		NewScore(t, s, p, domain.GameSnake, score, time.Duration(-i)*time.Minute)
	}

	var got []int64
	for rec, err := range s.UserScores(context.Background(), p.ID) {
		require.NoError(t, err)
		got = append(got, rec.Score)
	}
	assert.Equal(t, want, got)
}
