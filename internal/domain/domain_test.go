package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameType_Valid(t *testing.T) {
	for _, g := range AllGameTypes() {
		assert.True(t, g.Valid(), g)
	}
	assert.False(t, GameType("tetris").Valid())
	assert.False(t, GameType("").Valid())
	assert.False(t, GameType("Snake").Valid())
}

func TestCatalog_CoversEveryGameType(t *testing.T) {
	catalog := Catalog()
	require.Len(t, catalog, len(AllGameTypes()))
	for i, g := range AllGameTypes() {
		assert.Equal(t, g, catalog[i].ID)
		assert.Equal(t, int64(10), catalog[i].PointsPerItem)
	}

	_, ok := LookupGame(GameType("chess"))
	assert.False(t, ok)
}

func TestPlayer_AvailablePointsNeverNegative(t *testing.T) {
	p := NewPlayer("player-1", "0xabc", time.Now())
	p.TotalPoints = 100
	p.MintedPoints = 40
	assert.Equal(t, int64(60), p.AvailablePoints())

	p.MintedPoints = 150
	assert.Equal(t, int64(0), p.AvailablePoints())
}

func TestPlayer_Apply(t *testing.T) {
	p := NewPlayer("player-1", "0xabc", time.Now())
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	p.Apply(&ScoreRecord{GameType: GameSnake, Score: 12, Points: 120, PlayedAt: t2})
	p.Apply(&ScoreRecord{GameType: GameSnake, Score: 7, Points: 70, PlayedAt: t1})
	p.Apply(&ScoreRecord{GameType: GameCarRacing, Score: 3, Points: 30, PlayedAt: t1})

	assert.Equal(t, int64(220), p.TotalPoints)
	assert.Equal(t, int64(12), p.HighScores[GameSnake])
	assert.Equal(t, int64(2), p.GamesPlayed[GameSnake])
	assert.Equal(t, int64(1), p.GamesPlayed[GameCarRacing])
	assert.Equal(t, int64(0), p.GamesPlayed[GameBreakBricks])
	require.NotNil(t, p.LastPlayed)
	assert.Equal(t, t2, *p.LastPlayed)
}

func TestPlayer_SummaryFillsMissingCounters(t *testing.T) {
	p := &Player{
		ID:           "player-1",
		TotalPoints:  250,
		MintedPoints: 150,
		HighScores:   map[GameType]int64{GameSnake: 4},
	}

	s := p.Summary()

	assert.Len(t, s.HighScores, 4)
	assert.Len(t, s.GamesPlayed, 4)
	assert.Equal(t, int64(100), s.AvailablePoints)
	assert.Equal(t, "1.50", s.OracleBalance)
	assert.Regexp(t, `^#[0-9A-F]{6}$`, s.AvatarColor)
}

func TestPageRequest_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"defaults", PageRequest{}, PageRequest{Page: 1, Size: 50}},
		{"negative page", PageRequest{Page: -3, Size: 5}, PageRequest{Page: 1, Size: 5}},
		{"capped size", PageRequest{Page: 2, Size: 1000}, PageRequest{Page: 2, Size: MaxPageSize}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize(DefaultLeaderboardPageSize))
		})
	}
}

func TestNewPagination(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		size      int
		total     int64
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty", 1, 10, 0, 0, false, false},
		{"exact fit", 1, 10, 10, 1, false, false},
		{"partial last page", 1, 10, 11, 2, true, false},
		{"middle page", 2, 10, 35, 4, true, true},
		{"last page", 4, 10, 35, 4, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPagination(PageRequest{Page: tt.page, Size: tt.size}, tt.total)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.wantNext, p.HasNextPage)
			assert.Equal(t, tt.wantPrev, p.HasPrevPage)
			assert.Equal(t, tt.total, p.TotalCount)
		})
	}
}

func TestPageRequest_Rank(t *testing.T) {
	r := PageRequest{Page: 3, Size: 20}
	assert.Equal(t, 40, r.Skip())
	assert.Equal(t, 41, r.Rank(0))
	assert.Equal(t, 60, r.Rank(19))
}

func TestBuildUserGameStats(t *testing.T) {
	stats := BuildUserGameStats([]GameAggregate{
		{GameType: GameSnake, Count: 4, HighScore: 9, Points: 200, ScoreSum: 20},
		{GameType: GameType("legacy"), Count: 1},
	})

	require.Len(t, stats, 4)
	assert.Equal(t, UserGameStat{TotalGames: 4, HighScore: 9, TotalPoints: 200, AverageScore: 5}, stats[GameSnake])
	// no records: zero mean, not NaN
	assert.Equal(t, UserGameStat{}, stats[GameFallingFruit])
}

func TestGlobalStatFromRecord(t *testing.T) {
	assert.Equal(t, GlobalGameStat{}, GlobalStatFromRecord(nil))

	playedAt := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	stat := GlobalStatFromRecord(&ScoreRecord{WalletAddress: "0xabc", Score: 40, Points: 400, PlayedAt: playedAt})
	require.NotNil(t, stat.WalletAddress)
	assert.Equal(t, "0xabc", *stat.WalletAddress)
	assert.Equal(t, int64(40), stat.HighestScore)
	assert.Equal(t, playedAt, *stat.PlayedAt)
}
