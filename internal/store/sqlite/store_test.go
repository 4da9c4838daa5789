package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/store/storetest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreBehavior(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return newTestStore(t) })
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	var journalMode string
	require.NoError(t, s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode))
	assert.Equal(t, "wal", journalMode)

	var fk int
	require.NoError(t, s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"players", "player_games", "scores"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}

	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arcade.db")

	s, err := Open(path, logger.Discard())
	require.NoError(t, err)
	p := storetest.NewPlayer(t, s, "0xAAA")
	require.NoError(t, s.Close())

	s, err = Open(path, logger.Discard())
	require.NoError(t, err)
	defer s.Close()

	got, err := s.GetPlayer(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "0xAAA", got.WalletAddress)
}

func TestTimeLayout_SortsLexically(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 500, time.UTC)
	late := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Second)

	assert.Less(t, formatTime(early), formatTime(late))

	parsed, err := parseTime(formatTime(early))
	require.NoError(t, err)
	assert.True(t, early.Equal(parsed))
}

func TestApplyScore_LastPlayedNeverMovesBackwards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p := storetest.NewPlayer(t, s, "0xAAA")

	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := later.Add(-time.Hour)

	_, err := s.ApplyScore(ctx, p.ID, &domain.ScoreRecord{GameType: domain.GameSnake, Score: 1, Points: 10, PlayedAt: later})
	require.NoError(t, err)
	_, err = s.ApplyScore(ctx, p.ID, &domain.ScoreRecord{GameType: domain.GameSnake, Score: 1, Points: 10, PlayedAt: earlier})
	require.NoError(t, err)

	got, err := s.GetPlayer(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastPlayed)
	assert.True(t, later.Equal(*got.LastPlayed))
}
