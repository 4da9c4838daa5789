package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/errors"
)

func newTestLedger(t *testing.T, ttl time.Duration) *BadgerLedger {
	t.Helper()
	l, err := Open("", ttl, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestNormalizeKey(t *testing.T) {
	key, err := NormalizeKey("6BA7B810-9DAD-11D1-80B4-00C04FD430C8")
	require.NoError(t, err)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", key)

	_, err = NormalizeKey("retry-1")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestReserve_Lifecycle(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, time.Hour)

	entry, reserved, err := l.Reserve(ctx, "player-1", "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, entry)

	entry, reserved, err = l.Reserve(ctx, "player-1", "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	require.NotNil(t, entry)
	assert.Equal(t, StatePending, entry.State)

	require.NoError(t, l.Complete(ctx, "player-1", "k1", "score-1"))

	entry, reserved, err = l.Reserve(ctx, "player-1", "k1")
	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, StateDone, entry.State)
	assert.Equal(t, "score-1", entry.ScoreID)
}

func TestReserve_ScopedPerUser(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, time.Hour)

	_, reserved, err := l.Reserve(ctx, "player-1", "k1")
	require.NoError(t, err)
	require.True(t, reserved)

	_, reserved, err = l.Reserve(ctx, "player-2", "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestRelease_AllowsRetry(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, time.Hour)

	_, _, err := l.Reserve(ctx, "player-1", "k1")
	require.NoError(t, err)
	require.NoError(t, l.Release(ctx, "player-1", "k1"))

	_, reserved, err := l.Reserve(ctx, "player-1", "k1")
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestReserve_ConcurrentOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	l := newTestLedger(t, time.Hour)

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, reserved, err := l.Reserve(ctx, "player-1", "k1")
			if err == nil && reserved {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
}

func TestReserve_CancelledContext(t *testing.T) {
	l := newTestLedger(t, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := l.Reserve(ctx, "player-1", "k1")
	assert.ErrorIs(t, err, context.Canceled)
}
