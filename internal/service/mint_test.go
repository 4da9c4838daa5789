package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

func TestMint_MovesAvailablePoints(t *testing.T) {
	env := newTestEnv(t, newTestStore(t), ScoreServiceOptions{Publisher: realtime.NoopPublisher{}})
	alice := createPlayer(t, env.store, walletA)
	submit(t, env.scores, alice, domain.GameSnake, 25)

	pub := &recordingPublisher{}
	svc := NewMintService(env.store, validation.New(), pub, logger.Discard())

	res, err := svc.Mint(context.Background(), alice, MintInput{Points: 150})
	require.NoError(t, err)

	assert.Equal(t, int64(150), res.MintedPoints)
	assert.Equal(t, "1.50", res.OracleAmount)
	assert.Equal(t, int64(250), res.User.TotalPoints)
	assert.Equal(t, int64(150), res.User.MintedPoints)
	assert.Equal(t, int64(100), res.User.AvailablePoints)
	assert.Equal(t, "1.50", res.User.OracleBalance)

	batches := pub.Batches()
	require.Len(t, batches, 1)
	assert.Equal(t, realtime.UserChannel(alice.UserID), batches[0][0].Channel)
	assert.Equal(t, realtime.EventUserUpdated, batches[0][0].Event.Type)
}

func TestMint_Rejects(t *testing.T) {
	env := newTestEnv(t, newTestStore(t), ScoreServiceOptions{Publisher: realtime.NoopPublisher{}})
	alice := createPlayer(t, env.store, walletA)
	submit(t, env.scores, alice, domain.GameSnake, 1)
	svc := NewMintService(env.store, validation.New(), nil, logger.Discard())

	_, err := svc.Mint(context.Background(), alice, MintInput{Points: 11})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = svc.Mint(context.Background(), alice, MintInput{Points: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = svc.Mint(context.Background(), domain.Identity{}, MintInput{Points: 1})
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))

	_, err = svc.Mint(context.Background(), domain.Identity{UserID: "player-missing"}, MintInput{Points: 1})
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestMint_ConcurrentNeverExceedsTotal(t *testing.T) {
	env := newTestEnv(t, newTestStore(t), ScoreServiceOptions{Publisher: realtime.NoopPublisher{}})
	alice := createPlayer(t, env.store, walletA)
	submit(t, env.scores, alice, domain.GameSnake, 10) // 100 points
	svc := NewMintService(env.store, validation.New(), nil, logger.Discard())

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Mint(context.Background(), alice, MintInput{Points: 30}); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	player, err := env.store.GetPlayer(context.Background(), alice.UserID)
	require.NoError(t, err)
	assert.Equal(t, 3, ok)
	assert.Equal(t, int64(90), player.MintedPoints)
	assert.LessOrEqual(t, player.MintedPoints, player.TotalPoints)
}
