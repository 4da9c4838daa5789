package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/ratelimit"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

func setupTestAuth(t *testing.T, limiter *ratelimit.KeyedRateLimiter) (*AuthService, store.Store) {
	t.Helper()
	s := newTestStore(t)
	tokens, err := auth.NewTokenService(strings.Repeat("ab", 32), time.Hour)
	require.NoError(t, err)
	svc, err := NewAuthService(s, tokens, validation.New(), limiter, []string{strings.ToLower(walletC)}, logger.Discard())
	require.NoError(t, err)
	return svc, s
}

func TestLogin_CreatesPlayerOnFirstLogin(t *testing.T) {
	svc, s := setupTestAuth(t, nil)
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginInput{WalletAddress: strings.ToLower(walletA)})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotEmpty(t, first.Token)
	assert.Equal(t, walletA, first.User.WalletAddress)
	assert.Zero(t, first.User.TotalPoints)
	assert.Len(t, first.User.HighScores, 4)

	second, err := svc.Login(ctx, LoginInput{WalletAddress: walletA})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)

	stored, err := s.GetPlayerByWallet(ctx, walletA)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, stored.ID)
}

func TestLogin_ConcurrentFirstLoginsShareOnePlayer(t *testing.T) {
	svc, _ := setupTestAuth(t, nil)

	const n = 8
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Login(context.Background(), LoginInput{WalletAddress: walletB})
			if assert.NoError(t, err) {
				ids[i] = res.User.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestLogin_StacksWallet(t *testing.T) {
	svc, s := setupTestAuth(t, nil)
	ctx := context.Background()
	const stx = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

	first, err := svc.Login(ctx, LoginInput{WalletAddress: " " + strings.ToLower(stx) + " "})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, stx, first.User.WalletAddress)

	second, err := svc.Login(ctx, LoginInput{WalletAddress: stx})
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.User.ID, second.User.ID)

	stored, err := s.GetPlayerByWallet(ctx, stx)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, stored.ID)
}

func TestLogin_RejectsBadWallet(t *testing.T) {
	svc, _ := setupTestAuth(t, nil)

	_, err := svc.Login(context.Background(), LoginInput{WalletAddress: "not-a-wallet"})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = svc.Login(context.Background(), LoginInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestLogin_RateLimitedPerClient(t *testing.T) {
	svc, _ := setupTestAuth(t, ratelimit.New(0.001, 1, 0))

	_, err := svc.Login(context.Background(), LoginInput{WalletAddress: walletA, ClientKey: "10.0.0.1"})
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), LoginInput{WalletAddress: walletA, ClientKey: "10.0.0.1"})
	assert.True(t, errors.Is(err, errors.ErrRateLimited))
	_, err = svc.Login(context.Background(), LoginInput{WalletAddress: walletA, ClientKey: "10.0.0.2"})
	assert.NoError(t, err)
}

func TestAuthenticateAndVerify(t *testing.T) {
	svc, _ := setupTestAuth(t, nil)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginInput{WalletAddress: walletA})
	require.NoError(t, err)

	identity, err := svc.Authenticate(login.Token)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, identity.UserID)
	assert.Equal(t, walletA, identity.WalletAddress)

	summary, err := svc.Verify(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, login.User.ID, summary.ID)

	_, err = svc.Authenticate("")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
	_, err = svc.Authenticate("v4.local.garbage")
	assert.True(t, errors.Is(err, errors.ErrUnauthorized))
}

func TestIsAdmin(t *testing.T) {
	svc, _ := setupTestAuth(t, nil)

	assert.True(t, svc.IsAdmin(walletC))
	assert.True(t, svc.IsAdmin(strings.ToLower(walletC)))
	assert.False(t, svc.IsAdmin(walletA))
}
