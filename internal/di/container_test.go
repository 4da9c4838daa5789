package di

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/di/providers"
	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

func loadTestConfig(t *testing.T, extra ...string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	args := append([]string{
		"-env-file", filepath.Join(dir, "missing.env"),
		"-data-dir", dir,
		"-port", "0",
	}, extra...)
	cfg, err := config.LoadConfig(args)
	require.NoError(t, err)
	cfg.Logger.Level = "error"
	return cfg
}

func TestBootstrap_SQLite(t *testing.T) {
	injector := NewContainer(loadTestConfig(t))
	t.Cleanup(func() { _ = injector.Shutdown() })

	require.NoError(t, Bootstrap(injector))

	ledger := do.MustInvoke[*providers.LedgerHandle](injector)
	assert.Nil(t, ledger.Ledger(), "ledger is off unless the token strategy is configured")

	auth := do.MustInvoke[*service.AuthService](injector)
	login, err := auth.Login(context.Background(), service.LoginInput{
		WalletAddress: "0x52908400098527886E0F7030069857D2E4169EE7",
	})
	require.NoError(t, err)

	scores := do.MustInvoke[*service.ScoreService](injector)
	score, points := int64(120), int64(12)
	identity := domain.Identity{UserID: login.User.ID, WalletAddress: login.User.WalletAddress}
	result, err := scores.Submit(context.Background(), identity, service.SubmitScoreInput{
		GameType: domain.GameSnake,
		Score:    &score,
		Points:   &points,
	})
	require.NoError(t, err)
	require.NotNil(t, result.NewTotalPoints)
	assert.Equal(t, int64(12), *result.NewTotalPoints)
}

func TestBootstrap_TokenIdempotencyOpensLedger(t *testing.T) {
	injector := NewContainer(loadTestConfig(t, "-idempotency", "token"))
	t.Cleanup(func() { _ = injector.Shutdown() })

	require.NoError(t, Bootstrap(injector))

	ledger := do.MustInvoke[*providers.LedgerHandle](injector)
	assert.NotNil(t, ledger.Ledger())
}
