package providers

import (
	"github.com/samber/do/v2"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/ratelimit"
	"github.com/bitcoinworld/arcade-server/internal/service"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

// ProvideValidator provides the shared request validator.
func ProvideValidator(_ do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideAuthService provides the wallet login service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	var limiter *ratelimit.KeyedRateLimiter
	if perMinute := cfg.Auth.LoginRatePerMinute; perMinute > 0 {
		limiter = ratelimit.New(float64(perMinute)/60, perMinute, ratelimit.DefaultMaxKeys)
	}

	return service.NewAuthService(storeHandle.Store, tokenService, validator, limiter, cfg.Auth.AdminWallets, log.Logger)
}

// ProvideStatsService provides the stats service.
func ProvideStatsService(i do.Injector) (*service.StatsService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewStatsService(storeHandle.Store, log.Logger), nil
}

// ProvideLeaderboardService provides the leaderboard service.
func ProvideLeaderboardService(i do.Injector) (*service.LeaderboardService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLeaderboardService(storeHandle.Store, log.Logger), nil
}

// ProvideScoreService provides the score submission service.
func ProvideScoreService(i do.Injector) (*service.ScoreService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	ledgerHandle := do.MustInvoke[*LedgerHandle](i)
	realtimeHandle := do.MustInvoke[*RealtimeHandle](i)
	stats := do.MustInvoke[*service.StatsService](i)
	leaderboards := do.MustInvoke[*service.LeaderboardService](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	var limiter *ratelimit.KeyedRateLimiter
	if cfg.Scores.SubmitRatePerSecond > 0 {
		limiter = ratelimit.New(cfg.Scores.SubmitRatePerSecond, cfg.Scores.SubmitBurst, ratelimit.DefaultMaxKeys)
	}

	return service.NewScoreService(storeHandle.Store, stats, leaderboards, validator, service.ScoreServiceOptions{
		Ledger:          ledgerHandle.Ledger(),
		Limiter:         limiter,
		Publisher:       realtimeHandle.Manager,
		LeaderboardSize: cfg.Scores.LeaderboardSize,
	}, log.Logger), nil
}

// ProvideMintService provides the mint service.
func ProvideMintService(i do.Injector) (*service.MintService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	realtimeHandle := do.MustInvoke[*RealtimeHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewMintService(storeHandle.Store, validator, realtimeHandle.Manager, log.Logger), nil
}

// ProvideRebuildService provides the aggregate rebuild service.
func ProvideRebuildService(i do.Injector) (*service.RebuildService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRebuildService(storeHandle.Store, log.Logger), nil
}
