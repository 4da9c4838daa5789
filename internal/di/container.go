// Package di provides dependency injection configuration for the arcade server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/di/providers"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/service"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

// NewContainer creates and configures the DI container with all providers.
// The configuration is loaded by the caller so flag errors surface before
// anything starts.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)

	// Persistence
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideLedger)

	// Realtime
	do.Provide(injector, providers.ProvideRealtime)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Business services
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideStatsService)
	do.Provide(injector, providers.ProvideLeaderboardService)
	do.Provide(injector, providers.ProvideScoreService)
	do.Provide(injector, providers.ProvideMintService)
	do.Provide(injector, providers.ProvideRebuildService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of every provider.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.LedgerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.RealtimeHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*validation.Validator](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ScoreService](injector); err != nil {
		return err
	}
	_, err := do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}
