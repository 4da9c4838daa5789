package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bitcoinworld/arcade-server/internal/config"
	"github.com/bitcoinworld/arcade-server/internal/idempotency"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/store/mongo"
	"github.com/bitcoinworld/arcade-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the backend selected by the store driver.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Store.Driver == config.DriverMongo {
		ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
		defer cancel()

		db, err := mongo.Open(ctx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, log.Logger)
		if err != nil {
			return nil, err
		}
		log.Info("Database initialized", "driver", config.DriverMongo, "database", cfg.Store.MongoDatabase)
		return &StoreHandle{Store: db}, nil
	}

	db, err := sqlite.Open(cfg.Store.SQLitePath, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("Database initialized", "driver", config.DriverSQLite, "path", cfg.Store.SQLitePath)
	return &StoreHandle{Store: db}, nil
}

// LedgerHandle wraps the idempotency ledger. Ledger is nil when the
// idempotency strategy is none.
type LedgerHandle struct {
	*idempotency.BadgerLedger
}

// Shutdown implements do.Shutdownable.
func (h *LedgerHandle) Shutdown() error {
	if h.BadgerLedger == nil {
		return nil
	}
	return h.Close()
}

// Ledger returns the ledger as the interface the score service expects,
// keeping a nil ledger a nil interface.
func (h *LedgerHandle) Ledger() idempotency.Ledger {
	if h.BadgerLedger == nil {
		return nil
	}
	return h.BadgerLedger
}

// ProvideLedger opens the idempotency ledger when the token strategy is enabled.
func ProvideLedger(i do.Injector) (*LedgerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Scores.IdempotencyStrategy != config.IdempotencyToken {
		log.Info("Idempotency keys disabled", "strategy", cfg.Scores.IdempotencyStrategy)
		return &LedgerHandle{}, nil
	}

	ledger, err := idempotency.Open(cfg.Scores.IdempotencyPath, cfg.Scores.IdempotencyTTL, log.Logger)
	if err != nil {
		return nil, err
	}
	return &LedgerHandle{BadgerLedger: ledger}, nil
}
