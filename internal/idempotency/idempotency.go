// Package idempotency records per-user submission keys so a retried
// request returns the original score instead of writing a duplicate.
package idempotency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/bitcoinworld/arcade-server/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const keyPrefix = "idem:"

// maxReserveAttempts bounds retries after a badger transaction conflict.
const maxReserveAttempts = 3

// State of a reserved key.
type State string

const (
	StatePending State = "pending"
	StateDone    State = "done"
)

// Entry is what the ledger remembers about one key.
type Entry struct {
	State     State     `json:"state"`
	ScoreID   string    `json:"scoreId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ledger reserves and resolves idempotency keys.
type Ledger interface {
	// Reserve claims key for userID. When the key is already known the
	// existing entry is returned with reserved=false.
	Reserve(ctx context.Context, userID, key string) (entry *Entry, reserved bool, err error)
	// Complete marks a reserved key as done with the stored score id.
	Complete(ctx context.Context, userID, key, scoreID string) error
	// Release forgets a reserved key so the client can retry.
	Release(ctx context.Context, userID, key string) error
	Close() error
}

// NormalizeKey validates a client key and returns its canonical form.
func NormalizeKey(raw string) (string, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.InvalidInput("Idempotency-Key must be a UUID")
	}
	return u.String(), nil
}

// BadgerLedger is a Ledger on BadgerDB. Entries expire after the TTL.
type BadgerLedger struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
}

var _ Ledger = (*BadgerLedger)(nil)

// Open opens a ledger at path. An empty path keeps it in memory.
func Open(path string, ttl time.Duration, logger *slog.Logger) (*BadgerLedger, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	} else {
		opts.SyncWrites = true
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open idempotency ledger: %w", err)
	}

	if logger != nil {
		logger.Info("idempotency ledger opened", "path", path, "in_memory", path == "", "ttl", ttl)
	}
	return &BadgerLedger{db: db, ttl: ttl, logger: logger}, nil
}

func ledgerKey(userID, key string) []byte {
	return []byte(keyPrefix + userID + ":" + key)
}

// Reserve claims key for userID inside a badger transaction.
func (l *BadgerLedger) Reserve(ctx context.Context, userID, key string) (*Entry, bool, error) {
	for range maxReserveAttempts {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}

		var (
			existing *Entry
			reserved bool
		)
		err := l.db.Update(func(txn *badger.Txn) error {
			k := ledgerKey(userID, key)
			item, err := txn.Get(k)
			if err == nil {
				existing = &Entry{}
				return item.Value(func(val []byte) error {
					return json.Unmarshal(val, existing)
				})
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}

			data, err := json.Marshal(Entry{State: StatePending, CreatedAt: time.Now().UTC()})
			if err != nil {
				return err
			}
			reserved = true
			return txn.SetEntry(badger.NewEntry(k, data).WithTTL(l.ttl))
		})
		if errors.Is(err, badger.ErrConflict) {
			// Another request touched the key concurrently; the next read sees it.
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if reserved {
			return nil, true, nil
		}
		return existing, false, nil
	}
	return nil, false, errors.Conflict("submission with this idempotency key is in progress")
}

// Complete records the score id for a reserved key.
func (l *BadgerLedger) Complete(ctx context.Context, userID, key, scoreID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Entry{State: StateDone, ScoreID: scoreID, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(ledgerKey(userID, key), data).WithTTL(l.ttl))
	})
}

// Release deletes a key.
func (l *BadgerLedger) Release(ctx context.Context, userID, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(ledgerKey(userID, key))
	})
}

// Close closes the database.
func (l *BadgerLedger) Close() error {
	return l.db.Close()
}
