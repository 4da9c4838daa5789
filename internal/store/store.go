// Package store defines the persistence contracts for score records and
// player aggregates. Backends live in the sqlite and mongo subpackages.
package store

import (
	"context"
	"iter"

	"github.com/bitcoinworld/arcade-server/internal/domain"
)

// ScoreFilter narrows a user's score history.
type ScoreFilter struct {
	UserID   string
	GameType domain.GameType // empty for all games
}

// ScoreStore is the append-only score ledger.
type ScoreStore interface {
	// AppendScore durably stores rec. rec.ID must be set.
	AppendScore(ctx context.Context, rec *domain.ScoreRecord) error
	GetScore(ctx context.Context, id string) (*domain.ScoreRecord, error)

	// ListUserScores returns one page of the filter's records, newest first, and the total match count.
	ListUserScores(ctx context.Context, filter ScoreFilter, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error)
	// ListGameScores returns one page of a game's records by score descending, and the game's record count.
	ListGameScores(ctx context.Context, game domain.GameType, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error)
	// TopGameScore returns the highest record of a game, or nil when the game has none.
	TopGameScore(ctx context.Context, game domain.GameType) (*domain.ScoreRecord, error)
	// GameHighScores groups a game's records by wallet, ranks by best score descending,
	// and returns one page plus the number of distinct wallets.
	GameHighScores(ctx context.Context, game domain.GameType, page domain.PageRequest) ([]domain.WalletBest, int64, error)
	// UserGameAggregates groups one user's records by game.
	UserGameAggregates(ctx context.Context, userID string) ([]domain.GameAggregate, error)
	// UserScores streams every record of a user in insertion order.
	UserScores(ctx context.Context, userID string) iter.Seq2[*domain.ScoreRecord, error]
}

// PlayerStore holds the per-user aggregates.
type PlayerStore interface {
	// CreatePlayer inserts p. Returns ErrAlreadyExists when the wallet is taken.
	CreatePlayer(ctx context.Context, p *domain.Player) error
	GetPlayer(ctx context.Context, id string) (*domain.Player, error)
	GetPlayerByWallet(ctx context.Context, walletAddress string) (*domain.Player, error)

	// ApplyScore folds rec into the player's aggregate as one atomic operation:
	// total points and games played are incremented, the game's high score is
	// raised to max(old, score) and last played is set. found is false when the
	// player does not exist, in which case nothing is written.
	ApplyScore(ctx context.Context, userID string, rec *domain.ScoreRecord) (found bool, err error)

	// ListPlayersByPoints returns one page of players by total points descending, and the player count.
	ListPlayersByPoints(ctx context.Context, page domain.PageRequest) ([]*domain.Player, int64, error)
	// ListPlayerIDs returns every player id.
	ListPlayerIDs(ctx context.Context) ([]string, error)

	// ReplacePlayerTotals overwrites the ledger-derived fields of p if the
	// stored player is still at p.Version, else returns ErrVersionConflict.
	// Minted points are only ever lowered, to p.MintedPoints at most.
	ReplacePlayerTotals(ctx context.Context, p *domain.Player) error

	// ApplyMint moves points into the minted balance only if enough points are
	// available. Returns ErrInsufficientPoints otherwise.
	ApplyMint(ctx context.Context, userID string, points int64) (*domain.Player, error)
}

// Store is a complete persistence backend.
type Store interface {
	ScoreStore
	PlayerStore
	Ping(ctx context.Context) error
	Close() error
}
