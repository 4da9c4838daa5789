// Package mongo implements store.Store on MongoDB. Aggregate updates use
// single-document $inc/$max operators, which MongoDB applies atomically.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitcoinworld/arcade-server/internal/store"
)

const (
	collPlayers = "players"
	collScores  = "scores"
)

var _ store.Store = (*Store)(nil)

// Store provides MongoDB-backed persistence.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	players *mongo.Collection
	scores  *mongo.Collection
	logger  *slog.Logger
}

// Open connects to uri, selects database and ensures indexes.
func Open(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		db:      db,
		players: db.Collection(collPlayers),
		scores:  db.Collection(collScores),
		logger:  logger,
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.players.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "walletAddress", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "totalPoints", Value: -1}, {Key: "order", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create player indexes: %w", err)
	}

	_, err = s.scores.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "playedAt", Value: -1}}},
		{Keys: bson.D{{Key: "gameType", Value: 1}, {Key: "score", Value: -1}}},
		{Keys: bson.D{{Key: "gameType", Value: 1}, {Key: "walletAddress", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create score indexes: %w", err)
	}
	return nil
}

// Ping checks the server connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the database. Used by tests.
func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}
