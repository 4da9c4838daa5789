package mongo

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

// scoreDoc is the stored shape of a score record. _id is an ObjectID so
// that sorting on it follows insertion order.
type scoreDoc struct {
	OID           primitive.ObjectID `bson:"_id,omitempty"`
	ID            string             `bson:"id"`
	UserID        string             `bson:"userId"`
	WalletAddress string             `bson:"walletAddress"`
	GameType      string             `bson:"gameType"`
	Score         int64              `bson:"score"`
	Points        int64              `bson:"points"`
	GameData      map[string]any     `bson:"gameData,omitempty"`
	PlayedAt      time.Time          `bson:"playedAt"`
}

func (d *scoreDoc) record() *domain.ScoreRecord {
	return &domain.ScoreRecord{
		ID:            d.ID,
		UserID:        d.UserID,
		WalletAddress: d.WalletAddress,
		GameType:      domain.GameType(d.GameType),
		Score:         d.Score,
		Points:        d.Points,
		GameData:      d.GameData,
		PlayedAt:      d.PlayedAt.UTC(),
	}
}

// AppendScore inserts a score record.
func (s *Store) AppendScore(ctx context.Context, rec *domain.ScoreRecord) error {
	_, err := s.scores.InsertOne(ctx, scoreDoc{
		OID:           primitive.NewObjectID(),
		ID:            rec.ID,
		UserID:        rec.UserID,
		WalletAddress: rec.WalletAddress,
		GameType:      string(rec.GameType),
		Score:         rec.Score,
		Points:        rec.Points,
		GameData:      rec.GameData,
		PlayedAt:      rec.PlayedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// GetScore returns a score record by id.
func (s *Store) GetScore(ctx context.Context, id string) (*domain.ScoreRecord, error) {
	var doc scoreDoc
	err := s.scores.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find score: %w", err)
	}
	return doc.record(), nil
}

// ListUserScores returns a page of a user's records, newest first.
func (s *Store) ListUserScores(ctx context.Context, filter store.ScoreFilter, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error) {
	q := bson.M{"userId": filter.UserID}
	if filter.GameType != "" {
		q["gameType"] = string(filter.GameType)
	}
	return s.findPage(ctx, q, bson.D{{Key: "playedAt", Value: -1}, {Key: "_id", Value: -1}}, page)
}

// ListGameScores returns a page of a game's records by score descending.
func (s *Store) ListGameScores(ctx context.Context, game domain.GameType, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error) {
	return s.findPage(ctx, bson.M{"gameType": string(game)}, bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}, page)
}

// TopGameScore returns the best record of a game, or nil if there is none.
func (s *Store) TopGameScore(ctx context.Context, game domain.GameType) (*domain.ScoreRecord, error) {
	var doc scoreDoc
	err := s.scores.FindOne(ctx,
		bson.M{"gameType": string(game)},
		options.FindOne().SetSort(bson.D{{Key: "score", Value: -1}, {Key: "_id", Value: 1}}),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find top score: %w", err)
	}
	return doc.record(), nil
}

// GameHighScores groups a game's records by wallet and ranks by best score.
func (s *Store) GameHighScores(ctx context.Context, game domain.GameType, page domain.PageRequest) ([]domain.WalletBest, int64, error) {
	match := bson.M{"gameType": string(game)}

	wallets, err := s.countWallets(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("count game players: %w", err)
	}

	cur, err := s.scores.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$walletAddress"},
			{Key: "highScore", Value: bson.M{"$max": "$score"}},
			{Key: "totalPoints", Value: bson.M{"$sum": "$points"}},
			{Key: "gamesPlayed", Value: bson.M{"$sum": 1}},
			{Key: "lastPlayed", Value: bson.M{"$max": "$playedAt"}},
			{Key: "first", Value: bson.M{"$min": "$_id"}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "highScore", Value: -1}, {Key: "first", Value: 1}}}},
		{{Key: "$skip", Value: int64(page.Skip())}},
		{{Key: "$limit", Value: int64(page.Size)}},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate game high scores: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		WalletAddress string    `bson:"_id"`
		HighScore     int64     `bson:"highScore"`
		TotalPoints   int64     `bson:"totalPoints"`
		GamesPlayed   int64     `bson:"gamesPlayed"`
		LastPlayed    time.Time `bson:"lastPlayed"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("decode game high scores: %w", err)
	}

	out := make([]domain.WalletBest, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.WalletBest{
			WalletAddress: r.WalletAddress,
			HighScore:     r.HighScore,
			TotalPoints:   r.TotalPoints,
			GamesPlayed:   r.GamesPlayed,
			LastPlayed:    r.LastPlayed.UTC(),
		})
	}
	return out, wallets, nil
}

// countWallets counts the distinct wallets among records matching match.
func (s *Store) countWallets(ctx context.Context, match bson.M) (int64, error) {
	cur, err := s.scores.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{"_id": "$walletAddress"}}},
		{{Key: "$count", Value: "wallets"}},
	})
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var row struct {
		Wallets int64 `bson:"wallets"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, err
		}
	}
	return row.Wallets, cur.Err()
}

// UserGameAggregates groups one user's records by game.
func (s *Store) UserGameAggregates(ctx context.Context, userID string) ([]domain.GameAggregate, error) {
	cur, err := s.scores.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$gameType"},
			{Key: "count", Value: bson.M{"$sum": 1}},
			{Key: "highScore", Value: bson.M{"$max": "$score"}},
			{Key: "points", Value: bson.M{"$sum": "$points"}},
			{Key: "scoreSum", Value: bson.M{"$sum": "$score"}},
		}}},
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate user scores: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		GameType  string `bson:"_id"`
		Count     int64  `bson:"count"`
		HighScore int64  `bson:"highScore"`
		Points    int64  `bson:"points"`
		ScoreSum  int64  `bson:"scoreSum"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode user aggregates: %w", err)
	}

	out := make([]domain.GameAggregate, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.GameAggregate{
			GameType:  domain.GameType(r.GameType),
			Count:     r.Count,
			HighScore: r.HighScore,
			Points:    r.Points,
			ScoreSum:  r.ScoreSum,
		})
	}
	return out, nil
}

// UserScores streams a user's records in insertion order.
func (s *Store) UserScores(ctx context.Context, userID string) iter.Seq2[*domain.ScoreRecord, error] {
	return func(yield func(*domain.ScoreRecord, error) bool) {
		cur, err := s.scores.Find(ctx, bson.M{"userId": userID},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
		if err != nil {
			yield(nil, fmt.Errorf("find user scores: %w", err))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var doc scoreDoc
			if err := cur.Decode(&doc); err != nil {
				yield(nil, fmt.Errorf("decode score: %w", err))
				return
			}
			if !yield(doc.record(), nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *Store) findPage(ctx context.Context, filter bson.M, sort bson.D, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error) {
	total, err := s.scores.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count scores: %w", err)
	}

	cur, err := s.scores.Find(ctx, filter, options.Find().
		SetSort(sort).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size)))
	if err != nil {
		return nil, 0, fmt.Errorf("find scores: %w", err)
	}
	defer cur.Close(ctx)

	var docs []scoreDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode scores: %w", err)
	}

	out := make([]*domain.ScoreRecord, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].record())
	}
	return out, total, nil
}
