package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

// playerDoc embeds the per-game counters so that a single-document update
// covers the whole aggregate. order breaks ranking ties by creation.
type playerDoc struct {
	ID            string             `bson:"_id"`
	Order         primitive.ObjectID `bson:"order"`
	WalletAddress string             `bson:"walletAddress"`
	TotalPoints   int64              `bson:"totalPoints"`
	MintedPoints  int64              `bson:"mintedPoints"`
	HighScores    map[string]int64   `bson:"highScores"`
	GamesPlayed   map[string]int64   `bson:"gamesPlayed"`
	LastPlayed    *time.Time         `bson:"lastPlayed"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
	Version       int64              `bson:"version"`
}

func (d *playerDoc) player() *domain.Player {
	p := &domain.Player{
		ID:            d.ID,
		WalletAddress: d.WalletAddress,
		TotalPoints:   d.TotalPoints,
		MintedPoints:  d.MintedPoints,
		HighScores:    make(map[domain.GameType]int64, len(d.HighScores)),
		GamesPlayed:   make(map[domain.GameType]int64, len(d.GamesPlayed)),
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
	for g, v := range d.HighScores {
		p.HighScores[domain.GameType(g)] = v
	}
	for g, v := range d.GamesPlayed {
		p.GamesPlayed[domain.GameType(g)] = v
	}
	if d.LastPlayed != nil {
		t := d.LastPlayed.UTC()
		p.LastPlayed = &t
	}
	p.FillCounters()
	return p
}

func counterMap(m map[domain.GameType]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for g, v := range m {
		out[string(g)] = v
	}
	return out
}

// CreatePlayer inserts a new player.
func (s *Store) CreatePlayer(ctx context.Context, p *domain.Player) error {
	p.FillCounters()
	_, err := s.players.InsertOne(ctx, playerDoc{
		ID:            p.ID,
		Order:         primitive.NewObjectID(),
		WalletAddress: p.WalletAddress,
		TotalPoints:   p.TotalPoints,
		MintedPoints:  p.MintedPoints,
		HighScores:    counterMap(p.HighScores),
		GamesPlayed:   counterMap(p.GamesPlayed),
		LastPlayed:    p.LastPlayed,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		Version:       p.Version,
	})
	if mongo.IsDuplicateKeyError(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

// GetPlayer returns a player by id.
func (s *Store) GetPlayer(ctx context.Context, id string) (*domain.Player, error) {
	return s.findPlayer(ctx, bson.M{"_id": id})
}

// GetPlayerByWallet returns a player by wallet address.
func (s *Store) GetPlayerByWallet(ctx context.Context, walletAddress string) (*domain.Player, error) {
	return s.findPlayer(ctx, bson.M{"walletAddress": walletAddress})
}

func (s *Store) findPlayer(ctx context.Context, filter bson.M) (*domain.Player, error) {
	var doc playerDoc
	err := s.players.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return doc.player(), nil
}

// ApplyScore updates the aggregate with one atomic UpdateOne.
func (s *Store) ApplyScore(ctx context.Context, userID string, rec *domain.ScoreRecord) (bool, error) {
	game := string(rec.GameType)
	res, err := s.players.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$inc": bson.M{
			"totalPoints":         rec.Points,
			"gamesPlayed." + game: int64(1),
			"version":             int64(1),
		},
		"$max": bson.M{
			"highScores." + game: rec.Score,
			"lastPlayed":         rec.PlayedAt,
		},
		"$set": bson.M{"updatedAt": time.Now()},
	})
	if err != nil {
		return false, fmt.Errorf("update player totals: %w", err)
	}
	return res.MatchedCount > 0, nil
}

// ListPlayersByPoints returns a page of players by total points descending.
func (s *Store) ListPlayersByPoints(ctx context.Context, page domain.PageRequest) ([]*domain.Player, int64, error) {
	total, err := s.players.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count players: %w", err)
	}

	cur, err := s.players.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "totalPoints", Value: -1}, {Key: "order", Value: 1}}).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size)))
	if err != nil {
		return nil, 0, fmt.Errorf("find players: %w", err)
	}
	defer cur.Close(ctx)

	var docs []playerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("decode players: %w", err)
	}

	out := make([]*domain.Player, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].player())
	}
	return out, total, nil
}

// ListPlayerIDs returns every player id in creation order.
func (s *Store) ListPlayerIDs(ctx context.Context) ([]string, error) {
	cur, err := s.players.Find(ctx, bson.M{}, options.Find().
		SetSort(bson.D{{Key: "order", Value: 1}}).
		SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find player ids: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode player ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

// ReplacePlayerTotals overwrites the derived fields of p if the document
// is still at p.Version.
func (s *Store) ReplacePlayerTotals(ctx context.Context, p *domain.Player) error {
	p.FillCounters()
	res, err := s.players.UpdateOne(ctx, bson.M{"_id": p.ID, "version": p.Version}, bson.M{
		"$set": bson.M{
			"totalPoints": p.TotalPoints,
			"highScores":  counterMap(p.HighScores),
			"gamesPlayed": counterMap(p.GamesPlayed),
			"lastPlayed":  p.LastPlayed,
			"updatedAt":   time.Now(),
		},
		"$min": bson.M{"mintedPoints": p.MintedPoints},
		"$inc": bson.M{"version": int64(1)},
	})
	if err != nil {
		return fmt.Errorf("replace player totals: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.players.CountDocuments(ctx, bson.M{"_id": p.ID})
		if err != nil {
			return fmt.Errorf("check player: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrVersionConflict
	}
	p.Version++
	return nil
}

// ApplyMint adds points to the minted balance only if they are available.
func (s *Store) ApplyMint(ctx context.Context, userID string, points int64) (*domain.Player, error) {
	filter := bson.M{
		"_id": userID,
		"$expr": bson.M{"$gte": bson.A{
			bson.M{"$subtract": bson.A{"$totalPoints", "$mintedPoints"}},
			points,
		}},
	}

	var doc playerDoc
	err := s.players.FindOneAndUpdate(ctx, filter,
		bson.M{
			"$inc": bson.M{"mintedPoints": points, "version": int64(1)},
			"$set": bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, err := s.GetPlayer(ctx, userID); err != nil {
			return nil, err
		}
		return nil, store.ErrInsufficientPoints
	}
	if err != nil {
		return nil, fmt.Errorf("apply mint: %w", err)
	}
	return doc.player(), nil
}
