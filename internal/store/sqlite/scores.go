package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	jsoniter "github.com/json-iterator/go"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const scoreColumns = `id, user_id, wallet_address, game_type, score, points, game_data, played_at`

// AppendScore inserts a score record into the ledger.
func (s *Store) AppendScore(ctx context.Context, rec *domain.ScoreRecord) error {
	var gameData sql.NullString
	if len(rec.GameData) > 0 {
		data, err := json.Marshal(rec.GameData)
		if err != nil {
			return fmt.Errorf("marshal game data: %w", err)
		}
		gameData = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scores (`+scoreColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.WalletAddress, string(rec.GameType),
		rec.Score, rec.Points, gameData, formatTime(rec.PlayedAt),
	)
	if isUniqueViolation(err) {
		return store.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

// GetScore returns a score record by id.
func (s *Store) GetScore(ctx context.Context, id string) (*domain.ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM scores WHERE id = ?`, id)
	rec, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return rec, err
}

// ListUserScores returns a page of a user's records, newest first.
func (s *Store) ListUserScores(ctx context.Context, filter store.ScoreFilter, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error) {
	where := `WHERE user_id = ?`
	args := []any{filter.UserID}
	if filter.GameType != "" {
		where += ` AND game_type = ?`
		args = append(args, string(filter.GameType))
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scores `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count user scores: %w", err)
	}

	recs, err := s.queryScores(ctx, `
		SELECT `+scoreColumns+` FROM scores `+where+`
		ORDER BY played_at DESC, seq DESC
		LIMIT ? OFFSET ?`,
		append(args, page.Size, page.Skip())...)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// ListGameScores returns a page of a game's records by score descending.
// Equal scores keep insertion order.
func (s *Store) ListGameScores(ctx context.Context, game domain.GameType, page domain.PageRequest) ([]*domain.ScoreRecord, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scores WHERE game_type = ?`, string(game)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count game scores: %w", err)
	}

	recs, err := s.queryScores(ctx, `
		SELECT `+scoreColumns+` FROM scores
		WHERE game_type = ?
		ORDER BY score DESC, seq ASC
		LIMIT ? OFFSET ?`,
		string(game), page.Size, page.Skip())
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

// TopGameScore returns the best record of a game, or nil if there is none.
func (s *Store) TopGameScore(ctx context.Context, game domain.GameType) (*domain.ScoreRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+scoreColumns+` FROM scores
		WHERE game_type = ?
		ORDER BY score DESC, seq ASC
		LIMIT 1`, string(game))
	rec, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// GameHighScores groups a game's records by wallet and ranks by best score.
func (s *Store) GameHighScores(ctx context.Context, game domain.GameType, page domain.PageRequest) ([]domain.WalletBest, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT wallet_address) FROM scores WHERE game_type = ?`, string(game)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count game players: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT wallet_address, MAX(score), SUM(points), COUNT(*), MAX(played_at)
		FROM scores
		WHERE game_type = ?
		GROUP BY wallet_address
		ORDER BY MAX(score) DESC, MIN(seq) ASC
		LIMIT ? OFFSET ?`,
		string(game), page.Size, page.Skip())
	if err != nil {
		return nil, 0, fmt.Errorf("query game high scores: %w", err)
	}
	defer rows.Close()

	var out []domain.WalletBest
	for rows.Next() {
		var (
			best       domain.WalletBest
			lastPlayed string
		)
		if err := rows.Scan(&best.WalletAddress, &best.HighScore, &best.TotalPoints, &best.GamesPlayed, &lastPlayed); err != nil {
			return nil, 0, fmt.Errorf("scan game high score: %w", err)
		}
		if best.LastPlayed, err = parseTime(lastPlayed); err != nil {
			return nil, 0, fmt.Errorf("parse last played: %w", err)
		}
		out = append(out, best)
	}
	return out, total, rows.Err()
}

// UserGameAggregates groups one user's records by game.
func (s *Store) UserGameAggregates(ctx context.Context, userID string) ([]domain.GameAggregate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT game_type, COUNT(*), MAX(score), SUM(points), SUM(score)
		FROM scores
		WHERE user_id = ?
		GROUP BY game_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("query user aggregates: %w", err)
	}
	defer rows.Close()

	var out []domain.GameAggregate
	for rows.Next() {
		var (
			agg  domain.GameAggregate
			game string
		)
		if err := rows.Scan(&game, &agg.Count, &agg.HighScore, &agg.Points, &agg.ScoreSum); err != nil {
			return nil, fmt.Errorf("scan user aggregate: %w", err)
		}
		agg.GameType = domain.GameType(game)
		out = append(out, agg)
	}
	return out, rows.Err()
}

// UserScores streams a user's records in insertion order.
func (s *Store) UserScores(ctx context.Context, userID string) iter.Seq2[*domain.ScoreRecord, error] {
	return func(yield func(*domain.ScoreRecord, error) bool) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+scoreColumns+` FROM scores WHERE user_id = ? ORDER BY seq ASC`, userID)
		if err != nil {
			yield(nil, fmt.Errorf("query user scores: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanScore(rows)
			if !yield(rec, err) || err != nil {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *Store) queryScores(ctx context.Context, query string, args ...any) ([]*domain.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	var out []*domain.ScoreRecord
	for rows.Next() {
		rec, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanScore(row scanner) (*domain.ScoreRecord, error) {
	var (
		rec      domain.ScoreRecord
		game     string
		gameData sql.NullString
		playedAt string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &rec.WalletAddress, &game,
		&rec.Score, &rec.Points, &gameData, &playedAt); err != nil {
		return nil, err
	}
	rec.GameType = domain.GameType(game)

	var err error
	if rec.PlayedAt, err = parseTime(playedAt); err != nil {
		return nil, fmt.Errorf("parse played_at: %w", err)
	}
	if gameData.Valid && gameData.String != "" {
		if err := json.Unmarshal([]byte(gameData.String), &rec.GameData); err != nil {
			return nil, fmt.Errorf("unmarshal game data: %w", err)
		}
	}
	return &rec, nil
}
