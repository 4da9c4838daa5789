package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/store"
)

const playerColumns = `id, wallet_address, total_points, minted_points, last_played, created_at, updated_at, version`

// CreatePlayer inserts a new player with its counters.
func (s *Store) CreatePlayer(ctx context.Context, p *domain.Player) error {
	p.FillCounters()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO players (`+playerColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.WalletAddress, p.TotalPoints, p.MintedPoints,
			nullTimeString(p.LastPlayed), formatTime(p.CreatedAt), formatTime(p.UpdatedAt), p.Version,
		)
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		if err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
		return insertPlayerGames(ctx, tx, p)
	})
}

// GetPlayer returns a player by id.
func (s *Store) GetPlayer(ctx context.Context, id string) (*domain.Player, error) {
	return s.getPlayer(ctx, `WHERE id = ?`, id)
}

// GetPlayerByWallet returns a player by wallet address.
func (s *Store) GetPlayerByWallet(ctx context.Context, walletAddress string) (*domain.Player, error) {
	return s.getPlayer(ctx, `WHERE wallet_address = ?`, walletAddress)
}

func (s *Store) getPlayer(ctx context.Context, where string, arg any) (*domain.Player, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players `+where, arg)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.loadPlayerGames(ctx, []*domain.Player{p}); err != nil {
		return nil, err
	}
	return p, nil
}

// ApplyScore increments the aggregate in one transaction. Every counter is
// updated in SQL relative to its stored value, so concurrent submissions
// for the same player never overwrite each other.
func (s *Store) ApplyScore(ctx context.Context, userID string, rec *domain.ScoreRecord) (bool, error) {
	found := true
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		playedAt := formatTime(rec.PlayedAt)

		res, err := tx.ExecContext(ctx, `
			UPDATE players SET
				total_points = total_points + ?,
				last_played = MAX(COALESCE(last_played, ''), ?),
				updated_at = ?,
				version = version + 1
			WHERE id = ?`,
			rec.Points, playedAt, now, userID)
		if err != nil {
			return fmt.Errorf("update player totals: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			found = false
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO player_games (player_id, game_type, high_score, games_played)
			VALUES (?, ?, ?, 1)
			ON CONFLICT(player_id, game_type) DO UPDATE SET
				high_score = MAX(high_score, excluded.high_score),
				games_played = games_played + 1`,
			userID, string(rec.GameType), rec.Score)
		if err != nil {
			return fmt.Errorf("update player game: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// ListPlayersByPoints returns a page of players by total points descending.
// Ties keep creation order.
func (s *Store) ListPlayersByPoints(ctx context.Context, page domain.PageRequest) ([]*domain.Player, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM players`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count players: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+playerColumns+` FROM players
		ORDER BY total_points DESC, rowid ASC
		LIMIT ? OFFSET ?`, page.Size, page.Skip())
	if err != nil {
		return nil, 0, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, 0, err
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := s.loadPlayerGames(ctx, players); err != nil {
		return nil, 0, err
	}
	return players, total, nil
}

// ListPlayerIDs returns every player id in creation order.
func (s *Store) ListPlayerIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM players ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query player ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReplacePlayerTotals overwrites the derived fields of p if no other write
// has touched the player since p was read.
func (s *Store) ReplacePlayerTotals(ctx context.Context, p *domain.Player) error {
	p.FillCounters()
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE players SET
				total_points = ?,
				minted_points = MIN(minted_points, ?),
				last_played = ?,
				updated_at = ?,
				version = version + 1
			WHERE id = ? AND version = ?`,
			p.TotalPoints, p.MintedPoints, nullTimeString(p.LastPlayed), formatTime(time.Now()), p.ID, p.Version)
		if err != nil {
			return fmt.Errorf("replace player totals: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var exists int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM players WHERE id = ?`, p.ID).Scan(&exists)
			if errors.Is(err, sql.ErrNoRows) {
				return store.ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("check player: %w", err)
			}
			return store.ErrVersionConflict
		}
		p.Version++

		if _, err := tx.ExecContext(ctx, `DELETE FROM player_games WHERE player_id = ?`, p.ID); err != nil {
			return fmt.Errorf("clear player games: %w", err)
		}
		return insertPlayerGames(ctx, tx, p)
	})
}

// ApplyMint adds points to the minted balance if they are available.
func (s *Store) ApplyMint(ctx context.Context, userID string, points int64) (*domain.Player, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players SET
			minted_points = minted_points + ?,
			updated_at = ?,
			version = version + 1
		WHERE id = ? AND total_points - minted_points >= ?`,
		points, formatTime(time.Now()), userID, points)
	if err != nil {
		return nil, fmt.Errorf("apply mint: %w", err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.GetPlayer(ctx, userID); err != nil {
			return nil, err
		}
		return nil, store.ErrInsufficientPoints
	}
	return s.GetPlayer(ctx, userID)
}

// insertPlayerGames writes the non-zero per-game counters of p.
func insertPlayerGames(ctx context.Context, tx *sql.Tx, p *domain.Player) error {
	for _, g := range domain.AllGameTypes() {
		high, played := p.HighScores[g], p.GamesPlayed[g]
		if high == 0 && played == 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO player_games (player_id, game_type, high_score, games_played)
			VALUES (?, ?, ?, ?)`, p.ID, string(g), high, played); err != nil {
			return fmt.Errorf("insert player game: %w", err)
		}
	}
	return nil
}

// loadPlayerGames fills HighScores and GamesPlayed for players in one query.
func (s *Store) loadPlayerGames(ctx context.Context, players []*domain.Player) error {
	if len(players) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Player, len(players))
	args := make([]any, 0, len(players))
	for _, p := range players {
		p.FillCounters()
		byID[p.ID] = p
		args = append(args, p.ID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, game_type, high_score, games_played
		FROM player_games
		WHERE player_id IN (`+placeholders(len(args))+`)`, args...)
	if err != nil {
		return fmt.Errorf("query player games: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			playerID, game string
			high, played   int64
		)
		if err := rows.Scan(&playerID, &game, &high, &played); err != nil {
			return fmt.Errorf("scan player game: %w", err)
		}
		g := domain.GameType(game)
		if p, ok := byID[playerID]; ok && g.Valid() {
			p.HighScores[g] = high
			p.GamesPlayed[g] = played
		}
	}
	return rows.Err()
}

func scanPlayer(row scanner) (*domain.Player, error) {
	var (
		p                    domain.Player
		lastPlayed           sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&p.ID, &p.WalletAddress, &p.TotalPoints, &p.MintedPoints,
		&lastPlayed, &createdAt, &updatedAt, &p.Version); err != nil {
		return nil, err
	}

	var err error
	if p.LastPlayed, err = parseNullableTime(lastPlayed); err != nil {
		return nil, fmt.Errorf("parse last_played: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &p, nil
}
