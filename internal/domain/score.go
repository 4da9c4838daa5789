package domain

import "time"

// ScoreRecord is one completed game session. Records are append-only.
type ScoreRecord struct {
	ID            string         `json:"id"`
	UserID        string         `json:"userId"`
	WalletAddress string         `json:"walletAddress"`
	GameType      GameType       `json:"gameType"`
	Score         int64          `json:"score"`
	Points        int64          `json:"points"`
	GameData      map[string]any `json:"gameData,omitempty"`
	PlayedAt      time.Time      `json:"playedAt"`
}
