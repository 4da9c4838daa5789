package domain

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bitcoinworld/arcade-server/internal/color"
)

// OraclePointRate is the number of minted points backing one ORC token.
const OraclePointRate = 100

// Player is the per-user aggregate derived from the score ledger.
// HighScores and GamesPlayed always carry an entry for every GameType.
type Player struct {
	ID            string
	WalletAddress string
	TotalPoints   int64
	MintedPoints  int64
	HighScores    map[GameType]int64
	GamesPlayed   map[GameType]int64
	LastPlayed    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Version counts writes to the aggregate. ReplacePlayerTotals only
	// applies against the version it was read at.
	Version int64
}

// NewPlayer returns a player with every counter at zero.
func NewPlayer(id, walletAddress string, now time.Time) *Player {
	return &Player{
		ID:            id,
		WalletAddress: walletAddress,
		HighScores:    counters(),
		GamesPlayed:   counters(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AvailablePoints is the portion of TotalPoints not yet minted, never negative.
func (p *Player) AvailablePoints() int64 {
	return max(0, p.TotalPoints-p.MintedPoints)
}

// Apply folds one score record into the aggregate.
func (p *Player) Apply(rec *ScoreRecord) {
	if p.HighScores == nil {
		p.HighScores = counters()
	}
	if p.GamesPlayed == nil {
		p.GamesPlayed = counters()
	}
	p.TotalPoints += rec.Points
	p.GamesPlayed[rec.GameType]++
	p.HighScores[rec.GameType] = max(p.HighScores[rec.GameType], rec.Score)
	if p.LastPlayed == nil || rec.PlayedAt.After(*p.LastPlayed) {
		playedAt := rec.PlayedAt
		p.LastPlayed = &playedAt
	}
}

// ResetTotals clears every ledger-derived field. MintedPoints is kept.
func (p *Player) ResetTotals() {
	p.TotalPoints = 0
	p.HighScores = counters()
	p.GamesPlayed = counters()
	p.LastPlayed = nil
}

// FillCounters adds zero entries for game types missing from the maps.
func (p *Player) FillCounters() {
	if p.HighScores == nil {
		p.HighScores = counters()
	}
	if p.GamesPlayed == nil {
		p.GamesPlayed = counters()
	}
	for _, g := range gameTypes {
		if _, ok := p.HighScores[g]; !ok {
			p.HighScores[g] = 0
		}
		if _, ok := p.GamesPlayed[g]; !ok {
			p.GamesPlayed[g] = 0
		}
	}
}

// OracleBalance converts minted points to the token balance.
func OracleBalance(mintedPoints int64) decimal.Decimal {
	return decimal.NewFromInt(mintedPoints).Div(decimal.NewFromInt(OraclePointRate))
}

// PlayerSummary is the client-facing view of a Player.
type PlayerSummary struct {
	ID              string             `json:"id"`
	WalletAddress   string             `json:"walletAddress"`
	TotalPoints     int64              `json:"totalPoints"`
	MintedPoints    int64              `json:"mintedPoints"`
	AvailablePoints int64              `json:"availablePoints"`
	OracleBalance   string             `json:"oracleBalance"`
	AvatarColor     string             `json:"avatarColor"`
	HighScores      map[GameType]int64 `json:"highScores"`
	GamesPlayed     map[GameType]int64 `json:"gamesPlayed"`
	LastPlayed      *time.Time         `json:"lastPlayed,omitempty"`
	CreatedAt       time.Time          `json:"createdAt"`
}

// Summary builds the client-facing view.
func (p *Player) Summary() *PlayerSummary {
	p.FillCounters()
	return &PlayerSummary{
		ID:              p.ID,
		WalletAddress:   p.WalletAddress,
		TotalPoints:     p.TotalPoints,
		MintedPoints:    p.MintedPoints,
		AvailablePoints: p.AvailablePoints(),
		OracleBalance:   OracleBalance(p.MintedPoints).StringFixed(2),
		AvatarColor:     color.ForWallet(p.WalletAddress),
		HighScores:      p.HighScores,
		GamesPlayed:     p.GamesPlayed,
		LastPlayed:      p.LastPlayed,
		CreatedAt:       p.CreatedAt,
	}
}
