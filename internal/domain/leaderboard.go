package domain

import "time"

// Page sizes for list endpoints.
const (
	DefaultLeaderboardPageSize = 50
	DefaultHistoryPageSize     = 10
	MaxPageSize                = 100
)

// PageRequest is a 1-based page and a page size.
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps the request: page >= 1, size defaults to defaultSize and is capped at MaxPageSize.
func (r PageRequest) Normalize(defaultSize int) PageRequest {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.Size < 1 {
		r.Size = defaultSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	return r
}

// Skip is the number of rows before the page.
func (r PageRequest) Skip() int {
	return (r.Page - 1) * r.Size
}

// Rank returns the positional rank of the i-th entry on the page.
func (r PageRequest) Rank(i int) int {
	return r.Skip() + i + 1
}

// Pagination describes where a page sits in the full result.
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	HasNextPage bool  `json:"hasNextPage"`
	HasPrevPage bool  `json:"hasPrevPage"`
}

// NewPagination builds pagination metadata for a page of r over total items.
func NewPagination(r PageRequest, total int64) Pagination {
	pages := 0
	if r.Size > 0 {
		pages = int((total + int64(r.Size) - 1) / int64(r.Size))
	}
	return Pagination{
		CurrentPage: r.Page,
		TotalPages:  pages,
		TotalCount:  total,
		HasNextPage: int64(r.Page)*int64(r.Size) < total,
		HasPrevPage: r.Page > 1,
	}
}

// OverallEntry ranks a player by lifetime points.
type OverallEntry struct {
	Rank          int                `json:"rank"`
	WalletAddress string             `json:"walletAddress"`
	TotalPoints   int64              `json:"totalPoints"`
	HighScores    map[GameType]int64 `json:"highScores"`
	GamesPlayed   map[GameType]int64 `json:"gamesPlayed"`
}

// GameEntry ranks a single score record within one game.
type GameEntry struct {
	Rank          int       `json:"rank"`
	ScoreID       string    `json:"scoreId"`
	WalletAddress string    `json:"walletAddress"`
	Score         int64     `json:"score"`
	Points        int64     `json:"points"`
	PlayedAt      time.Time `json:"playedAt"`
}

// HighScoreEntry ranks a wallet by its best score in one game.
type HighScoreEntry struct {
	Rank          int       `json:"rank"`
	WalletAddress string    `json:"walletAddress"`
	HighScore     int64     `json:"highScore"`
	TotalPoints   int64     `json:"totalPoints"`
	GamesPlayed   int64     `json:"gamesPlayed"`
	LastPlayed    time.Time `json:"lastPlayed"`
}

// WalletBest is the per-wallet grouping of one game's records before ranking.
type WalletBest struct {
	WalletAddress string
	HighScore     int64
	TotalPoints   int64
	GamesPlayed   int64
	LastPlayed    time.Time
}

// OverallLeaderboard is a page of the overall ranking.
type OverallLeaderboard struct {
	Leaderboard []OverallEntry `json:"leaderboard"`
	Pagination  Pagination     `json:"pagination"`
}

// GameLeaderboard is a page of one game's score records.
type GameLeaderboard struct {
	GameType    GameType    `json:"gameType"`
	Leaderboard []GameEntry `json:"leaderboard"`
	Pagination  Pagination  `json:"pagination"`
}

// HighScoreLeaderboard is a page of one game's per-wallet bests.
type HighScoreLeaderboard struct {
	GameType    GameType         `json:"gameType"`
	Leaderboard []HighScoreEntry `json:"leaderboard"`
	Pagination  Pagination       `json:"pagination"`
}
