// Package realtime pushes score and leaderboard updates to connected
// viewers over Server-Sent Events and WebSocket. Delivery is best effort:
// at most once, no replay for clients that connect later.
package realtime

import (
	"time"

	"github.com/bitcoinworld/arcade-server/internal/domain"
)

// EventType is the wire name of an event.
type EventType string

const (
	// Private to the submitting user.
	EventUserUpdated   EventType = "user.updated"
	EventScoresRefresh EventType = "scores.refresh"

	// Broadcast to every viewer.
	EventScoreCreated       EventType = "score.created"
	EventLeaderboardUpdated EventType = "leaderboard.updated"
	EventGameStatsUpdated   EventType = "game_stats.updated"

	// Transport level.
	EventConnected EventType = "connected"
	EventHeartbeat EventType = "heartbeat"
)

// Event is one message sent to clients.
type Event struct {
	Type      EventType `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now().UTC()}
}

// UserUpdatedData carries the user's new summary and per-game stats.
type UserUpdatedData struct {
	User      *domain.PlayerSummary `json:"user"`
	GameStats domain.UserGameStats  `json:"gameStats,omitempty"`
}

// ScoresRefreshData hints the client to reload its score history.
type ScoresRefreshData struct {
	GameType domain.GameType `json:"gameType"`
}

// ScoreCreatedData announces a new record.
type ScoreCreatedData struct {
	GameType domain.GameType     `json:"gameType"`
	Score    *domain.ScoreRecord `json:"score"`
}

// Leaderboard kinds carried in LeaderboardUpdatedData.Type besides a game type.
const LeaderboardOverall = "overall"

// Leaderboard views of one game: every record, or each wallet's best.
const (
	ViewScores     = "scores"
	ViewHighScores = "highscores"
)

// LeaderboardUpdatedData carries a fresh leaderboard slice. Type is
// "overall" or a game type.
type LeaderboardUpdatedData struct {
	Type        string `json:"type"`
	View        string `json:"view,omitempty"`
	Leaderboard any    `json:"leaderboard"`
}

// GameStatsUpdatedData carries the global per-game records.
type GameStatsUpdatedData struct {
	GameStats domain.GlobalGameStats `json:"gameStats"`
}

// NewUserUpdatedEvent creates a user.updated event.
func NewUserUpdatedEvent(user *domain.PlayerSummary, stats domain.UserGameStats) Event {
	return newEvent(EventUserUpdated, UserUpdatedData{User: user, GameStats: stats})
}

// NewScoresRefreshEvent creates a scores.refresh event.
func NewScoresRefreshEvent(game domain.GameType) Event {
	return newEvent(EventScoresRefresh, ScoresRefreshData{GameType: game})
}

// NewScoreCreatedEvent creates a score.created event.
func NewScoreCreatedEvent(rec *domain.ScoreRecord) Event {
	return newEvent(EventScoreCreated, ScoreCreatedData{GameType: rec.GameType, Score: rec})
}

// NewOverallLeaderboardEvent creates a leaderboard.updated event for the overall ranking.
func NewOverallLeaderboardEvent(entries []domain.OverallEntry) Event {
	return newEvent(EventLeaderboardUpdated, LeaderboardUpdatedData{Type: LeaderboardOverall, Leaderboard: entries})
}

// NewGameScoresEvent creates a leaderboard.updated event for one game's top records.
func NewGameScoresEvent(game domain.GameType, entries []domain.GameEntry) Event {
	return newEvent(EventLeaderboardUpdated, LeaderboardUpdatedData{Type: string(game), View: ViewScores, Leaderboard: entries})
}

// NewGameLeaderboardEvent creates a leaderboard.updated event for one game's per-wallet bests.
func NewGameLeaderboardEvent(game domain.GameType, entries []domain.HighScoreEntry) Event {
	return newEvent(EventLeaderboardUpdated, LeaderboardUpdatedData{Type: string(game), View: ViewHighScores, Leaderboard: entries})
}

// NewGameStatsEvent creates a game_stats.updated event.
func NewGameStatsEvent(stats domain.GlobalGameStats) Event {
	return newEvent(EventGameStatsUpdated, GameStatsUpdatedData{GameStats: stats})
}

// NewHeartbeatEvent creates a keepalive event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, nil)
}
