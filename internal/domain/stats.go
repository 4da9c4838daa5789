package domain

import "time"

// UserGameStat summarizes one user's records for one game.
type UserGameStat struct {
	TotalGames   int64   `json:"totalGames"`
	HighScore    int64   `json:"highScore"`
	TotalPoints  int64   `json:"totalPoints"`
	AverageScore float64 `json:"averageScore"`
}

// NewUserGameStat derives the mean from the count and score sum. Zero games give a zero mean.
func NewUserGameStat(count, highScore, points, scoreSum int64) UserGameStat {
	stat := UserGameStat{TotalGames: count, HighScore: highScore, TotalPoints: points}
	if count > 0 {
		stat.AverageScore = float64(scoreSum) / float64(count)
	}
	return stat
}

// GameAggregate is the grouped result the store returns per game for one user.
type GameAggregate struct {
	GameType  GameType
	Count     int64
	HighScore int64
	Points    int64
	ScoreSum  int64
}

// UserGameStats is keyed by every GameType.
type UserGameStats map[GameType]UserGameStat

// BuildUserGameStats fills a stats map from grouped aggregates, zero for missing games.
func BuildUserGameStats(aggs []GameAggregate) UserGameStats {
	stats := make(UserGameStats, len(gameTypes))
	for _, g := range gameTypes {
		stats[g] = UserGameStat{}
	}
	for _, a := range aggs {
		if !a.GameType.Valid() {
			continue
		}
		stats[a.GameType] = NewUserGameStat(a.Count, a.HighScore, a.Points, a.ScoreSum)
	}
	return stats
}

// GlobalGameStat is the single best record of one game across all users.
type GlobalGameStat struct {
	HighestScore  int64      `json:"highestScore"`
	WalletAddress *string    `json:"walletAddress"`
	Points        int64      `json:"points"`
	PlayedAt      *time.Time `json:"playedAt"`
}

// GlobalGameStats is keyed by every GameType.
type GlobalGameStats map[GameType]GlobalGameStat

// GlobalStatFromRecord builds the stat for a top record, or the zero placeholder for nil.
func GlobalStatFromRecord(rec *ScoreRecord) GlobalGameStat {
	if rec == nil {
		return GlobalGameStat{}
	}
	wallet := rec.WalletAddress
	playedAt := rec.PlayedAt
	return GlobalGameStat{
		HighestScore:  rec.Score,
		WalletAddress: &wallet,
		Points:        rec.Points,
		PlayedAt:      &playedAt,
	}
}
