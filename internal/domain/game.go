package domain

// GameType identifies one of the arcade mini-games. The set is closed.
type GameType string

const (
	GameSnake        GameType = "snake"
	GameFallingFruit GameType = "fallingFruit"
	GameBreakBricks  GameType = "breakBricks"
	GameCarRacing    GameType = "carRacing"
)

var gameTypes = []GameType{GameSnake, GameFallingFruit, GameBreakBricks, GameCarRacing}

// AllGameTypes returns every game type in catalog order.
func AllGameTypes() []GameType {
	out := make([]GameType, len(gameTypes))
	copy(out, gameTypes)
	return out
}

// Valid reports whether g is a member of the closed set.
func (g GameType) Valid() bool {
	switch g {
	case GameSnake, GameFallingFruit, GameBreakBricks, GameCarRacing:
		return true
	default:
		return false
	}
}

// ParseGameType validates s and returns it as a GameType.
func ParseGameType(s string) (GameType, bool) {
	g := GameType(s)
	return g, g.Valid()
}

// GameStatus controls whether clients may start a game.
type GameStatus string

const (
	GameStatusAvailable  GameStatus = "available"
	GameStatusComingSoon GameStatus = "comingSoon"
)

// Game is a catalog entry describing a playable game.
type Game struct {
	ID            GameType   `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Icon          string     `json:"icon"`
	Color         string     `json:"color"`
	Rules         []string   `json:"rules"`
	PointsPerItem int64      `json:"pointsPerItem"`
	Status        GameStatus `json:"status"`
}

// Catalog returns the game catalog in display order.
func Catalog() []Game {
	return []Game{
		{
			ID:            GameSnake,
			Name:          "Snake",
			Description:   "Eat the coins, grow longer, and avoid your own tail.",
			Icon:          "🐍",
			Color:         "from-green-500 to-emerald-600",
			Rules:         []string{"Use the arrow keys to steer", "Each coin eaten is one point of score", "Hitting a wall or yourself ends the run"},
			PointsPerItem: 10,
			Status:        GameStatusAvailable,
		},
		{
			ID:            GameFallingFruit,
			Name:          "Falling Fruit",
			Description:   "Catch the fruit before it hits the ground.",
			Icon:          "🍎",
			Color:         "from-red-500 to-orange-500",
			Rules:         []string{"Move the basket left and right", "Each fruit caught is one point of score", "Three misses end the run"},
			PointsPerItem: 10,
			Status:        GameStatusAvailable,
		},
		{
			ID:            GameBreakBricks,
			Name:          "Break Bricks",
			Description:   "Bounce the ball and clear the wall.",
			Icon:          "🧱",
			Color:         "from-blue-500 to-indigo-600",
			Rules:         []string{"Move the paddle to keep the ball in play", "Each brick broken is one point of score", "Losing every ball ends the run"},
			PointsPerItem: 10,
			Status:        GameStatusAvailable,
		},
		{
			ID:            GameCarRacing,
			Name:          "Car Racing",
			Description:   "Dodge traffic and stay on the road.",
			Icon:          "🏎️",
			Color:         "from-yellow-500 to-amber-600",
			Rules:         []string{"Switch lanes to avoid other cars", "Each car passed is one point of score", "A collision ends the run"},
			PointsPerItem: 10,
			Status:        GameStatusAvailable,
		},
	}
}

// LookupGame returns the catalog entry for g.
func LookupGame(g GameType) (Game, bool) {
	for _, game := range Catalog() {
		if game.ID == g {
			return game, true
		}
	}
	return Game{}, false
}

// counters returns a zero-filled per-game map.
func counters() map[GameType]int64 {
	m := make(map[GameType]int64, len(gameTypes))
	for _, g := range gameTypes {
		m[g] = 0
	}
	return m
}
