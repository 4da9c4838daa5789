package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bitcoinworld/arcade-server/internal/domain"
)

func (s *Server) registerLeaderboardRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getOverallLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/leaderboard/overall",
		Summary:     "Overall leaderboard",
		Description: "Ranks players by lifetime points",
		Tags:        []string{"Leaderboard"},
	}, s.handleOverallLeaderboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGameLeaderboard",
		Method:      http.MethodGet,
		Path:        "/api/leaderboard/game/{gameType}",
		Summary:     "Game leaderboard",
		Description: "Ranks every record of one game by score",
		Tags:        []string{"Leaderboard"},
	}, s.handleGameLeaderboard)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGameHighScores",
		Method:      http.MethodGet,
		Path:        "/api/leaderboard/game/{gameType}/highscores",
		Summary:     "Game high scores",
		Description: "Ranks wallets by their best score in one game",
		Tags:        []string{"Leaderboard"},
	}, s.handleGameHighScores)

	huma.Register(s.api, huma.Operation{
		OperationID: "getGameStats",
		Method:      http.MethodGet,
		Path:        "/api/leaderboard/game-stats",
		Summary:     "Global game stats",
		Description: "Returns the top record of every game",
		Tags:        []string{"Leaderboard"},
	}, s.handleGameStats)
}

// OverallLeaderboardInput carries paging for the overall ranking.
type OverallLeaderboardInput struct {
	PageParams
}

// OverallLeaderboardOutput wraps the overall ranking for Huma.
type OverallLeaderboardOutput struct {
	Body domain.OverallLeaderboard
}

// GameLeaderboardInput carries a game type and paging.
type GameLeaderboardInput struct {
	PageParams
	GameType string `path:"gameType" doc:"Game type" example:"snake"`
}

// GameLeaderboardOutput wraps one game's ranking for Huma.
type GameLeaderboardOutput struct {
	Body domain.GameLeaderboard
}

// HighScoreLeaderboardOutput wraps one game's per-wallet ranking for Huma.
type HighScoreLeaderboardOutput struct {
	Body domain.HighScoreLeaderboard
}

// GameStatsResponse holds the top record per game.
type GameStatsResponse struct {
	GameStats domain.GlobalGameStats `json:"gameStats" doc:"Top record per game"`
}

// GameStatsOutput wraps the global stats for Huma.
type GameStatsOutput struct {
	Body GameStatsResponse
}

func (s *Server) handleOverallLeaderboard(ctx context.Context, input *OverallLeaderboardInput) (*OverallLeaderboardOutput, error) {
	board, err := s.services.Leaderboards.Overall(ctx, input.PageRequest())
	if err != nil {
		return nil, err
	}
	return &OverallLeaderboardOutput{Body: *board}, nil
}

func (s *Server) handleGameLeaderboard(ctx context.Context, input *GameLeaderboardInput) (*GameLeaderboardOutput, error) {
	board, err := s.services.Leaderboards.Game(ctx, domain.GameType(input.GameType), input.PageRequest())
	if err != nil {
		return nil, err
	}
	return &GameLeaderboardOutput{Body: *board}, nil
}

func (s *Server) handleGameHighScores(ctx context.Context, input *GameLeaderboardInput) (*HighScoreLeaderboardOutput, error) {
	board, err := s.services.Leaderboards.GameHighScores(ctx, domain.GameType(input.GameType), input.PageRequest())
	if err != nil {
		return nil, err
	}
	return &HighScoreLeaderboardOutput{Body: *board}, nil
}

func (s *Server) handleGameStats(ctx context.Context, _ *struct{}) (*GameStatsOutput, error) {
	stats, err := s.services.Stats.GlobalGameStats(ctx)
	if err != nil {
		return nil, err
	}
	return &GameStatsOutput{Body: GameStatsResponse{GameStats: stats}}, nil
}
