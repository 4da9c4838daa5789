package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bitcoinworld/arcade-server/internal/domain"
)

func (s *Server) registerGameRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listGames",
		Method:      http.MethodGet,
		Path:        "/api/games",
		Summary:     "List games",
		Description: "Returns the game catalog with availability and points per item",
		Tags:        []string{"Games"},
	}, s.handleListGames)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPersonalHighScore",
		Method:      http.MethodGet,
		Path:        "/api/games/{gameType}/highscore",
		Summary:     "Get personal high score",
		Description: "Returns the caller's best score in one game, 0 when never played",
		Tags:        []string{"Games"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePersonalHighScore)
}

// GamesResponse lists the catalog.
type GamesResponse struct {
	Games []domain.Game `json:"games" doc:"Games in display order"`
}

// GamesOutput wraps the catalog for Huma.
type GamesOutput struct {
	Body GamesResponse
}

// GameTypeInput carries a game type path parameter.
type GameTypeInput struct {
	GameType string `path:"gameType" doc:"Game type" example:"snake"`
}

// PersonalHighScoreResponse is the caller's best score in one game.
type PersonalHighScoreResponse struct {
	GameType  domain.GameType `json:"gameType" doc:"Game type"`
	HighScore int64           `json:"highScore" doc:"Best score, 0 when never played"`
}

// PersonalHighScoreOutput wraps the high score for Huma.
type PersonalHighScoreOutput struct {
	Body PersonalHighScoreResponse
}

func (s *Server) handleListGames(_ context.Context, _ *struct{}) (*GamesOutput, error) {
	return &GamesOutput{Body: GamesResponse{Games: domain.Catalog()}}, nil
}

func (s *Server) handlePersonalHighScore(ctx context.Context, input *GameTypeInput) (*PersonalHighScoreOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	game := domain.GameType(input.GameType)
	best, err := s.services.Stats.PersonalHighScore(ctx, identity.UserID, game)
	if err != nil {
		return nil, err
	}
	return &PersonalHighScoreOutput{Body: PersonalHighScoreResponse{GameType: game, HighScore: best}}, nil
}
