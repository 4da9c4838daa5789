package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

func (s *Server) registerScoreRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "submitScore",
		Method:      http.MethodPost,
		Path:        "/api/scores/submit",
		Summary:     "Submit score",
		Description: "Records a finished game, updates the player's totals and pushes fresh leaderboards to viewers",
		Tags:        []string{"Scores"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSubmitScore)

	huma.Register(s.api, huma.Operation{
		OperationID: "getScoreHistory",
		Method:      http.MethodGet,
		Path:        "/api/scores/history",
		Summary:     "Get score history",
		Description: "Returns the caller's records, newest first",
		Tags:        []string{"Scores"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleScoreHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "getScoreStats",
		Method:      http.MethodGet,
		Path:        "/api/scores/stats",
		Summary:     "Get score stats",
		Description: "Returns the caller's summary with per-game counts, bests and averages",
		Tags:        []string{"Scores"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleScoreStats)
}

// SubmitScoreRequest is the submission body. Presence checks happen in the
// service so a missing field yields the same error shape as a bad one.
type SubmitScoreRequest struct {
	GameType string         `json:"gameType" required:"false" doc:"Game type" example:"snake"`
	Score    *int64         `json:"score" required:"false" doc:"Raw game score"`
	Points   *int64         `json:"points" required:"false" doc:"Points earned"`
	GameData map[string]any `json:"gameData,omitempty" doc:"Opaque game-specific data"`
}

// SubmitScoreInput wraps the submission for Huma.
type SubmitScoreInput struct {
	IdempotencyKey string `header:"Idempotency-Key" doc:"UUID that makes retries safe"`
	Body           SubmitScoreRequest
}

// SubmitScoreOutput wraps the submission result for Huma.
type SubmitScoreOutput struct {
	Body service.SubmitResult
}

// ScoreHistoryInput carries the history filters.
type ScoreHistoryInput struct {
	PageParams
	GameType string `query:"gameType" doc:"Only list records for this game"`
}

// ScoreHistoryOutput wraps the history page for Huma.
type ScoreHistoryOutput struct {
	Body service.ScoreHistory
}

// ScoreStatsOutput wraps the caller's stats for Huma.
type ScoreStatsOutput struct {
	Body service.UserStats
}

func (s *Server) handleSubmitScore(ctx context.Context, input *SubmitScoreInput) (*SubmitScoreOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Scores.Submit(ctx, identity, service.SubmitScoreInput{
		GameType:       domain.GameType(input.Body.GameType),
		Score:          input.Body.Score,
		Points:         input.Body.Points,
		GameData:       input.Body.GameData,
		IdempotencyKey: input.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}
	return &SubmitScoreOutput{Body: *result}, nil
}

func (s *Server) handleScoreHistory(ctx context.Context, input *ScoreHistoryInput) (*ScoreHistoryOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	history, err := s.services.Scores.History(ctx, identity.UserID, domain.GameType(input.GameType), input.PageRequest())
	if err != nil {
		return nil, err
	}
	return &ScoreHistoryOutput{Body: *history}, nil
}

func (s *Server) handleScoreStats(ctx context.Context, _ *struct{}) (*ScoreStatsOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	stats, err := s.services.Stats.UserStats(ctx, identity.UserID)
	if err != nil {
		return nil, err
	}
	return &ScoreStatsOutput{Body: *stats}, nil
}
