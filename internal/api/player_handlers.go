package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

func (s *Server) registerPlayerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "mintPoints",
		Method:      http.MethodPost,
		Path:        "/api/players/me/mint",
		Summary:     "Mint points",
		Description: "Moves available points into the caller's minted ORC balance",
		Tags:        []string{"Players"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleMint)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildPlayer",
		Method:      http.MethodPost,
		Path:        "/api/admin/players/{userID}/rebuild",
		Summary:     "Rebuild player totals",
		Description: "Recomputes a player's aggregate from their score records (admin only)",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRebuildPlayer)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildAllPlayers",
		Method:      http.MethodPost,
		Path:        "/api/admin/rebuild",
		Summary:     "Rebuild all players",
		Description: "Recomputes every player's aggregate from the score records (admin only)",
		Tags:        []string{"Admin"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRebuildAll)
}

// MintRequest is the mint request body.
type MintRequest struct {
	Points int64 `json:"points" required:"false" doc:"Points to mint" example:"150"`
}

// MintInput wraps the mint request for Huma.
type MintInput struct {
	Body MintRequest
}

// MintOutput wraps the mint result for Huma.
type MintOutput struct {
	Body service.MintResult
}

// RebuildPlayerInput identifies the player to rebuild.
type RebuildPlayerInput struct {
	UserID string `path:"userID" doc:"Player ID"`
}

// RebuildPlayerResponse is the player's summary after the rebuild.
type RebuildPlayerResponse struct {
	User *domain.PlayerSummary `json:"user" doc:"Rebuilt summary"`
}

// RebuildPlayerOutput wraps the rebuilt summary for Huma.
type RebuildPlayerOutput struct {
	Body RebuildPlayerResponse
}

// RebuildAllOutput wraps the rebuild report for Huma.
type RebuildAllOutput struct {
	Body service.RebuildReport
}

func (s *Server) handleMint(ctx context.Context, input *MintInput) (*MintOutput, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Mint.Mint(ctx, identity, service.MintInput{Points: input.Body.Points})
	if err != nil {
		return nil, err
	}
	return &MintOutput{Body: *result}, nil
}

func (s *Server) handleRebuildPlayer(ctx context.Context, input *RebuildPlayerInput) (*RebuildPlayerOutput, error) {
	admin, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Rebuild.RebuildPlayer(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("player rebuilt by admin", "user_id", input.UserID, "admin", admin.WalletAddress)
	return &RebuildPlayerOutput{Body: RebuildPlayerResponse{User: user}}, nil
}

func (s *Server) handleRebuildAll(ctx context.Context, _ *struct{}) (*RebuildAllOutput, error) {
	admin, err := s.RequireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	report, err := s.services.Rebuild.RebuildAll(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.Info("all players rebuilt by admin", "admin", admin.WalletAddress, "players", report.Players, "failed", report.Failed)
	return &RebuildAllOutput{Body: *report}, nil
}
