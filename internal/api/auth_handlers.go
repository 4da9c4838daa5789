package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/auth/login",
		Summary:     "Log in with a wallet",
		Description: "Issues an access token for the wallet, creating its player on first login",
		Tags:        []string{"Auth"},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyToken",
		Method:      http.MethodGet,
		Path:        "/api/auth/verify",
		Summary:     "Verify token",
		Description: "Validates the bearer token and returns the caller's summary",
		Tags:        []string{"Auth"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVerify)
}

// LoginRequest is the login request body.
type LoginRequest struct {
	WalletAddress string `json:"walletAddress" required:"false" doc:"Ethereum wallet address" example:"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// LoginOutput wraps the login response for Huma.
type LoginOutput struct {
	Body service.LoginResult
}

// VerifyInput carries the raw Authorization header.
type VerifyInput struct {
	Authorization string `header:"Authorization" doc:"Bearer token"`
}

// VerifyResponse reports a valid token's owner.
type VerifyResponse struct {
	Valid bool                  `json:"valid" doc:"Always true on success"`
	User  *domain.PlayerSummary `json:"user" doc:"Token owner"`
}

// VerifyOutput wraps the verify response for Huma.
type VerifyOutput struct {
	Body VerifyResponse
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	result, err := s.services.Auth.Login(ctx, service.LoginInput{
		WalletAddress: input.Body.WalletAddress,
		ClientKey:     getClientIPFromContext(ctx),
	})
	if err != nil {
		return nil, err
	}
	return &LoginOutput{Body: *result}, nil
}

func (s *Server) handleVerify(ctx context.Context, input *VerifyInput) (*VerifyOutput, error) {
	token := ""
	if scheme, rest, ok := strings.Cut(input.Authorization, " "); ok && strings.EqualFold(scheme, "Bearer") {
		token = strings.TrimSpace(rest)
	}

	user, err := s.services.Auth.Verify(ctx, token)
	if err != nil {
		return nil, err
	}
	return &VerifyOutput{Body: VerifyResponse{Valid: true, User: user}}, nil
}
