package service

import (
	"context"
	"log/slog"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

// MintInput is the body of POST /players/me/mint.
type MintInput struct {
	Points int64 `json:"points" validate:"gt=0"`
}

// MintResult reports the new balances after a mint.
type MintResult struct {
	User         *domain.PlayerSummary `json:"user"`
	MintedPoints int64                 `json:"mintedPoints"`
	OracleAmount string                `json:"oracleAmount"`
}

// MintService converts available points into the minted ORC balance.
type MintService struct {
	store     store.Store
	validator *validation.Validator
	publisher realtime.Publisher
	logger    *slog.Logger
}

// NewMintService creates a new mint service. publisher may be nil.
func NewMintService(store store.Store, validator *validation.Validator, publisher realtime.Publisher, logger *slog.Logger) *MintService {
	if publisher == nil {
		publisher = realtime.NoopPublisher{}
	}
	return &MintService{
		store:     store,
		validator: validator,
		publisher: publisher,
		logger:    logger,
	}
}

// Mint moves points from the caller's available balance to minted. The
// store applies it as one conditional update so minted never exceeds total.
func (s *MintService) Mint(ctx context.Context, identity domain.Identity, input MintInput) (*MintResult, error) {
	if identity.Anonymous() {
		return nil, errors.Unauthorized("Authentication required")
	}
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	player, err := s.store.ApplyMint(ctx, identity.UserID, input.Points)
	switch {
	case errors.Is(err, store.ErrInsufficientPoints):
		return nil, errors.InvalidInputf("Insufficient available points to mint %d", input.Points)
	case errors.Is(err, store.ErrNotFound):
		return nil, errors.NotFound("User not found")
	case err != nil:
		return nil, errors.Persistence(err, "Failed to mint points")
	}

	summary := player.Summary()
	s.publisher.Publish(realtime.ToUser(identity, realtime.NewUserUpdatedEvent(summary, nil)))

	s.logger.Info("points minted",
		"user_id", identity.UserID,
		"points", input.Points,
		"minted_total", player.MintedPoints)

	return &MintResult{
		User:         summary,
		MintedPoints: input.Points,
		OracleAmount: domain.OracleBalance(input.Points).StringFixed(2),
	}, nil
}
