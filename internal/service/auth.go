package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/domain"
	"github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/id"
	"github.com/bitcoinworld/arcade-server/internal/ratelimit"
	"github.com/bitcoinworld/arcade-server/internal/store"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

// walletCacheSize bounds the wallet to player id cache.
const walletCacheSize = 4096

// LoginInput is the body of POST /auth/login.
type LoginInput struct {
	WalletAddress string `json:"walletAddress" validate:"required,wallet"`

	// ClientKey identifies the caller for throttling, usually the remote IP.
	ClientKey string `json:"-"`
}

// LoginResult carries the issued token and the caller's summary.
type LoginResult struct {
	Token     string                `json:"token"`
	ExpiresAt time.Time             `json:"expiresAt"`
	User      *domain.PlayerSummary `json:"user"`
	Created   bool                  `json:"created"`
}

// AuthService handles wallet login and token verification. A wallet's
// player is created on its first login.
type AuthService struct {
	store     store.Store
	tokens    *auth.TokenService
	validator *validation.Validator
	limiter   *ratelimit.KeyedRateLimiter
	admins    map[string]struct{}
	wallets   *lru.Cache
	logger    *slog.Logger
}

// NewAuthService creates a new authentication service. limiter may be nil.
func NewAuthService(
	store store.Store,
	tokens *auth.TokenService,
	validator *validation.Validator,
	limiter *ratelimit.KeyedRateLimiter,
	adminWallets []string,
	logger *slog.Logger,
) (*AuthService, error) {
	cache, err := lru.New(walletCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create wallet cache: %w", err)
	}

	admins := make(map[string]struct{}, len(adminWallets))
	for _, w := range adminWallets {
		admins[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}

	return &AuthService{
		store:     store,
		tokens:    tokens,
		validator: validator,
		limiter:   limiter,
		admins:    admins,
		wallets:   cache,
		logger:    logger,
	}, nil
}

// Login resolves the wallet's player, creating it with zero counters on
// first login, and issues an access token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}
	if !s.limiter.Allow(input.ClientKey) {
		return nil, errors.RateLimited("Too many login attempts, try again later")
	}

	wallet, err := auth.NormalizeWalletAddress(input.WalletAddress)
	if err != nil {
		return nil, err
	}

	player, created, err := s.getOrCreatePlayer(ctx, wallet)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(player)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "failed to issue token")
	}

	s.logger.Info("wallet login",
		"user_id", player.ID,
		"wallet", player.WalletAddress,
		"created", created)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      player.Summary(),
		Created:   created,
	}, nil
}

func (s *AuthService) getOrCreatePlayer(ctx context.Context, wallet string) (*domain.Player, bool, error) {
	if v, ok := s.wallets.Get(wallet); ok {
		player, err := s.store.GetPlayer(ctx, v.(string))
		if err == nil {
			return player, false, nil
		}
		s.wallets.Remove(wallet)
		if !errors.Is(err, store.ErrNotFound) {
			return nil, false, fmt.Errorf("get player: %w", err)
		}
	}

	player, err := s.store.GetPlayerByWallet(ctx, wallet)
	if err == nil {
		s.wallets.Add(wallet, player.ID)
		return player, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("get player by wallet: %w", err)
	}

	playerID, err := id.Generate(id.PrefixPlayer)
	if err != nil {
		return nil, false, fmt.Errorf("generate player ID: %w", err)
	}
	player = domain.NewPlayer(playerID, wallet, time.Now().UTC())

	if err := s.store.CreatePlayer(ctx, player); err != nil {
		if !errors.Is(err, store.ErrAlreadyExists) {
			return nil, false, errors.Persistence(err, "Failed to create player")
		}
		// Lost a race with a concurrent first login.
		player, err = s.store.GetPlayerByWallet(ctx, wallet)
		if err != nil {
			return nil, false, fmt.Errorf("get player by wallet: %w", err)
		}
		s.wallets.Add(wallet, player.ID)
		return player, false, nil
	}

	s.wallets.Add(wallet, player.ID)
	return player, true, nil
}

// Authenticate verifies a bearer token and returns the caller's identity.
func (s *AuthService) Authenticate(token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, errors.Unauthorized("Authentication required")
	}
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return domain.Identity{}, errors.Unauthorized("Invalid or expired token").WithCause(err)
	}
	return domain.Identity{UserID: claims.UserID, WalletAddress: claims.WalletAddress}, nil
}

// Verify checks a token and returns the current summary of its player.
func (s *AuthService) Verify(ctx context.Context, token string) (*domain.PlayerSummary, error) {
	identity, err := s.Authenticate(token)
	if err != nil {
		return nil, err
	}
	player, err := s.store.GetPlayer(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errors.Unauthorized("User no longer exists")
		}
		return nil, fmt.Errorf("get player: %w", err)
	}
	return player.Summary(), nil
}

// IsAdmin reports whether the wallet is configured as an administrator.
func (s *AuthService) IsAdmin(wallet string) bool {
	_, ok := s.admins[strings.ToLower(wallet)]
	return ok
}
