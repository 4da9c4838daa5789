package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/bitcoinworld/arcade-server/internal/domain"
	domainerrors "github.com/bitcoinworld/arcade-server/internal/errors"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

const (
	identityKey ctxKey = "identity"
	clientIPKey ctxKey = "clientIP"
)

// GetIdentity returns the authenticated caller from context.
// Returns a 401 error if the request carried no valid token.
func GetIdentity(ctx context.Context) (domain.Identity, error) {
	identity, ok := ctx.Value(identityKey).(domain.Identity)
	if !ok || identity.Anonymous() {
		return domain.Identity{}, domainerrors.Unauthorized("Authentication required")
	}
	return identity, nil
}

func getClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}

// authMiddleware validates Bearer tokens and stores the identity in context.
// If no token is present or it is invalid, the request continues anonymously;
// handlers use GetIdentity to reject it when authentication is required.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey, getClientIP(r))

			if token := bearerToken(r); token != "" {
				if identity, err := auth.Authenticate(token); err == nil {
					ctx = context.WithValue(ctx, identityKey, identity)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// streamAuthenticator resolves identities for the realtime transports.
// Browsers cannot set headers on EventSource, so a token query parameter
// is accepted as well. No token means an anonymous viewer.
func streamAuthenticator(auth *service.AuthService) func(r *http.Request) (domain.Identity, error) {
	return func(r *http.Request) (domain.Identity, error) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			return domain.Identity{}, nil
		}
		return auth.Authenticate(token)
	}
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAdmin validates the caller is authenticated with an admin wallet.
func (s *Server) RequireAdmin(ctx context.Context) (domain.Identity, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if !s.services.Auth.IsAdmin(identity.WalletAddress) {
		return domain.Identity{}, domainerrors.Forbidden("Admin access required")
	}
	return identity, nil
}
