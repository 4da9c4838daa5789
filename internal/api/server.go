// Package api exposes the arcade HTTP surface: wallet login, score
// submission, leaderboards, stats and the realtime streams.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bitcoinworld/arcade-server/internal/realtime"
	"github.com/bitcoinworld/arcade-server/internal/service"
)

// Services bundles the business services the handlers call into.
type Services struct {
	Auth         *service.AuthService
	Scores       *service.ScoreService
	Stats        *service.StatsService
	Leaderboards *service.LeaderboardService
	Mint         *service.MintService
	Rebuild      *service.RebuildService
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options tunes the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed browser origins. "*" allows any.
	CORSOrigins []string

	// EnableWebSocket mounts /api/realtime/ws next to the SSE stream.
	EnableWebSocket bool
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services *Services
	db       Pinger
	realtime *realtime.Manager
	opts     Options
	router   *chi.Mux
	api      huma.API
	logger   *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, db Pinger, manager *realtime.Manager, opts Options, logger *slog.Logger) *Server {
	router := chi.NewRouter()

	s := &Server{
		services: services,
		db:       db,
		realtime: manager,
		opts:     opts,
		router:   router,
		logger:   logger,
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(s.requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: !slices.Contains(opts.CORSOrigins, "*"),
		MaxAge:           300,
	}))
	router.Use(authMiddleware(services.Auth))

	humaConfig := huma.DefaultConfig("Arcade API", "1.0.0")
	humaConfig.Info.Description = "Score submission, leaderboards and realtime updates for the arcade"
	// Response bodies stay exactly as documented, without $schema links.
	humaConfig.CreateHooks = nil
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	s.api = humachi.New(router, humaConfig)

	RegisterErrorHandler()
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerGameRoutes()
	s.registerScoreRoutes()
	s.registerLeaderboardRoutes()
	s.registerPlayerRoutes()
	s.registerRealtimeRoutes()
}

// registerRealtimeRoutes mounts the streaming endpoints directly on chi.
// They hold the connection open, which huma operations do not model.
func (s *Server) registerRealtimeRoutes() {
	authenticate := streamAuthenticator(s.services.Auth)

	s.router.Method(http.MethodGet, "/api/realtime/stream",
		realtime.NewSSEHandler(s.realtime, authenticate, s.logger))

	if s.opts.EnableWebSocket {
		s.router.Method(http.MethodGet, "/api/realtime/ws",
			realtime.NewWSHandler(s.realtime, authenticate, s.checkOrigin, s.logger))
	}
}

// checkOrigin applies the CORS allow list to WebSocket upgrades.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || slices.Contains(s.opts.CORSOrigins, "*") {
		return true
	}
	return slices.Contains(s.opts.CORSOrigins, origin)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, used to render the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}
