package api

import (
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/auth"
	"github.com/bitcoinworld/arcade-server/internal/logger"
	"github.com/bitcoinworld/arcade-server/internal/realtime"
	"github.com/bitcoinworld/arcade-server/internal/service"
	"github.com/bitcoinworld/arcade-server/internal/store/sqlite"
	"github.com/bitcoinworld/arcade-server/internal/validation"
)

const (
	walletA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	walletB = "0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"
	// walletAdmin is configured as an admin wallet in setupTestServer.
	walletAdmin = "0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB"
)

type testServer struct {
	server  *Server
	api     humatest.TestAPI
	store   *sqlite.Store
	manager *realtime.Manager
}

// errorBody is the error response shape.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Discard()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "arcade.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	manager := realtime.NewManager(log, realtime.Options{HeartbeatInterval: time.Minute})
	go manager.Start(ctx)
	t.Cleanup(func() {
		cancel()
		_ = manager.Shutdown(context.Background())
	})

	// Use a test key (32 bytes as hex = 64 hex chars)
	tokens, err := auth.NewTokenService(strings.Repeat("0123456789abcdef", 4), 15*time.Minute)
	require.NoError(t, err)

	validator := validation.New()
	authService, err := service.NewAuthService(s, tokens, validator, nil, []string{strings.ToLower(walletAdmin)}, log)
	require.NoError(t, err)

	stats := service.NewStatsService(s, log)
	leaderboards := service.NewLeaderboardService(s, log)
	services := &Services{
		Auth:         authService,
		Scores:       service.NewScoreService(s, stats, leaderboards, validator, service.ScoreServiceOptions{Publisher: manager}, log),
		Stats:        stats,
		Leaderboards: leaderboards,
		Mint:         service.NewMintService(s, validator, manager, log),
		Rebuild:      service.NewRebuildService(s, log),
	}

	server := NewServer(services, s, manager, Options{CORSOrigins: []string{"*"}, EnableWebSocket: true}, log)

	return &testServer{
		server:  server,
		api:     humatest.Wrap(t, server.API()),
		store:   s,
		manager: manager,
	}
}

// login returns an Authorization header for the wallet.
func (ts *testServer) login(t *testing.T, wallet string) string {
	t.Helper()
	resp := ts.api.Post("/api/auth/login", map[string]any{"walletAddress": wallet})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var result service.LoginResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	return "Authorization: Bearer " + result.Token
}

func (ts *testServer) submit(t *testing.T, authHeader, game string, score int64) service.SubmitResult {
	t.Helper()
	resp := ts.api.Post("/api/scores/submit", authHeader, map[string]any{
		"gameType": game,
		"score":    score,
		"points":   score * 10,
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	return decode[service.SubmitResult](t, resp.Body.Bytes())
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/health")
	require.Equal(t, http.StatusOK, resp.Code)

	health := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.NotEmpty(t, health.Components["database"].Latency)
	assert.Equal(t, "healthy", health.Components["realtime"].Status)
}

func TestListGames(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/games")
	require.Equal(t, http.StatusOK, resp.Code)

	body := decode[map[string][]map[string]any](t, resp.Body.Bytes())
	require.Len(t, body["games"], 4)
	assert.Equal(t, "snake", body["games"][0]["id"])
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.1:1234", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.1:1234", "198.51.100.2"},
		{"remote addr", nil, "192.0.2.9:5555", "192.0.2.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := http.NewRequest(http.MethodGet, "/", http.NoBody)
			require.NoError(t, err)
			r.RemoteAddr = tt.remote
			for k, v := range tt.header {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func timeout() <-chan time.Time {
	return time.After(2 * time.Second)
}
