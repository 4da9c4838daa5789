package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitcoinworld/arcade-server/internal/service"
)

func TestMint(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t, walletA)
	ts.submit(t, authHeader, "snake", 20)

	resp := ts.api.Post("/api/players/me/mint", authHeader, map[string]any{"points": 150})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	result := decode[service.MintResult](t, resp.Body.Bytes())
	assert.Equal(t, int64(150), result.MintedPoints)
	assert.Equal(t, int64(50), result.User.AvailablePoints)
	assert.Equal(t, int64(200), result.User.TotalPoints)
}

func TestMint_Rejects(t *testing.T) {
	ts := setupTestServer(t)
	authHeader := ts.login(t, walletA)
	ts.submit(t, authHeader, "snake", 1)

	tests := []struct {
		name       string
		args       []any
		wantStatus int
	}{
		{"more than available", []any{authHeader, map[string]any{"points": 11}}, http.StatusBadRequest},
		{"zero points", []any{authHeader, map[string]any{"points": 0}}, http.StatusBadRequest},
		{"negative points", []any{authHeader, map[string]any{"points": -5}}, http.StatusBadRequest},
		{"no token", []any{map[string]any{"points": 1}}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.api.Post("/api/players/me/mint", tt.args...)
			assert.Equal(t, tt.wantStatus, resp.Code)
		})
	}
}

func TestRebuildPlayer_AdminOnly(t *testing.T) {
	ts := setupTestServer(t)
	player := ts.login(t, walletA)
	admin := ts.login(t, walletAdmin)
	ts.submit(t, player, "snake", 4)

	stored, err := ts.store.GetPlayerByWallet(context.Background(), walletA)
	require.NoError(t, err)
	path := "/api/admin/players/" + stored.ID + "/rebuild"

	resp := ts.api.Post(path, player)
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "FORBIDDEN", decode[errorBody](t, resp.Body.Bytes()).Code)

	resp = ts.api.Post(path)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = ts.api.Post(path, admin)
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	body := decode[RebuildPlayerResponse](t, resp.Body.Bytes())
	assert.Equal(t, int64(40), body.User.TotalPoints)

	resp = ts.api.Post("/api/admin/players/missing/rebuild", admin)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestRebuildAll(t *testing.T) {
	ts := setupTestServer(t)
	player := ts.login(t, walletA)
	admin := ts.login(t, walletAdmin)
	ts.submit(t, player, "snake", 4)

	resp := ts.api.Post("/api/admin/rebuild", player)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	resp = ts.api.Post("/api/admin/rebuild", admin)
	require.Equal(t, http.StatusOK, resp.Code)
	report := decode[service.RebuildReport](t, resp.Body.Bytes())
	assert.Equal(t, 2, report.Players)
	assert.Equal(t, 2, report.Rebuilt)
	assert.Empty(t, report.Failed)
}
