package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development"},
		Logger: LoggerConfig{Level: "info"},
		Store:  StoreConfig{Driver: DriverSQLite, SQLitePath: "/tmp/arcade.db"},
		Auth:   AuthConfig{AccessTokenDuration: time.Hour},
		Scores: ScoresConfig{
			IdempotencyStrategy: IdempotencyNone,
			SubmitRatePerSecond: 5,
			SubmitBurst:         10,
			LeaderboardSize:     10,
		},
		Realtime: RealtimeConfig{HeartbeatInterval: time.Second, ClientBuffer: 10},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"unknown log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"unknown store driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"mongo without uri", func(c *Config) { c.Store.Driver = DriverMongo; c.Store.MongoDatabase = "arcade" }},
		{"unknown idempotency strategy", func(c *Config) { c.Scores.IdempotencyStrategy = "hash" }},
		{"token idempotency without ttl", func(c *Config) { c.Scores.IdempotencyStrategy = IdempotencyToken }},
		{"leaderboard size zero", func(c *Config) { c.Scores.LeaderboardSize = 0 }},
		{"leaderboard size too large", func(c *Config) { c.Scores.LeaderboardSize = 101 }},
		{"rate limit without burst", func(c *Config) { c.Scores.SubmitBurst = 0 }},
		{"zero client buffer", func(c *Config) { c.Realtime.ClientBuffer = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig([]string{"-env-file", filepath.Join(dir, "missing.env"), "-data-dir", dir})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "arcade.db"), cfg.Store.SQLitePath)
	assert.Equal(t, filepath.Join(dir, "token.key"), cfg.Auth.TokenKeyPath)
	assert.Equal(t, IdempotencyNone, cfg.Scores.IdempotencyStrategy)
	assert.Equal(t, 10, cfg.Scores.LeaderboardSize)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.Realtime.HeartbeatInterval)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "arcade.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[server]
port = "7000"

[scores]
leaderboard_size = 25
idempotency = "token"

[auth]
admin_wallets = ["0xabc", "0xdef"]
`), 0o600))

	envPath := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("# comment\nSCORES_LEADERBOARD_SIZE=30\n"), 0o600))
	// registers restore of the variable the .env file will set
	t.Setenv("SCORES_LEADERBOARD_SIZE", "")

	t.Setenv("SERVER_PORT", "8000")

	cfg, err := LoadConfig([]string{
		"-config", tomlPath,
		"-env-file", envPath,
		"-data-dir", dir,
		"-port", "9000",
	})
	require.NoError(t, err)

	// flag beats env beats file
	assert.Equal(t, "9000", cfg.Server.Port)
	// .env beats file
	assert.Equal(t, 30, cfg.Scores.LeaderboardSize)
	// file beats default
	assert.Equal(t, IdempotencyToken, cfg.Scores.IdempotencyStrategy)
	assert.Equal(t, []string{"0xabc", "0xdef"}, cfg.Auth.AdminWallets)
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := LoadConfig([]string{"-env-file", filepath.Join(dir, "none.env"), "-data-dir", dir})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVER_READ_TIMEOUT")
}

func TestLoadEnvFile_DoesNotOverrideExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("ARCADE_TEST_KEY='from-file'\n"), 0o600))
	t.Setenv("ARCADE_TEST_KEY", "from-env")

	require.NoError(t, loadEnvFile(path))
	assert.Equal(t, "from-env", os.Getenv("ARCADE_TEST_KEY"))
}

func TestLoadEnvFile_InvalidLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_PAIR\n"), 0o600))

	assert.Error(t, loadEnvFile(path))
}
