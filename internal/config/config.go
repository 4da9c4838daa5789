// Package config loads server configuration from command-line flags,
// environment variables, a .env file and an optional TOML file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Idempotency strategies for score submission.
const (
	IdempotencyNone  = "none"
	IdempotencyToken = "token"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	Store    StoreConfig
	Auth     AuthConfig
	Scores   ScoresConfig
	Realtime RealtimeConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	DataDir     string // base directory for the sqlite db, token key and idempotency ledger
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json, pretty, or empty for auto
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string
	SQLitePath    string
	MongoURI      string
	MongoDatabase string
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	TokenKeyPath        string
	AccessTokenDuration time.Duration
	AdminWallets        []string
	LoginRatePerMinute  int
}

// ScoresConfig tunes the submission pipeline.
type ScoresConfig struct {
	IdempotencyStrategy string
	IdempotencyTTL      time.Duration
	IdempotencyPath     string // empty keeps the ledger in memory
	SubmitRatePerSecond float64
	SubmitBurst         int
	LeaderboardSize     int
}

// RealtimeConfig tunes the live update channel.
type RealtimeConfig struct {
	HeartbeatInterval time.Duration
	ClientBuffer      int
	EnableWebSocket   bool
}

// source resolves one setting with precedence flag > env (incl. .env) > file > default.
type source struct {
	flags map[string]string
	file  map[string]string
	err   error
}

func (s *source) str(flagName, envKey, def string) string {
	if v := s.flags[flagName]; v != "" {
		return v
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	if v := s.file[envKey]; v != "" {
		return v
	}
	return def
}

func (s *source) boolean(flagName, envKey string, def bool) bool {
	v := strings.ToLower(s.str(flagName, envKey, ""))
	if v == "" {
		return def
	}
	return v == "true" || v == "1" || v == "yes"
}

func (s *source) integer(flagName, envKey string, def int) int {
	v := s.str(flagName, envKey, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		s.fail(fmt.Errorf("invalid %s %q: %w", envKey, v, err))
		return def
	}
	return n
}

func (s *source) float(flagName, envKey string, def float64) float64 {
	v := s.str(flagName, envKey, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		s.fail(fmt.Errorf("invalid %s %q: %w", envKey, v, err))
		return def
	}
	return f
}

func (s *source) duration(flagName, envKey, def string) time.Duration {
	v := s.str(flagName, envKey, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		s.fail(fmt.Errorf("invalid %s %q: %w", envKey, v, err))
	}
	return d
}

func (s *source) list(flagName, envKey, def string) []string {
	var out []string
	for item := range strings.SplitSeq(s.str(flagName, envKey, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (s *source) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// LoadConfig parses args (normally os.Args[1:]) and builds the configuration.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("arcade-server", flag.ContinueOnError)

	names := []string{
		"env", "log-level", "log-format", "data-dir",
		"port", "read-timeout", "write-timeout", "idle-timeout", "cors-origins",
		"store", "sqlite-path", "mongo-uri", "mongo-db",
		"token-key-path", "access-token-duration", "admin-wallets",
		"idempotency", "idempotency-ttl", "submit-rate", "submit-burst", "leaderboard-size",
		"heartbeat", "client-buffer", "websocket",
	}
	values := make(map[string]*string, len(names))
	for _, name := range names {
		values[name] = fs.String(name, "", name)
	}
	envFile := fs.String("env-file", ".env", "Path to .env file")
	configFile := fs.String("config", "", "Path to TOML config file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is normal.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	src := &source{flags: make(map[string]string, len(values))}
	for name, v := range values {
		src.flags[name] = *v
	}

	path := *configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		file, err := loadTOMLFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		src.file = file
	}

	cfg := &Config{
		App: AppConfig{
			Environment: src.str("env", "ENV", "development"),
			DataDir:     src.str("data-dir", "DATA_DIR", ""),
		},
		Logger: LoggerConfig{
			Level:  src.str("log-level", "LOG_LEVEL", "info"),
			Format: src.str("log-format", "LOG_FORMAT", ""),
		},
		Server: ServerConfig{
			Port:         src.str("port", "SERVER_PORT", "3001"),
			ReadTimeout:  src.duration("read-timeout", "SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: src.duration("write-timeout", "SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  src.duration("idle-timeout", "SERVER_IDLE_TIMEOUT", "60s"),
			CORSOrigins:  src.list("cors-origins", "CORS_ORIGINS", "*"),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(src.str("store", "STORE_DRIVER", DriverSQLite)),
			SQLitePath:    src.str("sqlite-path", "STORE_SQLITE_PATH", ""),
			MongoURI:      src.str("mongo-uri", "STORE_MONGO_URI", "mongodb://localhost:27017"),
			MongoDatabase: src.str("mongo-db", "STORE_MONGO_DATABASE", "arcade"),
		},
		Auth: AuthConfig{
			TokenKeyPath:        src.str("token-key-path", "AUTH_TOKEN_KEY_PATH", ""),
			AccessTokenDuration: src.duration("access-token-duration", "AUTH_ACCESS_TOKEN_DURATION", "168h"),
			AdminWallets:        src.list("admin-wallets", "AUTH_ADMIN_WALLETS", ""),
			LoginRatePerMinute:  src.integer("", "AUTH_LOGIN_RATE_PER_MINUTE", 20),
		},
		Scores: ScoresConfig{
			IdempotencyStrategy: strings.ToLower(src.str("idempotency", "SCORES_IDEMPOTENCY", IdempotencyNone)),
			IdempotencyTTL:      src.duration("idempotency-ttl", "SCORES_IDEMPOTENCY_TTL", "24h"),
			IdempotencyPath:     src.str("", "SCORES_IDEMPOTENCY_PATH", ""),
			SubmitRatePerSecond: src.float("submit-rate", "SCORES_SUBMIT_RATE", 5),
			SubmitBurst:         src.integer("submit-burst", "SCORES_SUBMIT_BURST", 10),
			LeaderboardSize:     src.integer("leaderboard-size", "SCORES_LEADERBOARD_SIZE", 10),
		},
		Realtime: RealtimeConfig{
			HeartbeatInterval: src.duration("heartbeat", "REALTIME_HEARTBEAT", "30s"),
			ClientBuffer:      src.integer("client-buffer", "REALTIME_CLIENT_BUFFER", 100),
			EnableWebSocket:   src.boolean("websocket", "REALTIME_WEBSOCKET", true),
		},
	}
	if src.err != nil {
		return nil, src.err
	}

	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks that config values are present and in range.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level)
	}

	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite path cannot be empty")
		}
	case DriverMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errors.New("mongo store requires STORE_MONGO_URI and STORE_MONGO_DATABASE")
		}
	default:
		return fmt.Errorf("invalid store driver: %q (must be sqlite or mongo)", c.Store.Driver)
	}

	switch c.Scores.IdempotencyStrategy {
	case IdempotencyNone, IdempotencyToken:
	default:
		return fmt.Errorf("invalid idempotency strategy: %q (must be none or token)", c.Scores.IdempotencyStrategy)
	}
	if c.Scores.IdempotencyStrategy == IdempotencyToken && c.Scores.IdempotencyTTL <= 0 {
		return errors.New("idempotency ttl must be positive")
	}

	if c.Scores.LeaderboardSize < 1 || c.Scores.LeaderboardSize > 100 {
		return fmt.Errorf("leaderboard size must be between 1 and 100, got %d", c.Scores.LeaderboardSize)
	}
	if c.Scores.SubmitRatePerSecond > 0 && c.Scores.SubmitBurst < 1 {
		return errors.New("submit burst must be at least 1 when rate limiting is enabled")
	}

	if c.Auth.AccessTokenDuration <= 0 {
		return errors.New("access token duration must be positive")
	}
	if c.Realtime.ClientBuffer < 1 {
		return errors.New("realtime client buffer must be at least 1")
	}
	if c.Realtime.HeartbeatInterval <= 0 {
		return errors.New("realtime heartbeat must be positive")
	}
	return nil
}

// expandPaths resolves DataDir and the file paths that default into it.
func (c *Config) expandPaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	dataDir, err := expandPath(c.App.DataDir, filepath.Join(home, ".arcade"))
	if err != nil {
		return fmt.Errorf("invalid data dir: %w", err)
	}
	c.App.DataDir = dataDir

	if c.Store.SQLitePath, err = expandPath(c.Store.SQLitePath, filepath.Join(dataDir, "arcade.db")); err != nil {
		return fmt.Errorf("invalid sqlite path: %w", err)
	}
	if c.Auth.TokenKeyPath, err = expandPath(c.Auth.TokenKeyPath, filepath.Join(dataDir, "token.key")); err != nil {
		return fmt.Errorf("invalid token key path: %w", err)
	}
	if c.Scores.IdempotencyPath, err = expandPath(c.Scores.IdempotencyPath, ""); err != nil {
		return fmt.Errorf("invalid idempotency path: %w", err)
	}
	return nil
}

// expandPath expands ~ and makes path absolute. Empty path yields defaultPath.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("get absolute path: %w", err)
	}
	return filepath.Clean(abs), nil
}

// loadTOMLFile reads a TOML file and flattens it to ENV-style keys, so
// [store] driver = "mongo" becomes STORE_DRIVER=mongo.
func loadTOMLFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- operator supplied config path
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make(map[string]string)
	flatten("", doc, out)
	return out, nil
}

func flatten(prefix string, doc map[string]any, out map[string]string) {
	for k, v := range doc {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch val := v.(type) {
		case map[string]any:
			flatten(key, val, out)
		case []any:
			parts := make([]string, 0, len(val))
			for _, item := range val {
				parts = append(parts, fmt.Sprint(item))
			}
			out[key] = strings.Join(parts, ",")
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// loadEnvFile loads KEY=value lines into the environment without
// overriding variables that are already set.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- operator supplied env path
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("set env var %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}
