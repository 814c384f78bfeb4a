// Package config loads application configuration from environment variables.
// All variables use the LEARN_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Catalog  CatalogConfig
	Profile  ProfileConfig
	Quiz     QuizConfig
	Log      LogConfig
}

// ServerConfig holds local HTTP API settings.
type ServerConfig struct {
	Port int
	Host string
}

// StoreConfig selects the key-value backend that holds learner state.
type StoreConfig struct {
	Backend    string
	SQLitePath string // empty means the XDG default path
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL       string
	KeyPrefix string
}

// CatalogConfig points at a directory of YAML topic/quiz files.
// An empty Path selects the embedded catalog.
type CatalogConfig struct {
	Path string
}

// ProfileConfig holds remote profile service settings.
type ProfileConfig struct {
	Enabled        bool // false keeps the app fully offline
	BaseURL        string
	TimeoutSeconds int
}

// QuizConfig holds quiz attempt settings.
type QuizConfig struct {
	TimeLimitSeconds int
	LessonMinutes    int // minutes credited per completed lesson when the caller does not say
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables with LEARN_ prefix.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("LEARN_SERVER_PORT", 8080),
			Host: envStr("LEARN_SERVER_HOST", "127.0.0.1"),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(envStr("LEARN_STORE_BACKEND", BackendSQLite)),
			SQLitePath: envStr("LEARN_STORE_SQLITE_PATH", ""),
		},
		Database: DatabaseConfig{
			URL:      envStr("LEARN_DATABASE_URL", ""),
			MaxConns: envInt("LEARN_DATABASE_MAX_CONNS", 4),
			MinConns: envInt("LEARN_DATABASE_MIN_CONNS", 1),
		},
		Cache: CacheConfig{
			URL:       envStr("LEARN_CACHE_URL", ""),
			KeyPrefix: envStr("LEARN_CACHE_KEY_PREFIX", "learn:"),
		},
		Catalog: CatalogConfig{
			Path: envStr("LEARN_CATALOG_PATH", ""),
		},
		Profile: ProfileConfig{
			Enabled:        envBool("LEARN_PROFILE_ENABLED", true),
			BaseURL:        envStr("LEARN_PROFILE_BASE_URL", "https://talenvo-hackaton-be.onrender.com/api/v1"),
			TimeoutSeconds: envInt("LEARN_PROFILE_TIMEOUT", 15),
		},
		Quiz: QuizConfig{
			TimeLimitSeconds: envInt("LEARN_QUIZ_TIME_LIMIT", 1800),
			LessonMinutes:    envInt("LEARN_LESSON_MINUTES", 30),
		},
		Log: LogConfig{
			Level:  envStr("LEARN_LOG_LEVEL", "info"),
			Format: envStr("LEARN_LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendSQLite:
	case BackendRedis:
		if c.Cache.URL == "" {
			return fmt.Errorf("LEARN_CACHE_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("LEARN_DATABASE_URL is required for the postgres backend")
		}
	default:
		return fmt.Errorf("LEARN_STORE_BACKEND must be one of memory, sqlite, redis, postgres, got %q", c.Store.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("LEARN_SERVER_PORT out of range: %d", c.Server.Port)
	}

	if c.Profile.Enabled && c.Profile.BaseURL == "" {
		return fmt.Errorf("LEARN_PROFILE_BASE_URL is required when the profile service is enabled")
	}

	if c.Quiz.TimeLimitSeconds <= 0 {
		return fmt.Errorf("LEARN_QUIZ_TIME_LIMIT must be positive, got %d", c.Quiz.TimeLimitSeconds)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LEARN_LOG_LEVEL must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LEARN_LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}

	return nil
}

// QuizTimeLimit returns the attempt budget as a duration.
func (c *Config) QuizTimeLimit() time.Duration {
	return time.Duration(c.Quiz.TimeLimitSeconds) * time.Second
}

// ProfileTimeout returns the profile service HTTP timeout.
func (c *Config) ProfileTimeout() time.Duration {
	return time.Duration(c.Profile.TimeoutSeconds) * time.Second
}

// Addr returns the host:port the HTTP API listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}
