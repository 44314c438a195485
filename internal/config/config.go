// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr      string
	DBPath          string
	GitHubBaseURL   string
	GitHubRPS       float64
	PageSize        int
	CommitPageCap   int
	PRPageCap       int
	Location        *time.Location
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Every variable is optional. Defaults: GITPULSE_LISTEN_ADDR (127.0.0.1:8080),
// GITPULSE_DB_PATH (gitpulse.db), GITPULSE_GITHUB_BASE_URL (api.github.com),
// GITPULSE_GITHUB_RPS (0, unthrottled), GITPULSE_PAGE_SIZE (100),
// GITPULSE_COMMIT_PAGE_CAP (5), GITPULSE_PR_PAGE_CAP (3),
// GITPULSE_TIMEZONE (Local), GITPULSE_LOG_LEVEL (info),
// GITPULSE_LOG_FORMAT (json), GITPULSE_SHUTDOWN_TIMEOUT (30s).
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:      "127.0.0.1:8080",
		DBPath:          "gitpulse.db",
		PageSize:        100,
		CommitPageCap:   5,
		PRPageCap:       3,
		Location:        time.Local,
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: 30 * time.Second,
	}

	if v, ok := os.LookupEnv("GITPULSE_LISTEN_ADDR"); ok {
		cfg.ListenAddr = v
	}

	if v, ok := os.LookupEnv("GITPULSE_DB_PATH"); ok {
		cfg.DBPath = v
	}

	if v, ok := os.LookupEnv("GITPULSE_GITHUB_BASE_URL"); ok {
		cfg.GitHubBaseURL = strings.TrimSpace(v)
	}

	if v, ok := os.LookupEnv("GITPULSE_GITHUB_RPS"); ok {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil || parsed < 0 {
			return nil, fmt.Errorf("GITPULSE_GITHUB_RPS must be a non-negative number, got %q", v)
		}
		cfg.GitHubRPS = parsed
	}

	var err error
	if cfg.PageSize, err = positiveInt("GITPULSE_PAGE_SIZE", cfg.PageSize); err != nil {
		return nil, err
	}
	if cfg.PageSize > 100 {
		return nil, fmt.Errorf("GITPULSE_PAGE_SIZE must be at most 100, got %d", cfg.PageSize)
	}
	if cfg.CommitPageCap, err = positiveInt("GITPULSE_COMMIT_PAGE_CAP", cfg.CommitPageCap); err != nil {
		return nil, err
	}
	if cfg.PRPageCap, err = positiveInt("GITPULSE_PR_PAGE_CAP", cfg.PRPageCap); err != nil {
		return nil, err
	}

	if v, ok := os.LookupEnv("GITPULSE_TIMEZONE"); ok && v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return nil, fmt.Errorf("GITPULSE_TIMEZONE has invalid location %q: %w", v, err)
		}
		cfg.Location = loc
	}

	if v, ok := os.LookupEnv("GITPULSE_LOG_LEVEL"); ok {
		level := strings.ToLower(strings.TrimSpace(v))
		switch level {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = level
		default:
			return nil, fmt.Errorf("GITPULSE_LOG_LEVEL must be one of debug, info, warn, error; got %q", v)
		}
	}

	if v, ok := os.LookupEnv("GITPULSE_LOG_FORMAT"); ok {
		format := strings.ToLower(strings.TrimSpace(v))
		if format != "json" && format != "text" {
			return nil, fmt.Errorf("GITPULSE_LOG_FORMAT must be json or text, got %q", v)
		}
		cfg.LogFormat = format
	}

	if v, ok := os.LookupEnv("GITPULSE_SHUTDOWN_TIMEOUT"); ok {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("GITPULSE_SHUTDOWN_TIMEOUT has invalid duration %q: %w", v, err)
		}
		cfg.ShutdownTimeout = parsed
	}

	return cfg, nil
}

func positiveInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def, nil
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || parsed < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, v)
	}
	return parsed, nil
}
