package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"tradingdesk/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration for the strategy manager.
type Config struct {
	// Desk server
	ServerURL string // base URL of the trading desk server
	UserID    string // default user identity for order submissions

	// Strategy deployment
	StrategiesDir string // directory scanned for strategy subdirectories
	Image         string // container image strategies run in
	Network       string // shared container network name

	// Deployment journal (optional; empty path disables journaling)
	JournalPath string

	// Logging
	LogLevel  logger.LogLevel
	LogFormat string // "text" or "json"
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var errs []string // Collect validation errors

	cfg.ServerURL = getEnv("DESK_SERVER_URL", "http://go-server:8080")
	if cfg.ServerURL == "" {
		errs = append(errs, "DESK_SERVER_URL must be set")
	}

	cfg.UserID = getEnv("USER_ID", "default_user")

	cfg.StrategiesDir = getEnv("STRATEGIES_DIR", "./strategies")
	if cfg.StrategiesDir == "" {
		errs = append(errs, "STRATEGIES_DIR must be set")
	}

	cfg.Image = getEnv("DESK_IMAGE", "trading-desk-strategy")
	if cfg.Image == "" {
		errs = append(errs, "DESK_IMAGE must be set")
	}

	cfg.Network = getEnv("DESK_NETWORK", "trading-desk-network")
	if cfg.Network == "" {
		errs = append(errs, "DESK_NETWORK must be set")
	}

	cfg.JournalPath = getEnv("DESK_JOURNAL_PATH", "")

	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid LOG_FORMAT %q (must be \"text\" or \"json\")", cfg.LogFormat))
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
