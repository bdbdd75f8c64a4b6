// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for all databases (always absolute)
	Port           int
	LogLevel       string
	DevMode        bool
	FinMindBaseURL string
	FinMindToken   string // Optional API token; unauthenticated requests are rate-limited harder
	SyncSchedule   string // Cron expression (with seconds) for the daily stat sync job
	QuoteCacheTTL  int    // Quote cache freshness window in seconds
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Determine data directory:
	// 1. STOCKFOLIO_DATA_DIR environment variable
	// 2. Fallback to ./data
	// 3. Always resolve to absolute path and ensure it exists
	dataDir := getEnv("STOCKFOLIO_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("PORT", 8080),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		FinMindBaseURL: getEnv("FINMIND_BASE_URL", "https://api.finmindtrade.com/api/v4/data"),
		FinMindToken:   getEnv("FINMIND_TOKEN", ""),
		SyncSchedule:   getEnv("SYNC_SCHEDULE", "0 0 15 * * *"), // 15:00 daily, after TWSE close
		QuoteCacheTTL:  getEnvAsInt("QUOTE_CACHE_TTL", 600),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
