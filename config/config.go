// Package config reads the folio settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/etnz/folio"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath   string // SQLite database holding the portfolios
	MarketPath     string // JSONL file of closing prices
	Currency       string // reporting currency
	Lookback       int    // trading-day fallback window, in days
	BaselineWindow int    // moving average window for price crossovers
	MissingPrice   folio.MissingPricePolicy
	EODHDAPIKey    string  // prices are fetched from eodhd when set
	EODHDRate      float64 // eodhd requests per second
	LogLevel       string
	Addr           string // listen address of the HTTP API
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	policy, err := folio.ParseMissingPricePolicy(getEnv("FOLIO_MISSING_PRICE", folio.SkipMissingPrice.String()))
	if err != nil {
		return nil, fmt.Errorf("FOLIO_MISSING_PRICE: %w", err)
	}

	cfg := &Config{
		DatabasePath:   getEnv("FOLIO_DB", "folio.db"),
		MarketPath:     getEnv("FOLIO_MARKET", "market.jsonl"),
		Currency:       getEnv("FOLIO_CURRENCY", "USD"),
		Lookback:       getEnvAsInt("FOLIO_LOOKBACK_DAYS", folio.DefaultLookback),
		BaselineWindow: getEnvAsInt("FOLIO_BASELINE_WINDOW", folio.DefaultBaselineWindow),
		MissingPrice:   policy,
		EODHDAPIKey:    getEnv("EODHD_API_KEY", ""),
		EODHDRate:      getEnvAsFloat("EODHD_RATE", 5),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Addr:           getEnv("FOLIO_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("FOLIO_DB is required")
	}
	if c.Lookback < 0 {
		return fmt.Errorf("FOLIO_LOOKBACK_DAYS must not be negative, got %d", c.Lookback)
	}
	if c.BaselineWindow < 1 {
		return fmt.Errorf("FOLIO_BASELINE_WINDOW must be positive, got %d", c.BaselineWindow)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
