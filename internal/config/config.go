// Package config provides configuration management: environment variables for
// runtime settings and YAML documents for cap bands, region groupings, and
// portfolio definitions.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// DefaultSourceURL is the fund page the country weights are scraped from
// (SPDR MSCI ACWI IMI UCITS ETF geographical breakdown).
const DefaultSourceURL = "https://www.ssga.com/uk/en_gb/institutional/etfs/funds/spdr-msci-acwi-imi-ucits-etf-spyi-gy"

// Config holds application configuration
type Config struct {
	DataDir         string // Base directory for the snapshot cache database
	Port            int
	LogLevel        string
	DevMode         bool
	SourceURL       string // Country weights source page
	BandsFile       string // Optional YAML with market_caps + data_sources
	RegionsFile     string // Optional YAML with region groupings
	RefreshSchedule string // Cron spec for the weight refresh job ("" disables it)
	OverlapPolicy   string // "count-once" or "proportional"
}

// Load reads configuration from environment variables (.env file honored).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("PD_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         absDataDir,
		Port:            getEnvAsInt("PD_PORT", 8080),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		SourceURL:       getEnv("PD_SOURCE_URL", DefaultSourceURL),
		BandsFile:       getEnv("PD_BANDS_FILE", ""),
		RegionsFile:     getEnv("PD_REGIONS_FILE", ""),
		RefreshSchedule: getEnv("PD_REFRESH_CRON", "0 7 * * *"),
		OverlapPolicy:   getEnv("PD_OVERLAP_POLICY", "count-once"),
	}

	return cfg, nil
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
