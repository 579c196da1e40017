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
	DataDir       string // Base directory for all databases, always absolute
	Host          string
	Port          int
	LogLevel      string
	PrettyLogs    bool
	MaxQubits     int  // Largest register the local backend accepts
	RetentionDays int  // Run history retention for the cleanup job
	CacheResults  bool // Cache circuit execution results by circuit hash
	DevMode       bool
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Resolve the data directory: env var, else ./data, always absolute,
	// created if missing.
	dataDir := getEnv("QUANTUMLAB_DATA_DIR", "")
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
		DataDir:       absDataDir,
		Host:          getEnv("QUANTUMLAB_HOST", "0.0.0.0"),
		Port:          getEnvAsInt("QUANTUMLAB_PORT", 8090),
		LogLevel:      getEnv("QUANTUMLAB_LOG_LEVEL", "info"),
		PrettyLogs:    getEnvAsBool("QUANTUMLAB_PRETTY_LOGS", false),
		MaxQubits:     getEnvAsInt("QUANTUMLAB_MAX_QUBITS", 16),
		RetentionDays: getEnvAsInt("QUANTUMLAB_RETENTION_DAYS", 30),
		CacheResults:  getEnvAsBool("QUANTUMLAB_CACHE_RESULTS", true),
		DevMode:       getEnvAsBool("QUANTUMLAB_DEV_MODE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SettingsReader is the slice of the settings repository the config layer
// needs. Defined here to keep config free of module imports.
type SettingsReader interface {
	GetInt(key string, defaultValue int) int
	GetBool(key string, defaultValue bool) bool
}

// UpdateFromSettings overlays runtime-tunable values from the settings
// database. Settings DB values take precedence over environment variables.
func (c *Config) UpdateFromSettings(settings SettingsReader) {
	c.MaxQubits = settings.GetInt("max_qubits", c.MaxQubits)
	c.RetentionDays = settings.GetInt("runs_retention_days", c.RetentionDays)
	c.CacheResults = settings.GetBool("cache_results", c.CacheResults)
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d outside valid range 1..65535", c.Port)
	}
	if c.MaxQubits < 1 || c.MaxQubits > 20 {
		return fmt.Errorf("max qubits %d outside supported range 1..20", c.MaxQubits)
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("retention days must be positive, got %d", c.RetentionDays)
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
