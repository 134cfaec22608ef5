package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"invoicecanon/internal/logger"
)

type Config struct {
	// Google Document AI Configuration
	GoogleCloudProject         string
	GoogleCloudLocation        string
	DocumentAIProcessorID      string
	DocumentAIProcessorVersion string

	// Normalization Configuration
	DateOrder string // day-first or month-first

	// Vendor Matching Configuration
	VendorDirectoryPath string // JSON file with the known-vendor list
	VendorMatchTimeout  time.Duration

	// Classifier Configuration
	ClassifierWideGap     int
	ClassifierWideBoost   int
	ClassifierNarrowGap   int
	ClassifierNarrowBoost int

	// Diagnostics Configuration
	DiagnosticsCooldown time.Duration

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		GoogleCloudProject:         getEnv("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCloudLocation:        getEnv("GOOGLE_CLOUD_LOCATION", "us"),
		DocumentAIProcessorID:      getEnv("DOCUMENT_AI_PROCESSOR_ID", ""),
		DocumentAIProcessorVersion: getEnv("DOCUMENT_AI_PROCESSOR_VERSION", ""),
		DateOrder:                  getEnv("DATE_ORDER", "day-first"),
		VendorDirectoryPath:        getEnv("VENDOR_DIRECTORY", ""),
		VendorMatchTimeout:         getEnvDuration("VENDOR_MATCH_TIMEOUT", 3*time.Second),
		ClassifierWideGap:          getEnvInt("CLASSIFIER_WIDE_GAP", 50),
		ClassifierWideBoost:        getEnvInt("CLASSIFIER_WIDE_BOOST", 15),
		ClassifierNarrowGap:        getEnvInt("CLASSIFIER_NARROW_GAP", 30),
		ClassifierNarrowBoost:      getEnvInt("CLASSIFIER_NARROW_BOOST", 10),
		DiagnosticsCooldown:        getEnvDuration("DIAGNOSTICS_COOLDOWN", 60*time.Second),
		LogLevel:                   getEnv("LOG_LEVEL", "info"),
		LogFormat:                  getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:              getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:                  getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DateOrder != "day-first" && c.DateOrder != "month-first" {
		return fmt.Errorf("DATE_ORDER must be day-first or month-first, got %q", c.DateOrder)
	}
	if c.VendorMatchTimeout <= 0 {
		return fmt.Errorf("VENDOR_MATCH_TIMEOUT must be positive")
	}
	if c.DiagnosticsCooldown < 0 {
		return fmt.Errorf("DIAGNOSTICS_COOLDOWN cannot be negative")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
