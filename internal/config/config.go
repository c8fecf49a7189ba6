package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	CatalogPath  string
	DebugMode    bool
	LogFormat    string
	AutoDismiss  time.Duration
	MetricsAddr  string
	OTELEnabled  bool
	OTELEndpoint string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	autoDismiss, err := getEnvDuration("SAVEPROMPT_AUTO_DISMISS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		CatalogPath:  getEnv("SAVEPROMPT_CATALOG_PATH", ""),
		DebugMode:    getEnvBool("SAVEPROMPT_DEBUG", false),
		LogFormat:    getEnv("SAVEPROMPT_LOG_FORMAT", "json"),
		AutoDismiss:  autoDismiss,
		MetricsAddr:  getEnv("SAVEPROMPT_METRICS_ADDR", ""),
		OTELEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("SAVEPROMPT_LOG_FORMAT must be 'json' or 'console', got %q", cfg.LogFormat)
	}

	if cfg.AutoDismiss < 0 {
		return nil, fmt.Errorf("SAVEPROMPT_AUTO_DISMISS must not be negative, got %s", cfg.AutoDismiss)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	// Bare integers are seconds.
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return 0, fmt.Errorf("%s is not a valid duration: %q", key, value)
}
