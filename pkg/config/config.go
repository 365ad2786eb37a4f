// Package config handles application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Authentication. An empty APIKey disables the identity guard.
	APIKey string

	// CORS
	AllowedOrigin string

	// Admission gate
	RateLimit  int
	RateWindow time.Duration

	// Transient artifact storage
	TmpDir string

	// Egress proxy for the thumbnail relay (SOCKS5 or HTTP URL)
	EgressProxy string

	// Logging
	LogLevel string
	LogJSON  bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8000),
		ReadTimeout: getEnvDuration("READ_TIMEOUT", 30*time.Second),
		// Downloads can run for a long time before the first byte is
		// streamed back, so the write timeout is generous.
		WriteTimeout:  getEnvDuration("WRITE_TIMEOUT", 30*time.Minute),
		IdleTimeout:   getEnvDuration("IDLE_TIMEOUT", 60*time.Second),
		APIKey:        os.Getenv("API_KEY"),
		AllowedOrigin: getEnvString("ALLOWED_ORIGIN", "*"),
		RateLimit:     getEnvInt("RATE_LIMIT", 5),
		RateWindow:    getEnvDuration("RATE_WINDOW", 60*time.Second),
		TmpDir:        getEnvString("TMP_DIR", os.TempDir()),
		EgressProxy:   getEnvString("EGRESS_PROXY", ""),
		LogLevel:      getEnvString("LOG_LEVEL", "info"),
		LogJSON:       getEnvBool("LOG_JSON", false),
	}
}

func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		return strings.ToLower(val) == "true" || val == "1"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		// Bare integers are seconds
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
