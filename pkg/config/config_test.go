package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Port = %d, want 8000", cfg.Port)
	}
	if cfg.APIKey != "" {
		t.Errorf("APIKey = %q, want empty (auth disabled)", cfg.APIKey)
	}
	if cfg.AllowedOrigin != "*" {
		t.Errorf("AllowedOrigin = %q, want *", cfg.AllowedOrigin)
	}
	if cfg.RateLimit != 5 {
		t.Errorf("RateLimit = %d, want 5", cfg.RateLimit)
	}
	if cfg.RateWindow != 60*time.Second {
		t.Errorf("RateWindow = %v, want 60s", cfg.RateWindow)
	}
	if cfg.TmpDir == "" {
		t.Error("TmpDir should default to the system temp directory")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_KEY", "s3cr3t")
	t.Setenv("ALLOWED_ORIGIN", "https://example.com")
	t.Setenv("RATE_LIMIT", "10")
	t.Setenv("RATE_WINDOW", "30")
	t.Setenv("TMP_DIR", "/var/tmp")
	t.Setenv("LOG_JSON", "true")

	cfg := Load()

	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
	if cfg.APIKey != "s3cr3t" {
		t.Errorf("APIKey = %q, want s3cr3t", cfg.APIKey)
	}
	if cfg.AllowedOrigin != "https://example.com" {
		t.Errorf("AllowedOrigin = %q", cfg.AllowedOrigin)
	}
	if cfg.RateLimit != 10 {
		t.Errorf("RateLimit = %d, want 10", cfg.RateLimit)
	}
	if cfg.RateWindow != 30*time.Second {
		t.Errorf("RateWindow = %v, want 30s (bare integer is seconds)", cfg.RateWindow)
	}
	if cfg.TmpDir != "/var/tmp" {
		t.Errorf("TmpDir = %q", cfg.TmpDir)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON should be true")
	}
}

func TestGetEnvDuration_DurationString(t *testing.T) {
	t.Setenv("RATE_WINDOW", "2m")
	cfg := Load()
	if cfg.RateWindow != 2*time.Minute {
		t.Errorf("RateWindow = %v, want 2m", cfg.RateWindow)
	}
}
