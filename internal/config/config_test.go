package config

import (
	"testing"
	"time"
)

func TestLoadClientDefaults(t *testing.T) {
	for _, key := range []string{EnvBackendURL, EnvTimeout, EnvModeTimeout, EnvDemoDelay, EnvPositiveMarker, EnvJWTSecret, EnvDebug, EnvColumns} {
		t.Setenv(key, "")
	}

	cfg := LoadClient()
	if cfg.BackendURL != "http://localhost:8080" {
		t.Fatalf("unexpected backend url %q", cfg.BackendURL)
	}
	if cfg.Timeout != 30*time.Second || cfg.ModeTimeout != 5*time.Second || cfg.DemoDelay != 2*time.Second {
		t.Fatalf("unexpected durations %+v", cfg)
	}
	if cfg.PositiveMarker != "Pneumonia" || cfg.Debug || cfg.JWTSecret != "" || cfg.Columns != 0 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv(EnvBackendURL, "http://backend:9000")
	t.Setenv(EnvTimeout, "3s")
	t.Setenv(EnvDemoDelay, "0s")
	t.Setenv(EnvPositiveMarker, "Pneumonia detected")
	t.Setenv(EnvDebug, "true")
	t.Setenv(EnvColumns, "80")
	t.Setenv(EnvModeTimeout, "not-a-duration")

	cfg := LoadClient()
	if cfg.BackendURL != "http://backend:9000" || cfg.Timeout != 3*time.Second || cfg.DemoDelay != 0 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.PositiveMarker != "Pneumonia detected" || !cfg.Debug || cfg.Columns != 80 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ModeTimeout != 5*time.Second {
		t.Fatalf("invalid duration should fall back, got %v", cfg.ModeTimeout)
	}
}

func TestLoadBackend(t *testing.T) {
	t.Setenv(EnvBackendAddr, "")
	t.Setenv(EnvDemoMode, "false")
	t.Setenv(EnvRedisAddr, "redis:6379")

	cfg := LoadBackend()
	if cfg.Addr != ":8080" || cfg.DemoMode || cfg.RedisAddr != "redis:6379" {
		t.Fatalf("unexpected backend config %+v", cfg)
	}
}
