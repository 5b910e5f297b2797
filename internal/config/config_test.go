package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/GreenHydrogen/H2-Backend/internal/config"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"CONFIG_FILE", "PORT", "ML_BACKEND_URL", "ML_TIMEOUT_SECONDS", "CORS_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg := config.LoadFromEnv()
	if cfg.MLBackendURL != config.DefaultMLBackendURL {
		t.Errorf("MLBackendURL = %q", cfg.MLBackendURL)
	}
	if cfg.MLTimeout() != 30*time.Second {
		t.Errorf("MLTimeout = %v", cfg.MLTimeout())
	}
	if cfg.MLMaxRetries != 2 {
		t.Errorf("MLMaxRetries = %d", cfg.MLMaxRetries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("ML_BACKEND_URL", "https://ml.example.org/")
	t.Setenv("ML_TIMEOUT_SECONDS", "12")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_RPS", "not-a-number")

	cfg := config.LoadFromEnv()
	if cfg.MLBackendURL != "https://ml.example.org" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.MLBackendURL)
	}
	if cfg.MLTimeoutSeconds != 12 {
		t.Errorf("MLTimeoutSeconds = %d", cfg.MLTimeoutSeconds)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.RateLimitRPS != config.Default().RateLimitRPS {
		t.Errorf("bad float should fall back to default, got %v", cfg.RateLimitRPS)
	}
}

func TestYAMLFileIsOverriddenByEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "port: \"6060\"\nml_backend_url: http://ml.internal:9000\nml_max_retries: 1\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "")
	t.Setenv("ML_BACKEND_URL", "")
	t.Setenv("ML_MAX_RETRIES", "0")

	cfg := config.LoadFromEnv()
	if cfg.Port != "6060" {
		t.Errorf("Port = %q, want value from file", cfg.Port)
	}
	if cfg.MLBackendURL != "http://ml.internal:9000" {
		t.Errorf("MLBackendURL = %q", cfg.MLBackendURL)
	}
	if cfg.MLMaxRetries != 0 {
		t.Errorf("env should win over file, got %d", cfg.MLMaxRetries)
	}
}

func TestValidate(t *testing.T) {
	cfg := config.Default()
	cfg.MLBackendURL = "localhost:8000"
	if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidMLURL) {
		t.Errorf("expected ErrInvalidMLURL, got %v", err)
	}

	cfg = config.Default()
	cfg.Port = "99999"
	if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidPort) {
		t.Errorf("expected ErrInvalidPort, got %v", err)
	}

	cfg = config.Default()
	cfg.MLTimeoutSeconds = 0
	if err := cfg.Validate(); !errors.Is(err, config.ErrInvalidBudget) {
		t.Errorf("expected ErrInvalidBudget, got %v", err)
	}
}
