package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// DefaultMLBackendURL is used when ML_BACKEND_URL is not set.
const DefaultMLBackendURL = "http://localhost:8000"

var DefaultCORSOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://daiict-code-canvas.vercel.app",
}

// Config holds the runtime settings of the API server.
type Config struct {
	Port        string `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`

	MLBackendURL         string `yaml:"ml_backend_url"`
	MLTimeoutSeconds     int    `yaml:"ml_timeout_seconds"`
	MLMaxRetries         int    `yaml:"ml_max_retries"`
	MLBreakerFailures    int    `yaml:"ml_breaker_failures"`
	MLBreakerOpenSeconds int    `yaml:"ml_breaker_open_seconds"`

	CORSOrigins []string `yaml:"cors_origins"`

	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	SessionHours int `yaml:"session_hours"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:                 "5000",
		MLBackendURL:         DefaultMLBackendURL,
		MLTimeoutSeconds:     30,
		MLMaxRetries:         2,
		MLBreakerFailures:    5,
		MLBreakerOpenSeconds: 30,
		CORSOrigins:          DefaultCORSOrigins,
		RateLimitRPS:         5,
		RateLimitBurst:       10,
		SessionHours:         6,
	}
}

// LoadFromEnv builds the configuration in three layers: defaults, then an
// optional YAML file named by CONFIG_FILE, then environment variables.
//
// Environment variables:
//   - PORT, DATABASE_URL
//   - ML_BACKEND_URL, ML_TIMEOUT_SECONDS, ML_MAX_RETRIES
//   - ML_BREAKER_FAILURES, ML_BREAKER_OPEN_SECONDS
//   - CORS_ORIGINS (comma separated)
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST
//   - SESSION_HOURS
func LoadFromEnv() Config {
	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			log.Printf("[config] ignoring %s: %v", path, err)
		}
	}

	cfg.Port = getenv("PORT", cfg.Port)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.MLBackendURL = strings.TrimRight(getenv("ML_BACKEND_URL", cfg.MLBackendURL), "/")
	cfg.MLTimeoutSeconds = getenvInt("ML_TIMEOUT_SECONDS", cfg.MLTimeoutSeconds)
	cfg.MLMaxRetries = getenvInt("ML_MAX_RETRIES", cfg.MLMaxRetries)
	cfg.MLBreakerFailures = getenvInt("ML_BREAKER_FAILURES", cfg.MLBreakerFailures)
	cfg.MLBreakerOpenSeconds = getenvInt("ML_BREAKER_OPEN_SECONDS", cfg.MLBreakerOpenSeconds)
	cfg.RateLimitRPS = getenvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.RateLimitBurst = getenvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst)
	cfg.SessionHours = getenvInt("SESSION_HOURS", cfg.SessionHours)

	if origins := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); origins != "" {
		cfg.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	return cfg
}

// LoadFile overlays the values found in a YAML file. Keys missing from the
// file keep their current value.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

var (
	ErrInvalidMLURL  = errors.New("ML_BACKEND_URL must be an absolute http(s) URL")
	ErrInvalidPort   = errors.New("PORT must be a number between 1 and 65535")
	ErrInvalidBudget = errors.New("ML_TIMEOUT_SECONDS must be positive and ML_MAX_RETRIES non-negative")
)

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	u, err := url.Parse(c.MLBackendURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidMLURL, c.MLBackendURL)
	}
	if p, err := strconv.Atoi(c.Port); err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidPort, c.Port)
	}
	if c.MLTimeoutSeconds <= 0 || c.MLMaxRetries < 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (c Config) MLTimeout() time.Duration {
	return time.Duration(c.MLTimeoutSeconds) * time.Second
}

func (c Config) BreakerOpenFor() time.Duration {
	return time.Duration(c.MLBreakerOpenSeconds) * time.Second
}

func (c Config) SessionDuration() time.Duration {
	return time.Duration(c.SessionHours) * time.Hour
}

func getenv(k, d string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return d
}

func getenvInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
		log.Printf("[config] %s=%q is not an integer, using %d", k, v, d)
	}
	return d
}

func getenvFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
		log.Printf("[config] %s=%q is not a number, using %g", k, v, d)
	}
	return d
}
