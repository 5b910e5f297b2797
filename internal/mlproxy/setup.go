package mlproxy

import (
	"log"

	"github.com/GreenHydrogen/H2-Backend/internal/config"
)

// Init builds the ML service client from the server configuration.
func Init(cfg config.Config) *Service {
	client := NewClient(cfg.MLBackendURL, Options{
		Timeout:         cfg.MLTimeout(),
		MaxRetries:      cfg.MLMaxRetries,
		BreakerFailures: cfg.MLBreakerFailures,
		BreakerOpenFor:  cfg.BreakerOpenFor(),
	})
	log.Printf("[mlproxy] ML backend configured: %s (timeout=%s retries=%d)",
		cfg.MLBackendURL, cfg.MLTimeout(), cfg.MLMaxRetries)
	return NewService(client)
}
