package mlproxy

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the ML endpoints. predictLimit wraps only the routes
// that reach the ML service; it may be nil.
func SetupRoutes(s *Service, predictLimit func(http.Handler) http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		if predictLimit != nil {
			r.Use(predictLimit)
		}
		r.Post("/predict", s.Predict)
	})

	r.Post("/validate", s.Validate)
	r.Get("/status", s.Status)
	r.Get("/info", s.Info)
	r.Get("/health", s.Health)

	return r
}
