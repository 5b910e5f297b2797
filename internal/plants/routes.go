package plants

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GreenHydrogen/H2-Backend/internal/middleware"
)

func SetupRoutes(sessions middleware.SessionFetcher, users middleware.UserFetcher) http.Handler {
	r := chi.NewRouter()

	r.Get("/", ListHandler)
	r.Get("/statistics", StatisticsHandler)
	r.Get("/state/{state}", ByStateHandler)
	r.Get("/status/{status}", ByStatusHandler)
	r.Post("/within", WithinHandler)
	r.Get("/{id}", GetHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessions))
		r.Use(middleware.AdminMiddleware(users))
		r.Post("/", CreateHandler)
		r.Put("/{id}", UpdateHandler)
		r.Delete("/{id}", DeleteHandler)
	})

	return r
}
