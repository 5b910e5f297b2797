package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GreenHydrogen/H2-Backend/internal/middleware"
)

// SetupRoutes mounts the admin API. Every route requires an admin session.
func SetupRoutes(sessions middleware.SessionFetcher, users middleware.UserFetcher) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.SessionMiddleware(sessions))
	r.Use(middleware.AdminMiddleware(users))

	r.Get("/users", ListUsersHandler)
	r.Get("/users/{id}", GetUserHandler)
	r.Put("/users/{id}", UpdateUserHandler)
	r.Delete("/users/{id}", DeleteUserHandler)

	r.Get("/dashboard/stats", DashboardStatsHandler)

	r.Get("/plants/import", ListImportsHandler)
	r.Post("/plants/import", StartImportHandler)
	r.Get("/plants/import/{jobID}", GetImportHandler)

	return r
}
