package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/GreenHydrogen/H2-Backend/internal/admin"
	"github.com/GreenHydrogen/H2-Backend/internal/auth"
	"github.com/GreenHydrogen/H2-Backend/internal/config"
	"github.com/GreenHydrogen/H2-Backend/internal/db"
	"github.com/GreenHydrogen/H2-Backend/internal/metrics"
	"github.com/GreenHydrogen/H2-Backend/internal/middleware"
	"github.com/GreenHydrogen/H2-Backend/internal/mlproxy"
	"github.com/GreenHydrogen/H2-Backend/internal/plants"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Green Hydrogen API is up!")
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"database":  db.Connected(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// newRouter assembles the API. The database-backed features are mounted
// only when withDB is set.
func newRouter(cfg config.Config, ml *mlproxy.Service, withDB bool) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.Get("/", RootHandler)
	r.Get("/health", HealthHandler)
	r.Handle("/metrics", metrics.Handler())

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	mlRoutes := mlproxy.SetupRoutes(ml, limiter.Middleware)
	r.Mount("/api/ml", mlRoutes)
	r.Mount("/ml-api/ml", mlRoutes)

	if withDB {
		sessions := auth.SessionInfo{}
		r.Mount("/api/auth", auth.SetupRoutes())
		r.Mount("/api/admin", admin.SetupRoutes(sessions, sessions))
		r.Mount("/api/hydrogen-plants", plants.SetupRoutes(sessions, sessions))
	}

	return r
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg := config.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	withDB := cfg.DatabaseURL != ""
	if withDB {
		db.Connect(cfg.DatabaseURL)
		auth.Init(cfg.SessionDuration())
		plants.Init()
	} else {
		log.Println("DATABASE_URL not set, serving the ML endpoints only")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           newRouter(cfg, mlproxy.Init(cfg), withDB),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server listening on port :%s...", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-ctx.Done()
	stop()

	shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shCtx)
	log.Println("shutdown complete")
}
