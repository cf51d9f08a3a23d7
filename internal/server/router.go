package server

import (
	"net/http"
	"time"

	"timebank-backend/internal/config"
	"timebank-backend/internal/handler"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"log/slog"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(cfg config.Config,
	logger *slog.Logger,
	health handler.HealthHandler,
	auth handler.AuthHandler,
	punches handler.PunchHandler,
	adjustments handler.AdjustmentHandler,
	settings handler.SettingsHandler,
	balance handler.BalanceHandler,
	sync handler.SyncHandler,
	backup handler.BackupHandler,
	report handler.ReportHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	auth.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	// Tracking routes run under the identity middleware: signed-in users get
	// their synced scope, everyone else the local-only guest scope.
	r.Group(func(ir chi.Router) {
		ir.Use(AuthMiddleware(cfg.JWTSecret))
		punches.RegisterRoutes(ir)
		adjustments.RegisterRoutes(ir)
		settings.RegisterRoutes(ir)
		balance.RegisterRoutes(ir)
		sync.RegisterRoutes(ir)
		backup.RegisterRoutes(ir)
		report.RegisterRoutes(ir)
	})

	return r
}
