package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/ports"
)

// HealthHandler exposes a readiness probe covering the local store and, when
// configured, the remote database.
type HealthHandler struct {
	Local  ports.HealthChecker
	Remote ports.HealthChecker // nil when running local-only
}

func (h HealthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

func (h HealthHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ok"
	components := map[string]string{}

	components["localStore"] = "ok"
	if err := h.Local.Health(ctx); err != nil {
		components["localStore"] = "degraded"
		status = "degraded"
	}
	if h.Remote != nil {
		components["database"] = "ok"
		if err := h.Remote.Health(ctx); err != nil {
			components["database"] = "degraded"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":     status,
		"components": components,
	})
}
