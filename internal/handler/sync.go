package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	syncpkg "timebank-backend/internal/sync"
)

type SyncHandler struct {
	Engines *syncpkg.Manager
}

func (h SyncHandler) RegisterRoutes(r chi.Router) {
	r.Post("/sync", h.trigger)
	r.Get("/sync/status", h.status)
	r.Put("/sync/connectivity", h.connectivity)
	r.Post("/history/compact", h.compact)
}

func (h SyncHandler) trigger(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	if err := eng.Sync(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":       eng.Status().String(),
			"pendingCount": eng.PendingCount(),
			"error":        err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       eng.Status().String(),
		"pendingCount": eng.PendingCount(),
	})
}

func (h SyncHandler) status(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       eng.Status().String(),
		"online":       eng.Online(),
		"pendingCount": eng.PendingCount(),
	})
}

// connectivity flips the online flag. Going online kicks off a reconciliation
// pass before responding.
func (h SyncHandler) connectivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Online *bool `json:"online"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Online == nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	eng := h.Engines.ForScope(scopeFrom(r))
	if err := eng.SetOnline(r.Context(), *req.Online); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"online":       eng.Online(),
			"status":       eng.Status().String(),
			"pendingCount": eng.PendingCount(),
			"error":        err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"online":       eng.Online(),
		"status":       eng.Status().String(),
		"pendingCount": eng.PendingCount(),
	})
}

func (h SyncHandler) compact(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	changed := eng.CompactHistory(r.Context())
	payload := map[string]any{"changed": changed}
	if cp := eng.Settings().Checkpoint; cp != nil {
		payload["checkpoint"] = cp
	}
	writeJSON(w, http.StatusOK, payload)
}
