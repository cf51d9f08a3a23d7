package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/domain"
	syncpkg "timebank-backend/internal/sync"
)

type SettingsHandler struct {
	Engines *syncpkg.Manager
}

func (h SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.get)
	r.Put("/settings", h.put)
}

func (h SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	writeJSON(w, http.StatusOK, eng.Settings())
}

// put replaces the settings document. The engine stamps the conflict clock;
// any updatedAt sent by the client is ignored.
func (h SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var req domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	eng := h.Engines.ForScope(scopeFrom(r))

	// The checkpoint is owned by compaction; a settings write cannot move it.
	req.Checkpoint = eng.Settings().Checkpoint

	saved := eng.UpdateSettings(r.Context(), req)
	writeJSON(w, http.StatusOK, saved)
}
