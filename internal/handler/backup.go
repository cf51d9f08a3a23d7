package handler

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/backup"
	syncpkg "timebank-backend/internal/sync"
)

// maxBackupBytes bounds an import body. Years of punches fit in well under a
// megabyte.
const maxBackupBytes = 16 << 20

type BackupHandler struct {
	Engines *syncpkg.Manager
}

func (h BackupHandler) RegisterRoutes(r chi.Router) {
	r.Get("/backup/export", h.export)
	r.Post("/backup/import", h.importBackup)
}

func (h BackupHandler) export(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	payload := backup.Create(eng.Scope().ID(), eng.Punches(), eng.Adjustments(), eng.Settings(), eng.Now())
	data, err := backup.Encode(payload)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	filename := fmt.Sprintf("timebank_%s.json", payload.ExportedAt.Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	_, _ = w.Write(data)
}

// importBackup validates the whole payload before touching any state, then
// replaces the scope's working set and reconciles.
func (h BackupHandler) importBackup(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBackupBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	payload, err := backup.Parse(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	eng := h.Engines.ForScope(scopeFrom(r))
	eng.RestoreSnapshot(r.Context(), payload.Punches, payload.Adjustments, payload.Settings)
	if err := eng.Sync(r.Context()); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"restored":    true,
			"punches":     len(payload.Punches),
			"adjustments": len(payload.Adjustments),
			"syncError":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"restored":    true,
		"punches":     len(payload.Punches),
		"adjustments": len(payload.Adjustments),
	})
}
