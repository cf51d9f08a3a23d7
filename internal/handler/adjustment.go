package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
	syncpkg "timebank-backend/internal/sync"
)

type AdjustmentHandler struct {
	Engines *syncpkg.Manager
}

func (h AdjustmentHandler) RegisterRoutes(r chi.Router) {
	r.Get("/adjustments", h.list)
	r.Post("/adjustments", h.create)
	r.Put("/adjustments/{id}", h.update)
	r.Delete("/adjustments/{id}", h.delete)
}

type adjustmentRequest struct {
	Date          string `json:"date"`
	Kind          string `json:"kind"`
	Minutes       int    `json:"minutes"`
	Justification string `json:"justification"`
}

func (req adjustmentRequest) toDomain(id string) (domain.Adjustment, string) {
	if !dates.Valid(req.Date) {
		return domain.Adjustment{}, "invalid date"
	}
	kind := domain.AdjustmentKind(req.Kind)
	if !domain.ValidAdjustmentKind(kind) {
		return domain.Adjustment{}, "unknown adjustment kind"
	}
	if req.Minutes < 0 {
		return domain.Adjustment{}, "minutes must not be negative"
	}
	minutes := req.Minutes
	if kind == domain.AdjustmentMedicalLeave {
		minutes = 0
	}
	return domain.Adjustment{
		ID:            id,
		At:            dates.Noon(req.Date),
		Kind:          kind,
		Minutes:       minutes,
		Justification: req.Justification,
	}, ""
}

func (h AdjustmentHandler) list(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	writeJSON(w, http.StatusOK, eng.Adjustments())
}

func (h AdjustmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	adj, problem := req.toDomain(domain.NewID())
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}
	eng := h.Engines.ForScope(scopeFrom(r))
	eng.AddAdjustment(r.Context(), adj)
	writeJSON(w, http.StatusCreated, adj)
}

func (h AdjustmentHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req adjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	adj, problem := req.toDomain(id)
	if problem != "" {
		writeError(w, http.StatusBadRequest, problem)
		return
	}
	eng := h.Engines.ForScope(scopeFrom(r))
	if !adjustmentExists(eng.Adjustments(), id) {
		writeError(w, http.StatusNotFound, "adjustment not found")
		return
	}
	eng.UpdateAdjustment(r.Context(), adj)
	writeJSON(w, http.StatusOK, adj)
}

func (h AdjustmentHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	eng := h.Engines.ForScope(scopeFrom(r))
	if !adjustmentExists(eng.Adjustments(), id) {
		writeError(w, http.StatusNotFound, "adjustment not found")
		return
	}
	eng.DeleteAdjustment(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

func adjustmentExists(adjustments []domain.Adjustment, id string) bool {
	for _, a := range adjustments {
		if a.ID == id {
			return true
		}
	}
	return false
}
