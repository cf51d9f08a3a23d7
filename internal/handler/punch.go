package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
	syncpkg "timebank-backend/internal/sync"
)

type PunchHandler struct {
	Engines *syncpkg.Manager
}

func (h PunchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/punches", h.list)
	r.Post("/punches", h.create)
	r.Put("/punches/{id}", h.update)
	r.Delete("/punches/{id}", h.delete)
	r.Get("/days/{date}", h.day)
	r.Put("/days/{date}/punches", h.replaceDay)
}

func (h PunchHandler) list(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	punches := eng.Punches()

	if date := r.URL.Query().Get("date"); date != "" {
		if !dates.Valid(date) {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		writeJSON(w, http.StatusOK, balance.DayPunches(punches, date))
		return
	}

	startDate, err := parseDateQuery(r, "startDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	endDate, err := parseDateQuery(r, "endDate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}
	if startDate != nil && endDate != nil && startDate.After(*endDate) {
		writeError(w, http.StatusBadRequest, "startDate must be before endDate")
		return
	}
	if startDate != nil || endDate != nil {
		filtered := punches[:0:0]
		for _, p := range punches {
			if startDate != nil && p.At.Before(*startDate) {
				continue
			}
			if endDate != nil && !p.At.Before(dates.EndOfDay(dates.Key(*endDate))) {
				continue
			}
			filtered = append(filtered, p)
		}
		punches = filtered
	}
	writeJSON(w, http.StatusOK, punches)
}

// create records a punch. When kind is omitted the next step of the day's
// in / lunch-out / lunch-back / out rhythm is used.
func (h PunchHandler) create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		At   *time.Time `json:"at"`
		Kind string     `json:"kind"`
		Note string     `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	eng := h.Engines.ForScope(scopeFrom(r))
	at := eng.Now()
	if req.At != nil {
		at = *req.At
	}

	kind := domain.PunchKind(req.Kind)
	if req.Kind == "" {
		kind = balance.NextKind(balance.DayPunches(eng.Punches(), dates.Key(at)))
	} else if !domain.ValidPunchKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown punch kind")
		return
	}

	punch := domain.Punch{
		ID:   domain.NewID(),
		At:   at,
		Kind: kind,
		Note: req.Note,
	}
	eng.AddPunch(r.Context(), punch)
	writeJSON(w, http.StatusCreated, punch)
}

func (h PunchHandler) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req struct {
		At   time.Time `json:"at"`
		Kind string    `json:"kind"`
		Note string    `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	kind := domain.PunchKind(req.Kind)
	if !domain.ValidPunchKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown punch kind")
		return
	}
	if req.At.IsZero() {
		writeError(w, http.StatusBadRequest, "at is required")
		return
	}

	eng := h.Engines.ForScope(scopeFrom(r))
	if !punchExists(eng.Punches(), id) {
		writeError(w, http.StatusNotFound, "punch not found")
		return
	}
	punch := domain.Punch{ID: id, At: req.At, Kind: kind, Note: req.Note}
	eng.UpdatePunch(r.Context(), punch)
	writeJSON(w, http.StatusOK, punch)
}

func (h PunchHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	eng := h.Engines.ForScope(scopeFrom(r))
	if !punchExists(eng.Punches(), id) {
		writeError(w, http.StatusNotFound, "punch not found")
		return
	}
	eng.DeletePunch(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}

// day assembles the journey view of one date: its punches plus the live
// numbers the tracking screen shows.
func (h PunchHandler) day(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !dates.Valid(date) {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}

	eng := h.Engines.ForScope(scopeFrom(r))
	now := eng.Now()
	punches := eng.Punches()
	settings := eng.Settings()
	bal := eng.Balance()

	day := balance.DayPunches(punches, date)
	worked := bal.WorkedMinutes(day)
	if date == dates.Key(now) {
		worked = bal.WorkedMinutesLive(day, now)
	}
	target := bal.DailyTargetMinutes(date, settings)
	overtime := bal.LiveOvertime(date, punches, now, settings)

	payload := map[string]any{
		"date":            date,
		"punches":         day,
		"workedMinutes":   worked,
		"targetMinutes":   target,
		"nextKind":        balance.NextKind(day),
		"overtimeMinutes": overtime,
		"overtimeWarning": overtime >= domain.OvertimeDailyCapMinutes-domain.OvertimeWarnBeforeMinutes,
	}
	if latest := bal.LatestClockOut(date, punches, domain.OvertimeDailyCapMinutes, settings); latest != nil {
		payload["latestClockOut"] = latest.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, payload)
}

// replaceDay swaps one day's punches for an edited set. Only the rows that
// actually changed are dispatched to the remote store.
func (h PunchHandler) replaceDay(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if !dates.Valid(date) {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	var req struct {
		Punches []domain.Punch `json:"punches"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	for i := range req.Punches {
		if req.Punches[i].ID == "" {
			req.Punches[i].ID = domain.NewID()
		}
		if !domain.ValidPunchKind(req.Punches[i].Kind) {
			writeError(w, http.StatusBadRequest, "unknown punch kind")
			return
		}
		if dates.Key(req.Punches[i].At) != date {
			writeError(w, http.StatusBadRequest, "punch outside day")
			return
		}
	}

	eng := h.Engines.ForScope(scopeFrom(r))
	eng.ReplaceDayPunches(r.Context(), date, req.Punches)
	writeJSON(w, http.StatusOK, balance.DayPunches(eng.Punches(), date))
}

func punchExists(punches []domain.Punch, id string) bool {
	for _, p := range punches {
		if p.ID == id {
			return true
		}
	}
	return false
}
