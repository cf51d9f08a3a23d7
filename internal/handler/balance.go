package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/balance"
	"timebank-backend/internal/dates"
	syncpkg "timebank-backend/internal/sync"
)

type BalanceHandler struct {
	Engines *syncpkg.Manager
}

func (h BalanceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/balance", h.rangeBalance)
	r.Get("/balance/summary", h.summary)
}

// rangeBalance walks an explicit closed date range. Defaults to the current
// month when no range is given.
func (h BalanceHandler) rangeBalance(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	today := dates.Key(eng.Now())

	start := r.URL.Query().Get("startDate")
	end := r.URL.Query().Get("endDate")
	if start == "" && end == "" {
		start = dates.StartOfMonth(today)
		end = dates.EndOfMonth(today)
	}
	if !dates.Valid(start) {
		writeError(w, http.StatusBadRequest, "invalid startDate")
		return
	}
	if !dates.Valid(end) {
		writeError(w, http.StatusBadRequest, "invalid endDate")
		return
	}

	result := eng.Balance().RangeBalance(balance.RangeParams{
		Punches:     eng.Punches(),
		Adjustments: eng.Adjustments(),
		Settings:    eng.Settings(),
		Start:       start,
		End:         end,
		Today:       today,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"startDate":      result.EffectiveStart,
		"endDate":        end,
		"balanceMinutes": result.BalanceMinutes,
		"balance":        balance.FormatMinutes(result.BalanceMinutes),
		"missedDays":     result.MissedDays,
	})
}

// summary is the dashboard view: the year-to-date bank plus today's live
// numbers.
func (h BalanceHandler) summary(w http.ResponseWriter, r *http.Request) {
	eng := h.Engines.ForScope(scopeFrom(r))
	now := eng.Now()
	today := dates.Key(now)

	punches := eng.Punches()
	adjustments := eng.Adjustments()
	settings := eng.Settings()
	bal := eng.Balance()

	ytd := bal.YearToDate(punches, adjustments, settings, today)
	day := balance.DayPunches(punches, today)
	workedToday := bal.WorkedMinutesLive(day, now)
	targetToday := bal.DailyTargetMinutes(today, settings)

	payload := map[string]any{
		"today":              today,
		"balanceMinutes":     ytd.BalanceMinutes,
		"balance":            balance.FormatMinutes(ytd.BalanceMinutes),
		"missedDays":         ytd.MissedDays,
		"effectiveStart":     ytd.EffectiveStart,
		"workedTodayMinutes": workedToday,
		"targetTodayMinutes": targetToday,
		"nextKind":           balance.NextKind(day),
	}
	if cp := settings.Checkpoint; cp != nil {
		payload["checkpoint"] = cp
	}
	writeJSON(w, http.StatusOK, payload)
}
