package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timebank-backend/internal/dates"
	"timebank-backend/internal/report"
	syncpkg "timebank-backend/internal/sync"
)

type ReportHandler struct {
	Engines *syncpkg.Manager
}

func (h ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/report/export", h.export)
}

func (h ReportHandler) export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	eng := h.Engines.ForScope(scopeFrom(r))
	today := dates.Key(eng.Now())

	month := r.URL.Query().Get("month")
	if month == "" {
		month = today[:7]
	}

	m, err := report.BuildMonth(eng.Balance(), eng.Punches(), eng.Adjustments(), eng.Settings(), month, today)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch format {
	case "csv":
		data, err := report.EncodeCSV(m)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"timebank_%s.csv\"", month))
		_, _ = w.Write(data)
	case "xlsx", "excel":
		data, err := report.EncodeXLSX(m)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"timebank_%s.xlsx\"", month))
		_, _ = w.Write(data)
	default:
		writeError(w, http.StatusBadRequest, "invalid format (use csv or xlsx)")
	}
}
