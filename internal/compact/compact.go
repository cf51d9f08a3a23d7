// Package compact bounds history growth by folding punches and adjustments
// older than a retention window into the settings checkpoint. The fold is
// meaning-preserving: the net balance of the dropped records is captured in
// the checkpoint before they leave the working set.
package compact

import (
	"timebank-backend/internal/balance"
	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
)

// Input is the working set to consider for folding.
type Input struct {
	Punches       []domain.Punch
	Adjustments   []domain.Adjustment
	Settings      domain.Settings
	RetentionDays int
	Today         string
}

// Result carries the possibly-folded working set. Changed is false when
// nothing was old enough, so callers persist only on actual change.
type Result struct {
	Punches     []domain.Punch
	Adjustments []domain.Adjustment
	Settings    domain.Settings
	Changed     bool
}

// Run folds everything dated before today-(retention-1) days into the
// checkpoint. An existing checkpoint newer than the cutoff is left alone and
// only the record filter applies.
func Run(engine balance.Engine, in Input) Result {
	unchanged := Result{Punches: in.Punches, Adjustments: in.Adjustments, Settings: in.Settings}
	if in.RetentionDays <= 0 {
		return unchanged
	}

	oldestAllowed := dates.AddDays(in.Today, -(in.RetentionDays - 1))

	hasOld := false
	for _, p := range in.Punches {
		if dates.Key(p.At) < oldestAllowed {
			hasOld = true
			break
		}
	}
	if !hasOld {
		for _, a := range in.Adjustments {
			if dates.Key(a.At) < oldestAllowed {
				hasOld = true
				break
			}
		}
	}
	if !hasOld {
		return unchanged
	}

	next := in.Settings
	cp := next.Checkpoint

	if cp == nil || cp.Date < oldestAllowed {
		start := dates.YearStart(in.Today)
		starting := 0
		if cp != nil {
			start = cp.Date
			starting = cp.BalanceMinutes
		}
		folded := engine.PeriodBalance(in.Punches, in.Adjustments, in.Settings, start, dates.AddDays(oldestAllowed, -1), starting)
		next.Checkpoint = &domain.Checkpoint{Date: oldestAllowed, BalanceMinutes: folded}
	}

	cutoff := next.Checkpoint.Date

	var punches []domain.Punch
	for _, p := range in.Punches {
		if dates.Key(p.At) >= cutoff {
			punches = append(punches, p)
		}
	}
	var adjustments []domain.Adjustment
	for _, a := range in.Adjustments {
		if dates.Key(a.At) >= cutoff {
			adjustments = append(adjustments, a)
		}
	}

	return Result{Punches: punches, Adjustments: adjustments, Settings: next, Changed: true}
}
