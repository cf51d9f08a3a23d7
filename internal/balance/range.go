package balance

import (
	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
)

// RangeParams describes a balance walk over a closed date range.
type RangeParams struct {
	Punches         []domain.Punch
	Adjustments     []domain.Adjustment
	Settings        domain.Settings
	Start           string
	End             string
	StartingBalance int
	// Today, when set to a key inside the range, enables the day-in-progress
	// rule: a today with punches but no clock-out is left out of the balance,
	// and an empty today never counts as an absence.
	Today string
}

// RangeResult is the outcome of a balance walk.
type RangeResult struct {
	BalanceMinutes int    `json:"balanceMinutes"`
	MissedDays     int    `json:"missedDays"`
	EffectiveStart string `json:"effectiveStart"`
}

// RangeBalance walks each day from Start to End inclusive, applying the daily
// worked-versus-target delta, the absence penalty for empty required days not
// excused by medical leave, and finally sweeping date-tagged adjustments over
// the range. The two phases stay separate so a credit on a worked day is never
// double-counted against absence detection.
func (e Engine) RangeBalance(p RangeParams) RangeResult {
	result := RangeResult{BalanceMinutes: p.StartingBalance, EffectiveStart: p.Start}
	if p.End < p.Start {
		return result
	}

	punchesByDay := make(map[string][]domain.Punch)
	for _, punch := range p.Punches {
		k := dates.Key(punch.At)
		punchesByDay[k] = append(punchesByDay[k], punch)
	}
	adjustmentsByDay := make(map[string][]domain.Adjustment)
	for _, a := range p.Adjustments {
		k := dates.Key(a.At)
		adjustmentsByDay[k] = append(adjustmentsByDay[k], a)
	}

	hasMedicalLeave := func(day string) bool {
		for _, a := range adjustmentsByDay[day] {
			if a.Kind == domain.AdjustmentMedicalLeave {
				return true
			}
		}
		return false
	}

	for day := p.Start; day <= p.End; day = dates.AddDays(day, 1) {
		target := e.DailyTargetMinutes(day, p.Settings)
		dayPunches := punchesByDay[day]
		hasAny := len(dayPunches) > 0
		excused := hasMedicalLeave(day)

		if day == p.Today {
			if !hasAny {
				continue
			}
			if !hasClockOut(dayPunches) && !excused {
				continue
			}
		}

		if !hasAny {
			if target > 0 && !excused {
				result.BalanceMinutes -= target
				result.MissedDays++
			}
			continue
		}

		result.BalanceMinutes += e.WorkedMinutes(dayPunches) - target
	}

	for _, a := range p.Adjustments {
		day := dates.Key(a.At)
		if day < p.Start || day > p.End {
			continue
		}
		result.BalanceMinutes += a.SignedMinutes()
	}

	return result
}

// PeriodBalance accumulates a plain balance over a range with no today rule.
// Compaction uses it to fold history into the checkpoint.
func (e Engine) PeriodBalance(punches []domain.Punch, adjustments []domain.Adjustment, s domain.Settings, start, end string, startingBalance int) int {
	return e.RangeBalance(RangeParams{
		Punches:         punches,
		Adjustments:     adjustments,
		Settings:        s,
		Start:           start,
		End:             end,
		StartingBalance: startingBalance,
	}).BalanceMinutes
}

// YearToDate computes the running balance from the start of today's year (or
// the settings checkpoint, whichever is later) through today. The checkpoint
// balance seeds the walk, so folded history keeps counting.
func (e Engine) YearToDate(punches []domain.Punch, adjustments []domain.Adjustment, s domain.Settings, today string) RangeResult {
	floor := dates.YearStart(today)
	start := floor
	starting := 0
	if cp := s.Checkpoint; cp != nil {
		starting = cp.BalanceMinutes
		if cp.Date > floor {
			start = cp.Date
		}
	}

	end := today
	if yearEnd := dates.YearEnd(today); end > yearEnd {
		end = yearEnd
	}

	return e.RangeBalance(RangeParams{
		Punches:         punches,
		Adjustments:     adjustments,
		Settings:        s,
		Start:           start,
		End:             end,
		StartingBalance: starting,
		Today:           today,
	})
}

func hasClockOut(punches []domain.Punch) bool {
	for _, p := range punches {
		if p.Kind == domain.PunchClockOut {
			return true
		}
	}
	return false
}
