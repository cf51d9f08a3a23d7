// Package balance computes worked minutes and time-bank balances. Everything
// here is pure: no I/O, no clocks other than the instants passed in.
package balance

import (
	"math"
	"time"

	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
)

// Engine evaluates punch sequences against journey settings. The zero value
// uses the built-in holiday calendar.
type Engine struct {
	Holidays domain.HolidayCalendar
}

func (e Engine) holidays() domain.HolidayCalendar {
	if e.Holidays != nil {
		return e.Holidays
	}
	return domain.DefaultHolidayCalendar()
}

// intervalState tracks the open work interval while scanning a day's punches.
type intervalState int

const (
	stateClosed intervalState = iota
	stateOpenFromClockIn
	stateOpenFromLunchEnd
)

// WorkedMinutes totals the closed work intervals of a punch sequence. An
// interval left open contributes nothing; use WorkedMinutesLive for a day in
// progress.
func (e Engine) WorkedMinutes(punches []domain.Punch) int {
	return workedMinutes(punches, nil)
}

// WorkedMinutesLive totals worked time including an open interval up to now.
func (e Engine) WorkedMinutesLive(punches []domain.Punch, now time.Time) int {
	return workedMinutes(punches, &now)
}

// workedMinutes scans the punches oldest-first through a small state machine:
//
//	CLOCK_IN     opens an interval when none is open and invalidates any
//	             earlier lunch departure (a new cycle begins)
//	LUNCH_START  closes an interval opened by CLOCK_IN and arms the
//	             lunch-return gate
//	LUNCH_END    reopens only when the gate is armed; a stray return with no
//	             matching departure is ignored
//	CLOCK_OUT    closes whatever is open and disarms the gate
//	OTHER        annotation only, never touches the machine
func workedMinutes(punches []domain.Punch, now *time.Time) int {
	if len(punches) == 0 {
		return 0
	}
	ordered := domain.SortPunchesAsc(punches)

	var total time.Duration
	state := stateClosed
	var openedAt time.Time
	awaitingLunchReturn := false

	closeAt := func(t time.Time) {
		if d := t.Sub(openedAt); d > 0 {
			total += d
		}
		state = stateClosed
	}

	for _, p := range ordered {
		switch p.Kind {
		case domain.PunchOther:
			continue

		case domain.PunchClockIn:
			if state == stateClosed {
				state = stateOpenFromClockIn
				openedAt = p.At
			}
			awaitingLunchReturn = false

		case domain.PunchLunchEnd:
			if state == stateClosed && awaitingLunchReturn {
				state = stateOpenFromLunchEnd
				openedAt = p.At
			}

		case domain.PunchLunchStart:
			if state == stateOpenFromClockIn {
				closeAt(p.At)
				awaitingLunchReturn = true
			}

		case domain.PunchClockOut:
			if state != stateClosed {
				closeAt(p.At)
			}
			awaitingLunchReturn = false
		}
	}

	if state != stateClosed && now != nil {
		if d := now.Sub(openedAt); d > 0 {
			total += d
		}
	}

	return int(math.Round(float64(total.Milliseconds()) / 60000))
}

// DailyTargetMinutes resolves the required minutes for a day: zero on
// holidays, zero on weekends unless the weekend journey is enabled, otherwise
// the configured weekday target.
func (e Engine) DailyTargetMinutes(dateKey string, s domain.Settings) int {
	if e.holidays().Contains(dateKey) {
		return 0
	}
	t := dates.Parse(dateKey)
	if t.IsZero() {
		return 0
	}
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		if !s.WeekendEnabled {
			return 0
		}
	}
	return s.DailyTargets.Weekday(wd)
}
