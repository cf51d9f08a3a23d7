package balance

import (
	"fmt"
	"time"

	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
)

// NextKind suggests the next punch for a day based on how many were recorded,
// following the usual in / lunch-out / lunch-back / out rhythm.
func NextKind(dayPunches []domain.Punch) domain.PunchKind {
	switch len(dayPunches) {
	case 0:
		return domain.PunchClockIn
	case 1:
		return domain.PunchLunchStart
	case 2:
		return domain.PunchLunchEnd
	default:
		return domain.PunchClockOut
	}
}

// DayPunches filters and chronologically sorts the punches of one day.
func DayPunches(punches []domain.Punch, dateKey string) []domain.Punch {
	var day []domain.Punch
	for _, p := range punches {
		if dates.Key(p.At) == dateKey {
			day = append(day, p)
		}
	}
	return domain.SortPunchesAsc(day)
}

// LiveOvertime returns the minutes worked beyond the day's target as of now,
// zero while still under target or on days with no target.
func (e Engine) LiveOvertime(dateKey string, punches []domain.Punch, now time.Time, s domain.Settings) int {
	target := e.DailyTargetMinutes(dateKey, s)
	if target <= 0 {
		return 0
	}
	day := DayPunches(punches, dateKey)
	if len(day) == 0 {
		return 0
	}
	worked := e.WorkedMinutesLive(day, now)
	if worked <= target {
		return 0
	}
	return worked - target
}

// LatestClockOut projects the latest allowed departure for a day: first punch
// plus lunch, target and the overtime cap. The lunch span comes from the
// second and third punches when present, otherwise a one hour default. Returns
// nil on days with no target or no punches.
func (e Engine) LatestClockOut(dateKey string, punches []domain.Punch, capMinutes int, s domain.Settings) *time.Time {
	target := e.DailyTargetMinutes(dateKey, s)
	if target <= 0 {
		return nil
	}
	day := DayPunches(punches, dateKey)
	if len(day) == 0 {
		return nil
	}

	lunchMinutes := 60
	if len(day) >= 3 {
		if span := day[2].At.Sub(day[1].At); span > 0 {
			lunchMinutes = int(span.Round(time.Minute) / time.Minute)
		} else {
			lunchMinutes = 0
		}
	}

	latest := day[0].At.Add(time.Duration(lunchMinutes+target+capMinutes) * time.Minute)
	return &latest
}

// FormatMinutes renders a signed balance as ±HH:MM.
func FormatMinutes(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
	}
	return sign + FormatMinutesUnsigned(minutes)
}

// FormatMinutesUnsigned renders |minutes| as HH:MM.
func FormatMinutesUnsigned(minutes int) string {
	if minutes < 0 {
		minutes = -minutes
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
