package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebank-backend/internal/dates"
	"timebank-backend/internal/domain"
)

func fullDay(idPrefix, day string) []domain.Punch {
	return []domain.Punch{
		punch(idPrefix+"-in", day, "09:00", domain.PunchClockIn),
		punch(idPrefix+"-ls", day, "12:00", domain.PunchLunchStart),
		punch(idPrefix+"-le", day, "13:00", domain.PunchLunchEnd),
		punch(idPrefix+"-out", day, "18:00", domain.PunchClockOut),
	}
}

func adjustment(id, day string, kind domain.AdjustmentKind, minutes int) domain.Adjustment {
	return domain.Adjustment{ID: id, At: dates.Noon(day), Kind: kind, Minutes: minutes}
}

func TestRangeBalanceAbsencePenalty(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Punches:  fullDay("mon", "2026-03-02"),
		Settings: weekdaySettings(480),
		Start:    "2026-03-02",
		End:      "2026-03-03",
	})
	require.Equal(t, -480, result.BalanceMinutes)
	require.Equal(t, 1, result.MissedDays)
}

func TestRangeBalanceWeekendNotAnAbsence(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Settings: weekdaySettings(480),
		Start:    "2026-03-07", // Saturday
		End:      "2026-03-08", // Sunday
	})
	assert.Zero(t, result.BalanceMinutes)
	assert.Zero(t, result.MissedDays)
}

func TestRangeBalanceMedicalLeaveExcusesEmptyDay(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Punches:     fullDay("mon", "2026-03-02"),
		Adjustments: []domain.Adjustment{adjustment("ml", "2026-03-03", domain.AdjustmentMedicalLeave, 0)},
		Settings:    weekdaySettings(480),
		Start:       "2026-03-02",
		End:         "2026-03-03",
	})
	assert.Zero(t, result.BalanceMinutes)
	assert.Zero(t, result.MissedDays)
}

func TestRangeBalanceMedicalLeaveDoesNotExemptWorkedDay(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("in", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("out", "2026-03-02", "13:00", domain.PunchClockOut),
	}
	result := e.RangeBalance(RangeParams{
		Punches:     punches,
		Adjustments: []domain.Adjustment{adjustment("ml", "2026-03-02", domain.AdjustmentMedicalLeave, 0)},
		Settings:    weekdaySettings(480),
		Start:       "2026-03-02",
		End:         "2026-03-02",
	})
	require.Equal(t, -240, result.BalanceMinutes)
	require.Zero(t, result.MissedDays)
}

func TestRangeBalanceTodayInProgressSkipped(t *testing.T) {
	e := Engine{}
	punches := append(
		fullDay("mon", "2026-03-02"),
		punch("today-in", "2026-03-03", "09:00", domain.PunchClockIn),
	)
	result := e.RangeBalance(RangeParams{
		Punches:  punches,
		Settings: weekdaySettings(480),
		Start:    "2026-03-02",
		End:      "2026-03-03",
		Today:    "2026-03-03",
	})
	assert.Zero(t, result.BalanceMinutes)
	assert.Zero(t, result.MissedDays)
}

func TestRangeBalanceEmptyTodayNotAnAbsence(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Settings: weekdaySettings(480),
		Start:    "2026-03-03",
		End:      "2026-03-03",
		Today:    "2026-03-03",
	})
	assert.Zero(t, result.BalanceMinutes)
	assert.Zero(t, result.MissedDays)
}

func TestRangeBalanceClosedTodayCounts(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Punches:  fullDay("today", "2026-03-03"),
		Settings: weekdaySettings(480),
		Start:    "2026-03-03",
		End:      "2026-03-03",
		Today:    "2026-03-03",
	})
	assert.Zero(t, result.BalanceMinutes)
}

func TestRangeBalanceAdjustmentSweep(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Punches: fullDay("mon", "2026-03-02"),
		Adjustments: []domain.Adjustment{
			adjustment("credit", "2026-03-02", domain.AdjustmentCredit, 60),
			adjustment("debit", "2026-03-02", domain.AdjustmentDebit, 15),
			adjustment("outside", "2026-02-27", domain.AdjustmentCredit, 999),
		},
		Settings: weekdaySettings(480),
		Start:    "2026-03-02",
		End:      "2026-03-02",
	})
	require.Equal(t, 45, result.BalanceMinutes)
}

func TestRangeBalanceInvertedRange(t *testing.T) {
	e := Engine{}
	result := e.RangeBalance(RangeParams{
		Settings:        weekdaySettings(480),
		Start:           "2026-03-05",
		End:             "2026-03-02",
		StartingBalance: 42,
	})
	require.Equal(t, 42, result.BalanceMinutes)
}

func TestYearToDateSeedsFromCheckpoint(t *testing.T) {
	e := Engine{}
	s := weekdaySettings(480)
	s.Checkpoint = &domain.Checkpoint{Date: "2026-03-02", BalanceMinutes: 100}

	// A punch before the checkpoint must not count again.
	punches := append(fullDay("old", "2026-02-27"), fullDay("mon", "2026-03-02")...)

	result := e.YearToDate(punches, nil, s, "2026-03-02")
	require.Equal(t, "2026-03-02", result.EffectiveStart)
	require.Equal(t, 100, result.BalanceMinutes)
}

func TestYearToDateFloorsAtYearStart(t *testing.T) {
	e := Engine{}
	s := weekdaySettings(480)
	s.Checkpoint = &domain.Checkpoint{Date: "2025-11-01", BalanceMinutes: 100}

	result := e.YearToDate(fullDay("mon", "2026-01-05"), nil, s, "2026-01-05")
	// The walk starts at January 1, not at the stale checkpoint date, but the
	// checkpoint balance still seeds it. Jan 1 is a holiday and Jan 2 a Friday
	// absence.
	require.Equal(t, "2026-01-01", result.EffectiveStart)
	require.Equal(t, 100-480, result.BalanceMinutes)
	require.Equal(t, 1, result.MissedDays)
}
