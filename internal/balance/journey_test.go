package balance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebank-backend/internal/domain"
)

func TestNextKind(t *testing.T) {
	day := []domain.Punch{}
	assert.Equal(t, domain.PunchClockIn, NextKind(day))

	day = append(day, punch("a", "2026-03-02", "09:00", domain.PunchClockIn))
	assert.Equal(t, domain.PunchLunchStart, NextKind(day))

	day = append(day, punch("b", "2026-03-02", "12:00", domain.PunchLunchStart))
	assert.Equal(t, domain.PunchLunchEnd, NextKind(day))

	day = append(day, punch("c", "2026-03-02", "13:00", domain.PunchLunchEnd))
	assert.Equal(t, domain.PunchClockOut, NextKind(day))

	day = append(day, punch("d", "2026-03-02", "18:00", domain.PunchClockOut))
	assert.Equal(t, domain.PunchClockOut, NextKind(day))
}

func TestDayPunchesFiltersAndSorts(t *testing.T) {
	punches := []domain.Punch{
		punch("b", "2026-03-02", "12:00", domain.PunchClockOut),
		punch("c", "2026-03-03", "09:00", domain.PunchClockIn),
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
	}
	day := DayPunches(punches, "2026-03-02")
	require.Len(t, day, 2)
	assert.Equal(t, "a", day[0].ID)
	assert.Equal(t, "b", day[1].ID)
}

func TestLiveOvertime(t *testing.T) {
	e := Engine{}
	s := weekdaySettings(480)
	punches := []domain.Punch{
		punch("in", "2026-03-02", "08:00", domain.PunchClockIn),
	}

	assert.Zero(t, e.LiveOvertime("2026-03-02", punches, at("2026-03-02", "12:00"), s))
	assert.Equal(t, 30, e.LiveOvertime("2026-03-02", punches, at("2026-03-02", "16:30"), s))
	// No target, no overtime.
	assert.Zero(t, e.LiveOvertime("2026-03-07", punches, at("2026-03-07", "23:00"), s))
}

func TestLatestClockOut(t *testing.T) {
	e := Engine{}
	s := weekdaySettings(480)

	day := []domain.Punch{
		punch("in", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("ls", "2026-03-02", "12:00", domain.PunchLunchStart),
		punch("le", "2026-03-02", "13:30", domain.PunchLunchEnd),
	}
	latest := e.LatestClockOut("2026-03-02", day, domain.OvertimeDailyCapMinutes, s)
	require.NotNil(t, latest)
	// 09:00 + 90min lunch + 480min target + 120min cap.
	assert.Equal(t, at("2026-03-02", "20:30"), *latest)

	// Before lunch is recorded a one hour default applies.
	latest = e.LatestClockOut("2026-03-02", day[:1], domain.OvertimeDailyCapMinutes, s)
	require.NotNil(t, latest)
	assert.Equal(t, at("2026-03-02", "20:00"), *latest)

	assert.Nil(t, e.LatestClockOut("2026-03-07", day, domain.OvertimeDailyCapMinutes, s))
	assert.Nil(t, e.LatestClockOut("2026-03-03", nil, domain.OvertimeDailyCapMinutes, s))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "+01:05", FormatMinutes(65))
	assert.Equal(t, "-02:30", FormatMinutes(-150))
	assert.Equal(t, "+00:00", FormatMinutes(0))
	assert.Equal(t, "08:00", FormatMinutesUnsigned(-480))
}
