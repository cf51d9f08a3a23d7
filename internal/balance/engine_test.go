package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timebank-backend/internal/domain"
)

func at(day, hm string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", day+" "+hm, time.Local)
	if err != nil {
		panic(err)
	}
	return t
}

func punch(id, day, hm string, kind domain.PunchKind) domain.Punch {
	return domain.Punch{ID: id, At: at(day, hm), Kind: kind}
}

func weekdaySettings(minutes int) domain.Settings {
	s := domain.DefaultSettings()
	s.DailyTargets = domain.DailyTargets{
		Mon: minutes, Tue: minutes, Wed: minutes, Thu: minutes, Fri: minutes,
	}
	return domain.NormalizeSettings(s)
}

func TestWorkedMinutesFullDayWithLunch(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("b", "2026-03-02", "12:00", domain.PunchLunchStart),
		punch("c", "2026-03-02", "13:00", domain.PunchLunchEnd),
		punch("d", "2026-03-02", "18:00", domain.PunchClockOut),
	}
	require.Equal(t, 480, e.WorkedMinutes(punches))
}

func TestWorkedMinutesOrderIndependent(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("d", "2026-03-02", "18:00", domain.PunchClockOut),
		punch("b", "2026-03-02", "12:00", domain.PunchLunchStart),
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("c", "2026-03-02", "13:00", domain.PunchLunchEnd),
	}
	require.Equal(t, 480, e.WorkedMinutes(punches))
}

func TestWorkedMinutesStrayLunchEndIgnored(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "13:00", domain.PunchLunchEnd),
		punch("b", "2026-03-02", "18:00", domain.PunchClockOut),
	}
	assert.Zero(t, e.WorkedMinutes(punches))
}

func TestWorkedMinutesLunchEndAfterClockOutIgnored(t *testing.T) {
	// CLOCK_OUT disarms the lunch-return gate, so a later LUNCH_END cannot
	// reopen the day.
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("b", "2026-03-02", "12:00", domain.PunchLunchStart),
		punch("c", "2026-03-02", "12:30", domain.PunchClockOut),
		punch("d", "2026-03-02", "13:00", domain.PunchLunchEnd),
	}
	require.Equal(t, 180, e.WorkedMinutes(punches))
}

func TestWorkedMinutesOpenIntervalNotCounted(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
	}
	assert.Zero(t, e.WorkedMinutes(punches))
}

func TestWorkedMinutesLiveCountsOpenInterval(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
	}
	now := at("2026-03-02", "09:30")
	require.Equal(t, 30, e.WorkedMinutesLive(punches, now))
}

func TestWorkedMinutesSecondShift(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("b", "2026-03-02", "12:00", domain.PunchClockOut),
		punch("c", "2026-03-02", "14:00", domain.PunchClockIn),
		punch("d", "2026-03-02", "17:00", domain.PunchClockOut),
	}
	require.Equal(t, 360, e.WorkedMinutes(punches))
}

func TestWorkedMinutesOtherIsAnnotationOnly(t *testing.T) {
	e := Engine{}
	punches := []domain.Punch{
		punch("a", "2026-03-02", "09:00", domain.PunchClockIn),
		punch("x", "2026-03-02", "10:00", domain.PunchOther),
		punch("b", "2026-03-02", "11:00", domain.PunchClockOut),
	}
	require.Equal(t, 120, e.WorkedMinutes(punches))
}

func TestDailyTargetMinutes(t *testing.T) {
	e := Engine{}
	s := weekdaySettings(480)

	assert.Equal(t, 480, e.DailyTargetMinutes("2026-03-02", s)) // Monday
	assert.Zero(t, e.DailyTargetMinutes("2026-03-07", s))       // Saturday, weekend off
	assert.Zero(t, e.DailyTargetMinutes("2026-01-01", s))       // holiday

	s.WeekendEnabled = true
	s.DailyTargets.Sat = 240
	assert.Equal(t, 240, e.DailyTargetMinutes("2026-03-07", s))
}

func TestDailyTargetMinutesCustomCalendar(t *testing.T) {
	e := Engine{Holidays: domain.NewHolidayCalendar([]string{"2026-03-02"})}
	s := weekdaySettings(480)
	assert.Zero(t, e.DailyTargetMinutes("2026-03-02", s))
	assert.Equal(t, 480, e.DailyTargetMinutes("2026-03-03", s))
}
