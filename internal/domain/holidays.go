package domain

// HolidayCalendar is a set of date keys (YYYY-MM-DD) with zero required minutes.
type HolidayCalendar map[string]struct{}

// defaultHolidayDates is the Brazilian national calendar for 2026. Data, not
// logic: deployments override it with HOLIDAYS_FILE.
var defaultHolidayDates = []string{
	"2026-01-01",
	"2026-02-16",
	"2026-02-17",
	"2026-04-03",
	"2026-04-21",
	"2026-05-01",
	"2026-06-04",
	"2026-07-09",
	"2026-09-07",
	"2026-10-12",
	"2026-11-02",
	"2026-11-15",
	"2026-11-20",
	"2026-12-25",
}

// NewHolidayCalendar builds a calendar from date keys.
func NewHolidayCalendar(dates []string) HolidayCalendar {
	cal := make(HolidayCalendar, len(dates))
	for _, d := range dates {
		cal[d] = struct{}{}
	}
	return cal
}

// DefaultHolidayCalendar returns the built-in calendar.
func DefaultHolidayCalendar() HolidayCalendar {
	return NewHolidayCalendar(defaultHolidayDates)
}

// Contains reports whether the date key is a holiday.
func (c HolidayCalendar) Contains(dateKey string) bool {
	_, ok := c[dateKey]
	return ok
}
