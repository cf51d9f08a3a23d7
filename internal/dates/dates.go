// Package dates provides calendar-day key helpers. A date key is the local
// calendar day formatted as YYYY-MM-DD; keys compare correctly as strings.
package dates

import "time"

const keyLayout = "2006-01-02"

// Key returns the date key for the local calendar day of t.
func Key(t time.Time) string {
	return t.Local().Format(keyLayout)
}

// Valid reports whether s is a well-formed date key.
func Valid(s string) bool {
	_, err := time.ParseInLocation(keyLayout, s, time.Local)
	return err == nil
}

// Parse returns local midnight of the keyed day. A malformed key yields the
// zero time.
func Parse(key string) time.Time {
	t, err := time.ParseInLocation(keyLayout, key, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Noon returns local noon of the keyed day, the anchor instant used for
// date-only records so timezone conversion cannot shift them across midnight.
func Noon(key string) time.Time {
	return Parse(key).Add(12 * time.Hour)
}

// EndOfDay returns the last instant counted as belonging to the keyed day.
func EndOfDay(key string) time.Time {
	return Parse(key).Add(24*time.Hour - time.Nanosecond)
}

// AddDays shifts a date key by delta calendar days.
func AddDays(key string, delta int) string {
	return Key(Parse(key).AddDate(0, 0, delta))
}

// StartOfMonth returns the key of the first day of the keyed month.
func StartOfMonth(key string) string {
	t := Parse(key)
	return Key(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.Local))
}

// EndOfMonth returns the key of the last day of the keyed month.
func EndOfMonth(key string) string {
	t := Parse(key)
	return Key(time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.Local))
}

// Range lists every key from start to end inclusive. An inverted range yields
// only end, matching the walk semantics of the balance engine.
func Range(start, end string) []string {
	if end < start {
		return []string{end}
	}
	var out []string
	for d := start; d <= end; d = AddDays(d, 1) {
		out = append(out, d)
	}
	return out
}

// YearStart returns January 1 of the keyed day's year.
func YearStart(key string) string {
	t := Parse(key)
	return Key(time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.Local))
}

// YearEnd returns December 31 of the keyed day's year.
func YearEnd(key string) string {
	t := Parse(key)
	return Key(time.Date(t.Year(), time.December, 31, 0, 0, 0, 0, time.Local))
}
