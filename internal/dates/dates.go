// Package dates holds calendar-day helpers shared by the analytics engine,
// the API and the CLI. Days are "YYYY-MM-DD" strings in the caller's location.
package dates

import (
	"time"
)

const ISOLayout = "2006-01-02"

var dayNames = [...]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var dayAbbrs = [...]string{"S", "M", "T", "W", "T", "F", "S"}

// FormatISO formats t's calendar date in t's own location.
func FormatISO(t time.Time) string {
	return t.Format(ISOLayout)
}

// Today returns now's calendar date.
func Today(now time.Time) string {
	return FormatISO(now)
}

// ParseISO parses a civil date. The result is midnight UTC, so weekday
// lookups do not depend on the process time zone.
func ParseISO(s string) (time.Time, error) {
	return time.Parse(ISOLayout, s)
}

// Valid reports whether s is a well-formed YYYY-MM-DD date.
func Valid(s string) bool {
	_, err := ParseISO(s)
	return err == nil
}

// DaysAgo returns the calendar date n days before now.
func DaysAgo(now time.Time, n int) string {
	// noon keeps AddDate clear of DST transitions
	anchor := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
	return FormatISO(anchor.AddDate(0, 0, -n))
}

// LastNDays returns the n calendar dates ending today, oldest first.
func LastNDays(now time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := n - 1; i >= 0; i-- {
		out = append(out, DaysAgo(now, i))
	}
	return out
}

// NextDay returns the date after s, or "" when s is malformed.
func NextDay(s string) string {
	t, err := ParseISO(s)
	if err != nil {
		return ""
	}
	return FormatISO(t.AddDate(0, 0, 1))
}

// Weekday returns the day of week for s. ok is false for malformed input.
func Weekday(s string) (day time.Weekday, ok bool) {
	t, err := ParseISO(s)
	if err != nil {
		return 0, false
	}
	return t.Weekday(), true
}

// IsWeekend reports whether s falls on Saturday or Sunday.
func IsWeekend(s string) bool {
	d, ok := Weekday(s)
	return ok && (d == time.Saturday || d == time.Sunday)
}

func DayName(d time.Weekday) string {
	return dayNames[d]
}

// DayAbbr returns the one-letter chart label for s.
func DayAbbr(s string) string {
	d, ok := Weekday(s)
	if !ok {
		return ""
	}
	return dayAbbrs[d]
}

// Greeting picks a salutation from the hour of now.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 17:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
