// Package timeutil provides timezone utilities for Moscow timezone (UTC+3).
// The MES education portal operates on Moscow time, so all schedule dates
// are computed in this timezone regardless of where the bot is deployed.
// No external dependencies - uses only standard library.
package timeutil

import (
	"fmt"
	"time"
)

// MoscowTZ is the Moscow timezone (UTC+3, no DST).
// Russia abolished DST in 2014, so this is constant year-round.
var MoscowTZ = time.FixedZone("Europe/Moscow", 3*60*60)

// Now returns the current time in Moscow timezone.
func Now() time.Time {
	return time.Now().In(MoscowTZ)
}

// ToMoscow converts a time to Moscow timezone.
func ToMoscow(t time.Time) time.Time {
	return t.In(MoscowTZ)
}

// Date creates a time in Moscow timezone with the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, MoscowTZ)
}

// StartOfDay returns the start of the day (00:00:00) in Moscow timezone.
func StartOfDay(t time.Time) time.Time {
	msk := ToMoscow(t)
	return time.Date(msk.Year(), msk.Month(), msk.Day(), 0, 0, 0, 0, MoscowTZ)
}

// StartOfWeek returns the Monday (00:00:00) of the week containing t,
// in Moscow timezone.
func StartOfWeek(t time.Time) time.Time {
	msk := ToMoscow(t)
	weekday := int(msk.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	daysToSubtract := weekday - 1 // Monday = 1
	return StartOfDay(msk.AddDate(0, 0, -daysToSubtract))
}

// SchoolWeekDates returns the five weekday dates (Monday through Friday)
// of the week containing the anchor date, in Moscow timezone.
func SchoolWeekDates(anchor time.Time) []time.Time {
	monday := StartOfWeek(anchor)
	dates := make([]time.Time, 5)
	for i := 0; i < 5; i++ {
		dates[i] = monday.AddDate(0, 0, i)
	}
	return dates
}

// SameDay checks if two times fall on the same calendar day in Moscow timezone.
func SameDay(a, b time.Time) bool {
	am, bm := ToMoscow(a), ToMoscow(b)
	return am.Year() == bm.Year() && am.Month() == bm.Month() && am.Day() == bm.Day()
}

// FormatISODate formats a time as YYYY-MM-DD, the date format the MES
// events API expects.
func FormatISODate(t time.Time) string {
	return ToMoscow(t).Format("2006-01-02")
}

// FormatClock formats a time as HH:MM in Moscow timezone.
func FormatClock(t time.Time) string {
	return ToMoscow(t).Format("15:04")
}

// ParseISODate parses a YYYY-MM-DD date into a Moscow-timezone time.
func ParseISODate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, MoscowTZ)
	if err != nil {
		return time.Time{}, fmt.Errorf("timeutil: parse date %q: %w", s, err)
	}
	return t, nil
}
