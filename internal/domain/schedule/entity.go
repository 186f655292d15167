// Package schedule contains the schedule domain model: lessons, per-day
// results, and the aggregated period result handed to the rendering layer.
package schedule

import (
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

// Lesson is a single lesson in a day's schedule, as returned by one
// remote query. Optional fields may be empty and must render without error.
type Lesson struct {
	// Number is the lesson's position in the day, assigned after sorting
	// by start time (1-based).
	Number int

	// Subject is the subject name.
	Subject string

	// StartTime and EndTime are "HH:MM" wall-clock strings in Moscow time.
	StartTime string
	EndTime   string

	// Teacher is the teacher's name (optional).
	Teacher string

	// Room is the room number or name (optional).
	Room string

	// Kind is the lesson type, e.g. "control work" (optional).
	Kind string
}

// DayResult is the outcome of fetching one calendar day. Exactly one of
// three states holds: lessons were fetched (possibly zero — a day with no
// lessons is not an error), or the fetch failed and Err records why.
type DayResult struct {
	Date    time.Time
	Lessons []Lesson
	Err     error
}

// Failed reports whether this day's fetch failed.
func (d DayResult) Failed() bool {
	return d.Err != nil
}

// Empty reports whether the day was fetched successfully but has no lessons.
func (d DayResult) Empty() bool {
	return d.Err == nil && len(d.Lessons) == 0
}

// PeriodResult is the ordered sequence of day results for the requested
// period: one entry for "today"/"tomorrow", five (Monday through Friday)
// for "week". Day order is preserved regardless of which remote calls
// succeeded first.
type PeriodResult struct {
	Days []DayResult
}

// AllFailed reports whether every requested day ended in failure. The
// caller decides whether that warrants a single combined error message.
func (p *PeriodResult) AllFailed() bool {
	if len(p.Days) == 0 {
		return false
	}
	for _, d := range p.Days {
		if !d.Failed() {
			return false
		}
	}
	return true
}

// PeriodKind selects which schedule window the user asked for. The values
// travel inside callback payloads, so they must stay short and stable.
type PeriodKind string

const (
	PeriodToday    PeriodKind = "today"
	PeriodTomorrow PeriodKind = "tomorrow"
	PeriodWeek     PeriodKind = "week"
)

// Valid reports whether the kind is one of the known period selectors.
func (k PeriodKind) Valid() bool {
	switch k {
	case PeriodToday, PeriodTomorrow, PeriodWeek:
		return true
	}
	return false
}

// Period is a resolved fetch window: a kind plus the anchor date it was
// resolved against.
type Period struct {
	Kind   PeriodKind
	Anchor time.Time
}

// ResolvePeriod binds a period kind to an anchor date (normally "now").
func ResolvePeriod(kind PeriodKind, anchor time.Time) Period {
	return Period{Kind: kind, Anchor: anchor}
}

// Dates returns the calendar days the period covers, in order: a single
// day for today/tomorrow, Monday through Friday for week.
func (p Period) Dates() []time.Time {
	switch p.Kind {
	case PeriodTomorrow:
		return []time.Time{timeutil.StartOfDay(p.Anchor).AddDate(0, 0, 1)}
	case PeriodWeek:
		return timeutil.SchoolWeekDates(p.Anchor)
	default:
		return []time.Time{timeutil.StartOfDay(p.Anchor)}
	}
}
