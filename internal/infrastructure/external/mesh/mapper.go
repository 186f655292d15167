package mesh

import (
	"sort"
	"strings"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

// planSource marks curriculum lessons in the event calendar. The calendar
// also carries holidays, clubs and organizer notes under other sources.
const planSource = "PLAN"

// mapLessons converts raw calendar events into domain lessons: only PLAN
// events count, they are ordered by start time and numbered from 1.
// Events with unparsable timestamps are dropped rather than failing the
// whole day.
func mapLessons(events []eventDTO) []schedule.Lesson {
	type timed struct {
		start  time.Time
		lesson schedule.Lesson
	}

	var timeds []timed
	for _, e := range events {
		if e.Source != planSource {
			continue
		}
		start, ok := parseEventTime(e.StartAt)
		if !ok {
			continue
		}

		lesson := schedule.Lesson{
			Subject:   e.subject(),
			StartTime: timeutil.FormatClock(start),
			Teacher:   teacherName(e.Teachers),
			Room:      e.RoomNumber,
			Kind:      e.LessonType,
		}
		if finish, ok := parseEventTime(e.FinishAt); ok {
			lesson.EndTime = timeutil.FormatClock(finish)
		}

		timeds = append(timeds, timed{start: start, lesson: lesson})
	}

	sort.SliceStable(timeds, func(i, j int) bool {
		return timeds[i].start.Before(timeds[j].start)
	})

	lessons := make([]schedule.Lesson, 0, len(timeds))
	for i, t := range timeds {
		t.lesson.Number = i + 1
		lessons = append(lessons, t.lesson)
	}
	return lessons
}

// parseEventTime parses an event timestamp into Moscow time.
func parseEventTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, timeutil.MoscowTZ); err == nil {
			return timeutil.ToMoscow(t), true
		}
	}
	return time.Time{}, false
}

// teacherName joins the first listed teacher's name parts.
func teacherName(teachers []teacherDTO) string {
	if len(teachers) == 0 {
		return ""
	}
	t := teachers[0]
	parts := make([]string, 0, 3)
	for _, p := range []string{t.LastName, t.FirstName, t.MiddleName} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}
