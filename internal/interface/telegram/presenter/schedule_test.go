package presenter

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

func TestDayHeader(t *testing.T) {
	// 2026-02-27 is a Friday.
	assert.Equal(t, "27 февраля (пятница)", DayHeader(timeutil.Date(2026, 2, 27)))
	// 2026-03-02 is a Monday; single-digit day has no leading zero.
	assert.Equal(t, "2 марта (понедельник)", DayHeader(timeutil.Date(2026, 3, 2)))
}

func TestFormatDay_EmptyDay(t *testing.T) {
	got := FormatDay(schedule.DayResult{Date: timeutil.Date(2026, 2, 27)})

	assert.Contains(t, got, "Расписание на 27 февраля (пятница)")
	assert.Contains(t, got, "На этот день уроков нет")
}

func TestFormatDay_LessonsWithDetails(t *testing.T) {
	day := schedule.DayResult{
		Date: timeutil.Date(2026, 2, 27),
		Lessons: []schedule.Lesson{
			{Number: 1, Subject: "Математика", StartTime: "08:30", EndTime: "09:15", Room: "204", Teacher: "Петрова Анна"},
			{Number: 2, Subject: "История", StartTime: "09:30", EndTime: "10:15", Kind: "Контрольная работа"},
		},
	}

	got := FormatDay(day)

	assert.Contains(t, got, "1. 08:30–09:15 — Математика")
	assert.Contains(t, got, "📍 Каб. 204")
	assert.Contains(t, got, "👨‍🏫 Петрова Анна")
	assert.Contains(t, got, "2. 09:30–10:15 — История")
	assert.Contains(t, got, "📝 Контрольная работа")
}

func TestFormatDay_EscapesPortalData(t *testing.T) {
	day := schedule.DayResult{
		Date: timeutil.Date(2026, 2, 27),
		Lessons: []schedule.Lesson{
			{Number: 1, Subject: "<script>alert(1)</script>", StartTime: "08:30", EndTime: "09:15", Teacher: "A & B"},
		},
	}

	got := FormatDay(day)

	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
	assert.Contains(t, got, "A &amp; B")
}

func TestFormatPeriod_SingleDay(t *testing.T) {
	result := &schedule.PeriodResult{Days: []schedule.DayResult{
		{Date: timeutil.Date(2026, 2, 27), Lessons: []schedule.Lesson{
			{Number: 1, Subject: "Математика", StartTime: "08:30", EndTime: "09:15"},
		}},
	}}

	got := FormatPeriod(result)
	assert.Equal(t, FormatDay(result.Days[0]), got)
}

func TestFormatPeriod_WeekWithFailedDay(t *testing.T) {
	result := &schedule.PeriodResult{Days: []schedule.DayResult{
		{Date: timeutil.Date(2026, 2, 23), Lessons: []schedule.Lesson{
			{Number: 1, Subject: "Математика", StartTime: "08:30", EndTime: "09:15"},
		}},
		{Date: timeutil.Date(2026, 2, 24), Err: errors.New("timeout")},
		{Date: timeutil.Date(2026, 2, 25)},
	}}

	got := FormatPeriod(result)

	assert.Contains(t, got, "23 февраля (понедельник)")
	assert.Contains(t, got, "⚠️ 24 февраля (вторник)")
	assert.Contains(t, got, "Не удалось загрузить")
	assert.Contains(t, got, "На этот день уроков нет")
	// The raw error text never reaches the user.
	assert.NotContains(t, got, "timeout")

	// Day order is preserved.
	monday := strings.Index(got, "23 февраля")
	tuesday := strings.Index(got, "24 февраля")
	wednesday := strings.Index(got, "25 февраля")
	assert.Less(t, monday, tuesday)
	assert.Less(t, tuesday, wednesday)
}
