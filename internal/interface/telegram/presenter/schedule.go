// Package presenter renders schedule results and bot messages as
// Telegram HTML. All portal-sourced strings are escaped; only markup the
// presenter itself emits is trusted.
package presenter

import (
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/timeutil"
)

// Fixed user-facing texts.
const (
	MsgNotRegistered = "Вы ещё не зарегистрированы. Сначала зарегистрируйтесь: /start"
	MsgNoChildren    = "У вас нет привязанных детей. Пройдите регистрацию: /start"
	MsgChooseChild   = "Выберите ребёнка для просмотра расписания:"
	MsgReauthNeeded  = "❌ Не удалось подключиться к МЭШ. Пожалуйста, перерегистрируйтесь: /start"
	MsgUnavailable   = "⚠️ Сервис МЭШ временно недоступен, попробуйте позже"
)

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "понедельник",
	time.Tuesday:   "вторник",
	time.Wednesday: "среда",
	time.Thursday:  "четверг",
	time.Friday:    "пятница",
	time.Saturday:  "суббота",
	time.Sunday:    "воскресенье",
}

// Genitive month names, as used after a day number.
var monthNames = [13]string{
	"", "января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// DayHeader formats a date as "27 февраля (четверг)".
func DayHeader(date time.Time) string {
	msk := timeutil.ToMoscow(date)
	var b strings.Builder
	b.WriteString(strings.TrimLeft(msk.Format("02"), "0"))
	b.WriteString(" ")
	b.WriteString(monthNames[int(msk.Month())])
	b.WriteString(" (")
	b.WriteString(weekdayNames[msk.Weekday()])
	b.WriteString(")")
	return b.String()
}

// FormatDay renders one successfully fetched day.
func FormatDay(day schedule.DayResult) string {
	header := DayHeader(day.Date)

	if len(day.Lessons) == 0 {
		return "<b>📚 Расписание на " + header + "</b>\n\n📭 На этот день уроков нет"
	}

	var b strings.Builder
	b.WriteString("<b>📚 Расписание на " + header + "</b>\n")

	for _, l := range day.Lessons {
		b.WriteString("\n")
		writeLesson(&b, l)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeLesson(b *strings.Builder, l schedule.Lesson) {
	b.WriteString(strconv.Itoa(l.Number))
	b.WriteString(". ")
	b.WriteString(html.EscapeString(l.StartTime))
	b.WriteString("–")
	b.WriteString(html.EscapeString(l.EndTime))
	b.WriteString(" — ")
	b.WriteString(html.EscapeString(l.Subject))
	b.WriteString("\n")

	var details []string
	if l.Room != "" {
		details = append(details, "📍 Каб. "+html.EscapeString(l.Room))
	}
	if l.Teacher != "" {
		details = append(details, "👨‍🏫 "+html.EscapeString(l.Teacher))
	}
	if l.Kind != "" {
		details = append(details, "📝 "+html.EscapeString(l.Kind))
	}
	if len(details) > 0 {
		b.WriteString("   " + strings.Join(details, " | ") + "\n")
	}
}

// FormatPeriod renders a full period result. For a multi-day period,
// failed days are shown inline with a warning marker so one bad day does
// not hide the rest of the week. Callers should check AllFailed first
// and show MsgUnavailable instead of rendering a wall of warnings.
func FormatPeriod(result *schedule.PeriodResult) string {
	if len(result.Days) == 1 && !result.Days[0].Failed() {
		return FormatDay(result.Days[0])
	}

	var parts []string
	for _, day := range result.Days {
		if day.Failed() {
			parts = append(parts, "<b>⚠️ "+DayHeader(day.Date)+"</b>\n   Не удалось загрузить")
			continue
		}
		parts = append(parts, FormatDay(day))
	}

	return strings.Join(parts, "\n\n")
}
