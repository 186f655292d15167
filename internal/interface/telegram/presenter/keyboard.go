package presenter

import (
	"github.com/mesh-hub/mesh-schedule-bot/internal/application/navigation"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/telegram"
)

// encode builds callback data for keyboard buttons. Actions and period
// kinds are short fixed strings and student ids fit in 20 digits, so the
// payload cannot exceed the size limit; an encode failure here would be
// a programming error, answered with an empty (inert) button.
func encode(action string, studentID int64, extra string) string {
	data, err := navigation.Encode(navigation.State{
		Action:    action,
		StudentID: studentID,
		Extra:     extra,
	})
	if err != nil {
		return ""
	}
	return data
}

// PeriodKeyboard returns the today/tomorrow/week switcher for a child.
func PeriodKeyboard(studentID int64) *telegram.InlineKeyboardMarkup {
	return telegram.NewKeyboard().
		Row(
			telegram.Button("📅 Сегодня", encode(navigation.ActionPeriod, studentID, string(schedule.PeriodToday))),
			telegram.Button("📅 Завтра", encode(navigation.ActionPeriod, studentID, string(schedule.PeriodTomorrow))),
			telegram.Button("📅 Неделя", encode(navigation.ActionPeriod, studentID, string(schedule.PeriodWeek))),
		).
		Build()
}

// RetryKeyboard returns the retry button shown after a failed fetch.
func RetryKeyboard(studentID int64, kind schedule.PeriodKind) *telegram.InlineKeyboardMarkup {
	return telegram.NewKeyboard().
		Row(telegram.Button("🔄 Повторить", encode(navigation.ActionRetry, studentID, string(kind)))).
		Build()
}

// ChildKeyboard returns the child chooser, one button per child.
func ChildKeyboard(children []parent.Child) *telegram.InlineKeyboardMarkup {
	kb := telegram.NewKeyboard()
	for i := range children {
		c := &children[i]
		kb.Row(telegram.Button(c.DisplayName(), encode(navigation.ActionChild, c.StudentID, "")))
	}
	return kb.Build()
}
