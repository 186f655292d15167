// Package handler contains the bot's command and callback handlers.
package handler

import (
	"context"
	"log/slog"

	"github.com/mesh-hub/mesh-schedule-bot/internal/application/navigation"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	tgapi "github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/telegram"
	"github.com/mesh-hub/mesh-schedule-bot/internal/interface/telegram/presenter"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

// Fetcher runs the schedule fetch use case.
type Fetcher interface {
	Fetch(ctx context.Context, id parent.TelegramID, child *parent.Child, kind schedule.PeriodKind) (*schedule.PeriodResult, error)
}

// ScheduleHandler serves the /raspisanie command and the sched:* inline
// keyboard callbacks.
type ScheduleHandler struct {
	parents parent.Repository
	fetcher Fetcher
	auth    *navigation.Authorizer
	bot     *tgapi.Client
	logger  *slog.Logger
}

// NewScheduleHandler creates the schedule handler.
func NewScheduleHandler(parents parent.Repository, fetcher Fetcher, auth *navigation.Authorizer, bot *tgapi.Client, logger *slog.Logger) *ScheduleHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ScheduleHandler{
		parents: parents,
		fetcher: fetcher,
		auth:    auth,
		bot:     bot,
		logger:  logger,
	}
}

// HandleCommand handles /raspisanie: registration check, child chooser
// for multi-child parents, today's schedule straight away for the rest.
func (h *ScheduleHandler) HandleCommand(ctx context.Context, msg *tgapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	logger := logctx.From(ctx, h.logger)
	id := parent.TelegramID(msg.From.ID)
	chatID := msg.Chat.ID

	if _, err := h.parents.GetByTelegramID(ctx, id); err != nil {
		if shared.IsNotFound(err) {
			h.send(ctx, chatID, presenter.MsgNotRegistered, nil)
			return
		}
		logger.Error("registration lookup failed", "telegram_id", id, "error", err)
		h.send(ctx, chatID, presenter.MsgUnavailable, nil)
		return
	}

	children, err := h.parents.ListChildren(ctx, id)
	if err != nil {
		logger.Error("children lookup failed", "telegram_id", id, "error", err)
		h.send(ctx, chatID, presenter.MsgUnavailable, nil)
		return
	}
	if len(children) == 0 {
		h.send(ctx, chatID, presenter.MsgNoChildren, nil)
		return
	}

	if len(children) > 1 {
		h.send(ctx, chatID, presenter.MsgChooseChild, presenter.ChildKeyboard(children))
		return
	}

	text, keyboard := h.render(ctx, id, &children[0], schedule.PeriodToday)
	h.send(ctx, chatID, text, keyboard)
}

// HandleCallback handles all sched:* callbacks. The callback is always
// answered so the client spinner stops; malformed or unauthorized
// payloads are answered without any visible reaction, and both cases
// look identical from the outside.
func (h *ScheduleHandler) HandleCallback(ctx context.Context, cb *tgapi.CallbackQuery) {
	logger := logctx.From(ctx, h.logger)

	defer func() {
		if err := h.bot.AnswerCallbackQuery(ctx, cb.ID, "", false); err != nil {
			logger.Warn("answer callback failed", "error", err)
		}
	}()

	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	id := parent.TelegramID(cb.From.ID)

	state, child, err := h.auth.DecodeAndAuthorize(ctx, id, cb.Data)
	if err != nil {
		logger.Warn("callback dropped",
			"telegram_id", id, "data", cb.Data, "error", err)
		return
	}

	// Decode guarantees that period and retry actions carry a known
	// period kind and child selection carries none.
	kind := schedule.PeriodToday
	if state.Action != navigation.ActionChild {
		kind = schedule.PeriodKind(state.Extra)
	}

	text, keyboard := h.render(ctx, id, child, kind)
	h.edit(ctx, cb.Message.Chat.ID, cb.Message.MessageID, text, keyboard)
}

// render fetches the schedule and maps the outcome to a message and
// keyboard. An authentication failure asks the user to re-register; any
// other total failure shows the unavailable message with a retry button.
func (h *ScheduleHandler) render(ctx context.Context, id parent.TelegramID, child *parent.Child, kind schedule.PeriodKind) (string, *tgapi.InlineKeyboardMarkup) {
	logger := logctx.From(ctx, h.logger)

	result, err := h.fetcher.Fetch(ctx, id, child, kind)
	if err != nil {
		if shared.IsAuthenticationFailed(err) {
			logger.Warn("portal authentication failed",
				"telegram_id", id, "student_id", child.StudentID, "error", err)
			return presenter.MsgReauthNeeded, nil
		}
		logger.Error("schedule fetch failed",
			"telegram_id", id, "student_id", child.StudentID, "error", err)
		return presenter.MsgUnavailable, presenter.RetryKeyboard(child.StudentID, kind)
	}

	if result.AllFailed() {
		return presenter.MsgUnavailable, presenter.RetryKeyboard(child.StudentID, kind)
	}

	return presenter.FormatPeriod(result), presenter.PeriodKeyboard(child.StudentID)
}

func (h *ScheduleHandler) send(ctx context.Context, chatID int64, text string, keyboard *tgapi.InlineKeyboardMarkup) {
	var err error
	if keyboard != nil {
		_, err = h.bot.SendWithKeyboard(ctx, chatID, text, keyboard)
	} else {
		_, err = h.bot.SendHTML(ctx, chatID, text)
	}
	if err != nil {
		logctx.From(ctx, h.logger).Error("send failed", "chat_id", chatID, "error", err)
	}
}

func (h *ScheduleHandler) edit(ctx context.Context, chatID, messageID int64, text string, keyboard *tgapi.InlineKeyboardMarkup) {
	if _, err := h.bot.EditMessageText(ctx, chatID, messageID, text, keyboard); err != nil {
		logctx.From(ctx, h.logger).Error("edit failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
}
