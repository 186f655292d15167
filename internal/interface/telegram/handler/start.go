package handler

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/parent"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/shared"
	tgapi "github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/telegram"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

// StartHandler serves /start and /help.
type StartHandler struct {
	parents parent.Repository
	bot     *tgapi.Client
	logger  *slog.Logger
}

// NewStartHandler creates the start handler.
func NewStartHandler(parents parent.Repository, bot *tgapi.Client, logger *slog.Logger) *StartHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StartHandler{parents: parents, bot: bot, logger: logger}
}

// HandleStart greets the user. Registered parents get usage hints;
// everyone else is told how to get access.
func (h *StartHandler) HandleStart(ctx context.Context, msg *tgapi.Message) {
	if msg.From == nil || msg.Chat == nil {
		return
	}
	logger := logctx.From(ctx, h.logger)
	id := parent.TelegramID(msg.From.ID)

	p, err := h.parents.GetByTelegramID(ctx, id)
	if err != nil && !shared.IsNotFound(err) {
		logger.Error("registration lookup failed", "telegram_id", id, "error", err)
	}

	var text string
	if p != nil {
		text = fmt.Sprintf(
			"👋 Здравствуйте, %s!\n\n"+
				"📚 /raspisanie — расписание уроков вашего ребёнка\n"+
				"ℹ️ /help — справка",
			html.EscapeString(msg.From.FirstName),
		)
	} else {
		text = "👋 Здравствуйте! Это бот расписания МЭШ для родителей.\n\n" +
			"Ваша учётная запись ещё не привязана. " +
			"Обратитесь к администратору бота для подключения."
	}

	if _, err := h.bot.SendHTML(ctx, msg.Chat.ID, text); err != nil {
		logger.Error("send failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

// HandleHelp lists the available commands.
func (h *StartHandler) HandleHelp(ctx context.Context, msg *tgapi.Message) {
	if msg.Chat == nil {
		return
	}

	text := "📚 /raspisanie — расписание уроков (сегодня, завтра, неделя)\n" +
		"▶️ /start — начало работы"

	if _, err := h.bot.SendHTML(ctx, msg.Chat.ID, text); err != nil {
		logctx.From(ctx, h.logger).Error("send failed", "chat_id", msg.Chat.ID, "error", err)
	}
}
