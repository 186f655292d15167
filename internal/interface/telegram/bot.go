package telegram

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	tgapi "github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/telegram"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

// Bot runs the long polling loop and dispatches each update through the
// router on its own goroutine, so a slow portal fetch for one parent
// never delays updates for another.
type Bot struct {
	client *tgapi.Client
	router *Router
	logger *slog.Logger
}

// NewBot creates the polling bot.
func NewBot(client *tgapi.Client, router *Router, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		client: client,
		router: router,
		logger: logger,
	}
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	me, err := b.client.GetMe(ctx)
	if err != nil {
		return err
	}
	b.logger.Info("bot authorized", "username", me.Username, "bot_id", me.ID)

	return b.client.StartPolling(ctx, func(ctx context.Context, update *tgapi.Update) {
		go b.dispatch(ctx, update)
	})
}

// dispatch routes one update with panic isolation. A correlation id ties
// together all log lines produced while handling the update; the derived
// logger travels down through the context so handlers and the layers
// below them log with the same attributes.
func (b *Bot) dispatch(ctx context.Context, update *tgapi.Update) {
	logger := b.logger.With(
		"update_id", update.UpdateID,
		"correlation_id", uuid.NewString(),
	)
	ctx = logctx.With(ctx, logger)

	defer func() {
		if p := recover(); p != nil {
			logger.Error("panic while handling update", "panic", p)
		}
	}()

	b.router.Route(ctx, update)
}
