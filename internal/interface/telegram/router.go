// Package telegram wires incoming Telegram updates to handlers: a router
// that dispatches by command or callback prefix, and the polling bot
// that drives it.
package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgapi "github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/telegram"
	"github.com/mesh-hub/mesh-schedule-bot/pkg/logctx"
)

// CommandHandler handles a bot command message.
type CommandHandler func(ctx context.Context, msg *tgapi.Message)

// CallbackHandler handles an inline keyboard callback.
type CallbackHandler func(ctx context.Context, cb *tgapi.CallbackQuery)

// Router dispatches updates to registered handlers.
type Router struct {
	commands  map[string]CommandHandler
	callbacks map[string]CallbackHandler
	logger    *slog.Logger
}

// NewRouter creates an empty router.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		commands:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackHandler),
		logger:    logger,
	}
}

// Command registers a handler for a command (without the leading slash).
func (r *Router) Command(name string, h CommandHandler) {
	r.commands[name] = h
}

// CallbackPrefix registers a handler for callbacks whose data starts
// with the given prefix.
func (r *Router) CallbackPrefix(prefix string, h CallbackHandler) {
	r.callbacks[prefix] = h
}

// Route dispatches a single update. Unknown commands and callbacks are
// logged and dropped; the bot only reacts to what it understands.
func (r *Router) Route(ctx context.Context, update *tgapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		r.routeCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		r.routeMessage(ctx, update.Message)
	}
}

func (r *Router) routeMessage(ctx context.Context, msg *tgapi.Message) {
	// Group chats are out: schedules are personal data.
	if !tgapi.IsPrivateChat(msg) {
		return
	}

	cmd := tgapi.ExtractCommand(msg)
	if cmd == "" {
		return
	}

	handler, ok := r.commands[cmd]
	if !ok {
		logctx.From(ctx, r.logger).Debug("unknown command", "command", cmd)
		return
	}

	handler(ctx, msg)
}

func (r *Router) routeCallback(ctx context.Context, cb *tgapi.CallbackQuery) {
	for prefix, handler := range r.callbacks {
		if strings.HasPrefix(cb.Data, prefix) {
			handler(ctx, cb)
			return
		}
	}
	logctx.From(ctx, r.logger).Debug("unhandled callback", "data", cb.Data)
}
