// Package logctx carries an update-scoped logger through a context, so
// every log line produced while handling one Telegram update shares the
// same correlation attributes regardless of which layer emits it.
package logctx

import (
	"context"
	"log/slog"
)

type key struct{}

// With returns a context carrying the logger.
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, key{}, logger)
}

// From returns the logger carried by the context. When the context has
// none it returns the fallback, and slog.Default() when both are absent.
func From(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger, ok := ctx.Value(key{}).(*slog.Logger); ok {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
