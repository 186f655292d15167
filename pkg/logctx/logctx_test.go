package logctx

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom_ReturnsCarriedLogger(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := With(context.Background(), logger)

	assert.Same(t, logger, From(ctx, nil))
}

func TestFrom_FallsBack(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))

	assert.Same(t, fallback, From(context.Background(), fallback))
	assert.Same(t, slog.Default(), From(context.Background(), nil))
}

func TestFrom_CarriedLoggerWinsOverFallback(t *testing.T) {
	carried := slog.New(slog.NewTextHandler(io.Discard, nil))
	fallback := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := With(context.Background(), carried)

	assert.Same(t, carried, From(ctx, fallback))
}
