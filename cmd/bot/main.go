// Command bot runs the MES schedule Telegram bot: long polling, the
// portal session manager, and the schedule fetch pipeline.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mesh-hub/mesh-schedule-bot/config"
	"github.com/mesh-hub/mesh-schedule-bot/internal/application/navigation"
	appschedule "github.com/mesh-hub/mesh-schedule-bot/internal/application/schedule"
	"github.com/mesh-hub/mesh-schedule-bot/internal/application/token"
	"github.com/mesh-hub/mesh-schedule-bot/internal/domain/session"
	"github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/crypto"
	"github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/mesh"
	tgapi "github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/external/telegram"
	"github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/persistence/postgres"
	rediscache "github.com/mesh-hub/mesh-schedule-bot/internal/infrastructure/persistence/redis"
	ifacetelegram "github.com/mesh-hub/mesh-schedule-bot/internal/interface/telegram"
	"github.com/mesh-hub/mesh-schedule-bot/internal/interface/telegram/handler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	logger.Info("starting",
		"app", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── persistence ──

	conn, err := postgres.NewConnection(ctx, cfg.Database.URL, postgres.PoolSettings{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := postgres.NewMigrator(conn).Migrate(ctx); err != nil {
		return err
	}
	logger.Info("database ready")

	encryptor, err := crypto.NewEncryptor(cfg.Database.EncryptionKey)
	if err != nil {
		return err
	}

	parentRepo := postgres.NewParentRepo(conn, encryptor, logger)
	tokenRepo := postgres.NewTokenRepo(conn, encryptor, logger)

	var tokenStore session.Store = tokenRepo
	if !cfg.Redis.Disabled {
		cache, err := rediscache.NewCache(rediscache.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			// The bot works without the hot cache, just slower.
			logger.Warn("redis unavailable, running without token cache", "error", err)
		} else {
			defer cache.Close()
			tokenStore = rediscache.NewCachedStore(cache, tokenRepo, logger)
			logger.Info("token cache ready", "addr", cfg.Redis.Host)
		}
	}

	// ── portal ──

	meshClient := mesh.NewClient(mesh.ClientConfig{
		BaseURL:  cfg.Mesh.BaseURL,
		Timeout:  cfg.Mesh.RequestTimeout,
		TokenTTL: cfg.Mesh.TokenTTL,
		Logger:   logger,
		Debug:    cfg.App.Debug,
	})

	// ── application ──

	tokenManager := token.NewManager(tokenStore, parentRepo, meshClient, token.ManagerConfig{
		SafetyBuffer: cfg.Mesh.TokenSafetyBuffer,
		Logger:       logger,
	})

	aggregator := appschedule.NewAggregator(tokenManager, meshClient, appschedule.AggregatorConfig{
		Logger: logger,
	})

	authorizer := navigation.NewAuthorizer(parentRepo, logger)

	// ── telegram ──

	tgClient := tgapi.NewClient(tgapi.ClientConfig{
		Token:          cfg.Telegram.Token,
		Timeout:        cfg.Telegram.PollingTimeout * 2,
		PollingTimeout: cfg.Telegram.PollingTimeout,
		RetryAttempts:  3,
		Logger:         logger,
		Debug:          cfg.App.Debug,
	})

	scheduleHandler := handler.NewScheduleHandler(parentRepo, aggregator, authorizer, tgClient, logger)
	startHandler := handler.NewStartHandler(parentRepo, tgClient, logger)

	router := ifacetelegram.NewRouter(logger)
	router.Command("start", startHandler.HandleStart)
	router.Command("help", startHandler.HandleHelp)
	router.Command("raspisanie", scheduleHandler.HandleCommand)
	router.CallbackPrefix(navigation.Prefix+":", scheduleHandler.HandleCallback)

	bot := ifacetelegram.NewBot(tgClient, router, logger)

	logger.Info("bot starting")
	if err := bot.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}

	logger.Info("shutting down")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Observability.LogFormat == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}
