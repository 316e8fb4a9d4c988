package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/app"
	"github.com/meridian-pos/meridian/internal/pos"
	"github.com/meridian-pos/meridian/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq close", slog.Any("error", err))
		}
	}()

	posRepo := pos.NewRepository(pool)
	numberingSvc := numbering.NewService()
	accountingSvc := pos.NewAccountingService(numberingSvc, logger)
	statusCache := pos.NewStatusCache(redisClient, cfg.StatusCacheTTL)
	posSvc := pos.NewService(posRepo, accountingSvc, jobs.NewEnqueuer(asynqClient), statusCache, logger)
	configValidator := pos.NewConfigValidator(posRepo)
	posHandler := pos.NewHandler(logger, posSvc, configValidator, numbering.NewRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:     logger,
		Config:     cfg,
		PosHandler: posHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("server starting", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
