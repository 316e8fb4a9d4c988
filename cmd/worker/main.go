package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-pos/meridian/internal/accounting/numbering"
	"github.com/meridian-pos/meridian/internal/app"
	"github.com/meridian-pos/meridian/internal/pos"
	"github.com/meridian-pos/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

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

	posRepo := pos.NewRepository(pool)
	numberingSvc := numbering.NewService()
	accountingSvc := pos.NewAccountingService(numberingSvc, logger)
	statusCache := pos.NewStatusCache(redisClient, cfg.StatusCacheTTL)
	// The worker never re-enqueues from inside a retry; asynq owns the
	// retry schedule.
	posSvc := pos.NewService(posRepo, accountingSvc, nil, statusCache, logger)
	postOrderJob := jobs.NewPostOrderJob(posSvc, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypePostOrder, Handler: postOrderJob.Handle},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting")
	if err := worker.Run(ctx); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
