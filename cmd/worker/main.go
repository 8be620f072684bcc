package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-console/internal/app"
	"github.com/odyssey-erp/odyssey-console/internal/cache"
	jobmetrics "github.com/odyssey-erp/odyssey-console/internal/jobs"
	"github.com/odyssey-erp/odyssey-console/jobs"
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

	// the worker must not enqueue warmups for its own reads
	cfg.CacheWarmup = false
	console, err := app.NewConsole(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("init console", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := console.Close(); err != nil {
			logger.Warn("close console", slog.Any("error", err))
		}
	}()
	if console.Redis == nil {
		logger.Error("worker requires redis", slog.String("addr", cfg.RedisAddr))
		os.Exit(1)
	}

	warmers := console.Warmers()
	warmupJob := jobs.NewCacheWarmupJob(warmers, logger, jobmetrics.NewMetrics(console.Metrics.Registerer()))

	tags := make([]cache.Tag, 0, len(warmers))
	for tag := range warmers {
		tags = append(tags, tag)
	}
	cron, err := jobs.WarmupCron(cfg.CacheWarmupCron, tags)
	if err != nil {
		logger.Error("build warmup schedule", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheWarmup, Handler: warmupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr), slog.String("warmup_cron", cfg.CacheWarmupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
