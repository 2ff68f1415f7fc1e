package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/odyssey-erp/pulse/internal/analytics"
	analyticsdb "github.com/odyssey-erp/pulse/internal/analytics/db"
	"github.com/odyssey-erp/pulse/internal/app"
	"github.com/odyssey-erp/pulse/internal/platform/cache"
	"github.com/odyssey-erp/pulse/internal/platform/db"
	"github.com/odyssey-erp/pulse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil || redisClient == nil {
		logger.Error("worker requires redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	var provider analytics.Provider
	var invalidator jobs.Invalidator
	if cfg.AnalyticsProvider == app.ProviderPostgres {
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		resultCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
		provider = analytics.NewService(analyticsdb.New(pool), resultCache, logger)
		invalidator = resultCache
	} else {
		provider = analytics.NewMockProvider(analytics.MockConfig{FaultRate: -1})
	}

	warmupJob := jobs.NewAnalyticsWarmupJob(provider, invalidator, logger, nil)
	mailJob := jobs.NewPasswordResetMailJob(cfg.PasswordResetURL, nil, logger, nil)

	warmupTask, err := jobs.NewAnalyticsWarmupTask(false)
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAnalyticsWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskPasswordReset, Handler: mailJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3), asynq.Timeout(5 * time.Minute)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
