package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/analytics/client"
	analyticsdb "github.com/odyssey-erp/pulse/internal/analytics/db"
	analytichttp "github.com/odyssey-erp/pulse/internal/analytics/http"
	"github.com/odyssey-erp/pulse/internal/app"
	"github.com/odyssey-erp/pulse/internal/auth"
	dashboardhttp "github.com/odyssey-erp/pulse/internal/dashboard/http"
	"github.com/odyssey-erp/pulse/internal/observability"
	"github.com/odyssey-erp/pulse/internal/platform/cache"
	"github.com/odyssey-erp/pulse/internal/platform/db"
	"github.com/odyssey-erp/pulse/internal/view"
	"github.com/odyssey-erp/pulse/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
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
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, continuing without cache and queue", slog.Any("error", err))
		redisClient = nil
	}
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	provider, closeProvider, err := buildProvider(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Error("init analytics provider", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeProvider()

	authStore := auth.Store(auth.NewMemoryStore())
	var mailer auth.Mailer
	var jobHandler *jobs.Handler
	if redisClient != nil {
		authStore = auth.NewRedisStore(redisClient)
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobClient := jobs.NewClient(redisOpts)
		defer func() { _ = jobClient.Close() }()
		mailer = jobClient
		inspector := asynq.NewInspector(redisOpts)
		defer func() { _ = inspector.Close() }()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		mailer = logMailer{logger: logger}
		jobHandler = jobs.NewHandler(nil, logger)
	}

	authCfg := auth.Config{Store: authStore, Mailer: mailer, Logger: logger}
	if cfg.AuthFaultsEnabled {
		authCfg.Delays = auth.DefaultDelays
		authCfg.Faults = auth.DefaultFaultRates
	}
	authService := auth.NewService(authCfg)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("load templates", slog.Any("error", err))
		os.Exit(1)
	}

	fetcher := client.New(cfg.AnalyticsAPIURL,
		client.WithLogger(logger),
		client.WithRetries(cfg.AnalyticsRetries, 200*time.Millisecond),
	)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AnalyticsHandler: analytichttp.NewHandler(logger, provider, analytichttp.WithTimeout(cfg.DashboardFetchTimeout)),
		AuthHandler:      auth.NewHandler(logger, authService),
		DashboardHandler: dashboardhttp.NewHandler(logger, fetcher, templates, dashboardhttp.Config{
			RenderBudget: cfg.DashboardRenderBudget,
			FetchTimeout: cfg.DashboardFetchTimeout,
			Observer:     metrics,
		}),
		JobHandler: jobHandler,
		Metrics:    metrics,
		Templates:  templates,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("provider", cfg.AnalyticsProvider),
			slog.String("analytics_api", cfg.AnalyticsAPIURL),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// buildProvider selects the analytics backend served under /api/analytics.
func buildProvider(ctx context.Context, cfg *app.Config, redisClient *redis.Client, logger *slog.Logger) (analytics.Provider, func(), error) {
	if cfg.AnalyticsProvider != app.ProviderPostgres {
		return analytics.NewMockProvider(analytics.MockConfig{
			Latency:   cfg.AnalyticsLatency,
			FaultRate: cfg.AnalyticsFaultRate,
		}), func() {}, nil
	}
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, err
	}
	resultCache := analytics.NewCache(redisClient, cfg.AnalyticsCacheTTL)
	if err := resultCache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("analytics cache invalidation listener", slog.Any("error", err))
	}
	service := analytics.NewService(analyticsdb.New(pool), resultCache, logger)
	return service, pool.Close, nil
}

// logMailer stands in for the queue when Redis is unreachable.
type logMailer struct {
	logger *slog.Logger
}

func (m logMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.InfoContext(ctx, "password reset requested without queue", slog.String("email", email))
	return nil
}
