package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/filters"
	jobmetrics "github.com/odyssey-erp/pulse/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DefaultWarmupConcurrency bounds in-flight fetches during a warmup run.
const DefaultWarmupConcurrency = 4

// Invalidator drops every cached analytics result.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// AnalyticsWarmupJob fetches every filter set so the first dashboard view of
// each combination is served from cache.
type AnalyticsWarmupJob struct {
	Provider    analytics.Provider
	Invalidator Invalidator
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	// SetTimeout caps a single fetch.
	SetTimeout time.Duration
}

// NewAnalyticsWarmupJob wires dependencies for the warmup handler. invalidator may be nil.
func NewAnalyticsWarmupJob(provider analytics.Provider, invalidator Invalidator, logger *slog.Logger, metrics *jobmetrics.Metrics) *AnalyticsWarmupJob {
	return &AnalyticsWarmupJob{
		Provider:    provider,
		Invalidator: invalidator,
		Logger:      logger,
		Metrics:     metrics,
		Concurrency: DefaultWarmupConcurrency,
		SetTimeout:  20 * time.Second,
	}
}

// Handle processes analytics warmup tasks.
func (j *AnalyticsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Provider == nil {
		return errors.New("analytics warmup: handler not configured")
	}
	var payload AnalyticsWarmupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	_, err := j.Run(ctx, payload)
	return err
}

// Run primes every filter set and returns how many fetches succeeded. A
// failing set fails the run after the remaining sets have been attempted.
func (j *AnalyticsWarmupJob) Run(ctx context.Context, payload AnalyticsWarmupPayload) (warmed int, resultErr error) {
	tracker := j.metrics().Track(TaskAnalyticsWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := time.Now()
	if payload.Invalidate && j.Invalidator != nil {
		if err := j.Invalidator.Bump(ctx); err != nil {
			logger.Warn("invalidate analytics cache", slog.Any("error", err))
		}
	}

	sets := filters.AllSets()
	var ok, failed atomic.Int64
	var (
		mu       sync.Mutex
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	limit := j.Concurrency
	if limit <= 0 {
		limit = DefaultWarmupConcurrency
	}
	g.SetLimit(limit)
	for _, set := range sets {
		g.Go(func() error {
			if err := j.warmSet(gctx, set); err != nil {
				failed.Add(1)
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				logger.Warn("warm filter set", slog.String("filters", set.String()), slog.Any("error", err))
				if gctx.Err() != nil {
					return gctx.Err()
				}
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		resultErr = err
	} else {
		resultErr = firstErr
	}

	j.metrics().AddWarmed("ok", int(ok.Load()))
	j.metrics().AddWarmed("failed", int(failed.Load()))
	logger.Info("completed analytics warmup",
		slog.Int("sets", len(sets)),
		slog.Int64("warmed", ok.Load()),
		slog.Int64("failed", failed.Load()),
		slog.Duration("duration", time.Since(start)),
	)
	return int(ok.Load()), resultErr
}

func (j *AnalyticsWarmupJob) warmSet(ctx context.Context, set filters.Set) error {
	if j.SetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.SetTimeout)
		defer cancel()
	}
	_, err := j.Provider.Fetch(ctx, set)
	return err
}

func (j *AnalyticsWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskAnalyticsWarmup))
	}
	return slog.Default().With(slog.String("job", TaskAnalyticsWarmup))
}

func (j *AnalyticsWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
