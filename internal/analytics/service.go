package analytics

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/pulse/internal/analytics/db"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

// Repository exposes the aggregation queries the service relies on.
type Repository interface {
	Summary(ctx context.Context, arg analyticsdb.ScopeParams) (analyticsdb.SummaryRow, error)
	DailyRevenue(ctx context.Context, arg analyticsdb.ScopeParams) ([]analyticsdb.DailyRevenueRow, error)
}

// DefaultLoadTimeout bounds a shared aggregate load, which no longer follows
// any single caller's context.
const DefaultLoadTimeout = 30 * time.Second

// Service is the production Provider: it aggregates orders through the
// repository and keeps results in the versioned cache.
type Service struct {
	repo   Repository
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
	now    func() time.Time
	// loadTimeout caps the detached load shared by singleflight callers.
	loadTimeout time.Duration
}

// NewService wires a Repository with a Cache helper. cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger, now: time.Now, loadTimeout: DefaultLoadTimeout}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Cache exposes the cache so jobs can bump it.
func (s *Service) Cache() *Cache {
	return s.cache
}

// Fetch implements Provider.
func (s *Service) Fetch(ctx context.Context, set filters.Set) (Result, error) {
	set = set.Canonical()
	key, err := s.cache.Key(ctx, set)
	if err != nil {
		s.logger.Warn("analytics cache key", slog.String("filters", set.String()), slog.Any("error", err))
		key = resultKey(set)
	}

	if cached, ok, err := s.cache.Lookup(ctx, key); err != nil {
		s.logger.Warn("analytics cache lookup", slog.String("key", key), slog.Any("error", err))
	} else if ok {
		return cached, nil
	}

	ch := s.group.DoChan(key, func() (interface{}, error) {
		// Joined callers share this load; it outlives any single caller.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		result, err := s.load(loadCtx, set)
		if err != nil {
			return Result{}, err
		}
		if err := s.cache.Store(loadCtx, key, result); err != nil {
			s.logger.Warn("analytics cache store", slog.String("key", key), slog.Any("error", err))
		}
		return result, nil
	})
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Result{}, res.Err
		}
		return res.Val.(Result), nil
	}
}

func (s *Service) load(ctx context.Context, set filters.Set) (Result, error) {
	params := s.scope(set)
	row, err := s.repo.Summary(ctx, params)
	if err != nil {
		return Result{}, loadError("aggregate summary failed", err)
	}
	days, err := s.repo.DailyRevenue(ctx, params)
	if err != nil {
		return Result{}, loadError("aggregate series failed", err)
	}

	result := Result{
		TotalRevenue:   math.Max(row.Revenue, 0),
		TotalOrders:    row.Orders,
		ConversionRate: conversionRate(row.Orders, row.Visits),
		ActiveUsers:    row.Customers,
		ChartData:      make([]ChartPoint, 0, len(days)),
	}
	for _, day := range days {
		if !day.Day.Valid {
			continue
		}
		result.ChartData = append(result.ChartData, ChartPoint{
			Date:  day.Day.Time.Format(time.DateOnly),
			Value: day.Revenue,
		})
	}
	return result, nil
}

// loadError keeps context errors intact and labels everything else a server fault.
func loadError(msg string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return shared.Server("%s", msg).WithCause(err)
}

func (s *Service) scope(set filters.Set) analyticsdb.ScopeParams {
	params := analyticsdb.ScopeParams{}
	if since, ok := windowStart(set.Time, s.now().UTC()); ok {
		params.Since = pgtype.Timestamptz{Time: since, Valid: true}
	}
	if set.Category != filters.CategoryAll {
		params.Category = string(set.Category)
	}
	if set.Status != filters.StatusAll {
		params.Status = string(set.Status)
	}
	return params
}

func windowStart(r filters.TimeRange, now time.Time) (time.Time, bool) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	switch r {
	case filters.TimeToday:
		return startOfDay, true
	case filters.TimeWeek:
		return startOfDay.AddDate(0, 0, -7), true
	case filters.TimeMonth:
		return startOfDay.AddDate(0, 0, -30), true
	default:
		return time.Time{}, false
	}
}

func conversionRate(orders, visits int64) float64 {
	if visits <= 0 || orders <= 0 {
		return 0
	}
	rate := float64(orders) / float64(visits) * 100
	rate = math.Round(rate*100) / 100
	return math.Min(rate, 100)
}
