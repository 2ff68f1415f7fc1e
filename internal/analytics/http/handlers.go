package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/analytics/export"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/platform/httpx"
	"github.com/odyssey-erp/pulse/internal/shared"
)

const (
	defaultRequestTimeout = 10 * time.Second
	defaultRateLimit      = 120
)

// Handler serves a Provider over HTTP.
type Handler struct {
	logger   *slog.Logger
	provider analytics.Provider
	timeout  time.Duration
	rate     int
	csvPool  sync.Pool
}

// Option customises a Handler.
type Option func(*Handler)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithRateLimit sets the per-IP requests per minute for the query endpoint.
func WithRateLimit(perMinute int) Option {
	return func(h *Handler) {
		if perMinute > 0 {
			h.rate = perMinute
		}
	}
}

// NewHandler constructs the analytics HTTP handler.
func NewHandler(logger *slog.Logger, provider analytics.Provider, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		provider: provider,
		timeout:  defaultRequestTimeout,
		rate:     defaultRateLimit,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	set := filters.FromValues(r.URL.Query())
	result, err := h.fetch(r.Context(), set)
	if err != nil {
		h.respondError(w, "analytics query", set, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	set := filters.FromValues(r.URL.Query())
	result, err := h.fetch(r.Context(), set)
	if err != nil {
		h.respondError(w, "analytics export", set, err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteSummaryCSV(buf, set, result); err != nil {
		h.respondError(w, "write summary csv", set, err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteSeriesCSV(buf, result.ChartData); err != nil {
		h.respondError(w, "write series csv", set, err)
		return
	}

	filename := fmt.Sprintf("analytics-%s-%s-%s.csv", set.Time, set.Category, set.Status)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Error("stream csv", slog.Any("error", err))
	}
}

func (h *Handler) fetch(ctx context.Context, set filters.Set) (analytics.Result, error) {
	if h.provider == nil {
		return analytics.Result{}, shared.Configuration("analytics provider not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	result, err := h.provider.Fetch(ctx, set)
	if err != nil {
		return analytics.Result{}, err
	}
	if result.ChartData == nil {
		result.ChartData = []analytics.ChartPoint{}
	}
	return result, nil
}

// respondError reports every provider failure as 500 {"error": message}.
func (h *Handler) respondError(w http.ResponseWriter, op string, set filters.Set, err error) {
	e := shared.AsError(err)
	h.logger.Error(op, slog.String("filters", set.String()), slog.String("kind", string(e.Kind)), slog.Any("error", err))
	httpx.JSON(w, http.StatusInternalServerError, httpx.ErrorBody{Error: e.Message})
}
