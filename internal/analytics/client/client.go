// Package client calls the analytics query endpoint over HTTP and normalises
// every failure into the shared error taxonomy.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

const maxBodyBytes = 1 << 20

// Client fetches analytics results from a remote provider.
type Client struct {
	baseURL  string
	http     *http.Client
	logger   *slog.Logger
	validate *validator.Validate
	retries  uint64
	interval time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger used for failure reports.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetries enables up to n retries of transport failures and 5xx responses.
func WithRetries(n int, initial time.Duration) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = uint64(n)
		}
		if initial > 0 {
			c.interval = initial
		}
	}
}

// New constructs a client for baseURL, e.g. "http://127.0.0.1:8080/api".
// An empty baseURL is accepted; Fetch then reports a configuration error.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:     &http.Client{Timeout: 15 * time.Second},
		logger:   slog.Default(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		interval: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type wirePoint struct {
	Date  string   `json:"date" validate:"required,datetime=2006-01-02"`
	Value *float64 `json:"value" validate:"required"`
}

type wireResult struct {
	TotalRevenue   *float64    `json:"totalRevenue" validate:"required,gte=0"`
	TotalOrders    *int64      `json:"totalOrders" validate:"required,gte=0"`
	ConversionRate *float64    `json:"conversionRate" validate:"required,gte=0,lte=100"`
	ActiveUsers    *int64      `json:"activeUsers" validate:"required,gte=0"`
	ChartData      []wirePoint `json:"chartData" validate:"required,dive"`
}

// Fetch performs exactly one logical query for set. Results are never cached.
func (c *Client) Fetch(ctx context.Context, set filters.Set) (analytics.Result, error) {
	endpoint, err := c.endpoint(set)
	if err != nil {
		c.logger.Error("analytics fetch", slog.Any("error", err))
		return analytics.Result{}, err
	}

	var body []byte
	operation := func() error {
		payload, err := c.do(ctx, endpoint)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = payload
		return nil
	}

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if c.retries > 0 {
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = c.interval
		policy = backoff.WithMaxRetries(exp, c.retries)
	}
	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		err = shared.AsError(err)
		c.logger.Error("analytics fetch", slog.String("filters", set.String()), slog.Any("error", err))
		return analytics.Result{}, err
	}

	result, err := c.decode(body)
	if err != nil {
		c.logger.Error("analytics decode", slog.String("filters", set.String()), slog.Any("error", err))
		return analytics.Result{}, err
	}
	return result, nil
}

func (c *Client) endpoint(set filters.Set) (string, error) {
	if c.baseURL == "" {
		return "", shared.Configuration("API URL is not configured")
	}
	base, err := url.Parse(c.baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", shared.Configuration("API URL is not configured")
	}
	endpoint := c.baseURL + "/analytics"
	if query := filters.Encode(set); query != "" {
		endpoint += "?" + query
	}
	return endpoint, nil
}

func (c *Client) do(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, shared.Configuration("API URL is not configured").WithCause(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, shared.AsError(ctxErr)
		}
		return nil, shared.Network("network request failed: %v", err).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		e := shared.Network("API error: %s", statusText(resp))
		e.Status = resp.StatusCode
		return nil, e
	}
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, shared.Network("read response: %v", err).WithCause(err)
	}
	return payload, nil
}

func (c *Client) decode(payload []byte) (analytics.Result, error) {
	var wire wireResult
	if err := json.Unmarshal(payload, &wire); err != nil {
		return analytics.Result{}, shared.Validation("malformed analytics response").WithCause(err)
	}
	if err := c.validate.Struct(wire); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return analytics.Result{}, shared.Validation("invalid analytics response: %s failed %s", verrs[0].Namespace(), verrs[0].Tag()).WithCause(err)
		}
		return analytics.Result{}, shared.Validation("invalid analytics response").WithCause(err)
	}

	result := analytics.Result{
		TotalRevenue:   *wire.TotalRevenue,
		TotalOrders:    *wire.TotalOrders,
		ConversionRate: *wire.ConversionRate,
		ActiveUsers:    *wire.ActiveUsers,
		ChartData:      make([]analytics.ChartPoint, 0, len(wire.ChartData)),
	}
	for _, point := range wire.ChartData {
		result.ChartData = append(result.ChartData, analytics.ChartPoint{Date: point.Date, Value: *point.Value})
	}
	return result, nil
}

func retryable(err error) bool {
	var e *shared.Error
	if !errors.As(err, &e) || e.Kind != shared.KindNetwork {
		return false
	}
	if e.Status != 0 {
		return e.Status >= 500
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func statusText(resp *http.Response) string {
	text := http.StatusText(resp.StatusCode)
	if parts := strings.SplitN(resp.Status, " ", 2); len(parts) == 2 && parts[1] != "" {
		text = parts[1]
	}
	return fmt.Sprintf("%d %s", resp.StatusCode, text)
}
