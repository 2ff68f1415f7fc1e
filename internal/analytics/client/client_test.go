package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

const sample = `{"totalRevenue":12500,"totalOrders":320,"conversionRate":3.2,"activeUsers":1250,
"chartData":[{"date":"2025-12-23","value":4200},{"date":"2025-12-24","value":5100}]}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchSuccess(t *testing.T) {
	var gotPath, gotQuery, gotCache string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery, gotCache = r.URL.Path, r.URL.RawQuery, r.Header.Get("Cache-Control")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, sample)
	}))
	defer srv.Close()

	c := New(srv.URL+"/api/", WithLogger(quietLogger()))
	result, err := c.Fetch(context.Background(), filters.Decode("time=today&category=sales"))
	require.NoError(t, err)

	assert.Equal(t, "/api/analytics", gotPath)
	assert.Equal(t, "time=today&category=sales", gotQuery)
	assert.Equal(t, "no-store", gotCache)
	assert.Equal(t, 12500.0, result.TotalRevenue)
	assert.Equal(t, int64(320), result.TotalOrders)
	require.Len(t, result.ChartData, 2)
	assert.Equal(t, "2025-12-24", result.ChartData[1].Date)
}

func TestFetchDefaultSetOmitsQuery(t *testing.T) {
	var gotURI string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		_, _ = io.WriteString(w, sample)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithLogger(quietLogger())).Fetch(context.Background(), filters.Default())
	require.NoError(t, err)
	assert.Equal(t, "/analytics", gotURI)
}

func TestFetchNeverCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, sample)
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(quietLogger()))
	for i := 0; i < 3; i++ {
		_, err := c.Fetch(context.Background(), filters.Default())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchMissingBaseURL(t *testing.T) {
	for _, base := range []string{"", "   ", "not a url", "/relative"} {
		_, err := New(base, WithLogger(quietLogger())).Fetch(context.Background(), filters.Default())
		require.Error(t, err, base)
		assert.True(t, shared.IsKind(err, shared.KindConfiguration), base)
		assert.Equal(t, "API URL is not configured", err.Error())
	}
}

func TestFetchServerErrorIsNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error":"Internal Server Error"}`)
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithLogger(quietLogger())).Fetch(context.Background(), filters.Default())
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindNetwork))
	assert.Contains(t, err.Error(), "500")
	assert.Equal(t, "API error: 500 Internal Server Error", err.Error())
}

func TestFetchValidation(t *testing.T) {
	cases := map[string]string{
		"not json":         `<html>`,
		"missing field":    `{"totalRevenue":1,"totalOrders":2,"conversionRate":3,"chartData":[]}`,
		"negative revenue": `{"totalRevenue":-1,"totalOrders":2,"conversionRate":3,"activeUsers":4,"chartData":[]}`,
		"rate over 100":    `{"totalRevenue":1,"totalOrders":2,"conversionRate":130,"activeUsers":4,"chartData":[]}`,
		"bad date":         `{"totalRevenue":1,"totalOrders":2,"conversionRate":3,"activeUsers":4,"chartData":[{"date":"yesterday","value":1}]}`,
		"null chart":       `{"totalRevenue":1,"totalOrders":2,"conversionRate":3,"activeUsers":4,"chartData":null}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, WithLogger(quietLogger())).Fetch(context.Background(), filters.Default())
			require.Error(t, err)
			assert.True(t, shared.IsKind(err, shared.KindValidation), err.Error())
		})
	}
}

func TestFetchEmptyChartIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"totalRevenue":0,"totalOrders":0,"conversionRate":0,"activeUsers":0,"chartData":[]}`)
	}))
	defer srv.Close()

	result, err := New(srv.URL, WithLogger(quietLogger())).Fetch(context.Background(), filters.Default())
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, sample)
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(quietLogger()), WithRetries(3, time.Millisecond))
	_, err := c.Fetch(context.Background(), filters.Default())
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, WithLogger(quietLogger()), WithRetries(3, time.Millisecond))
	_, err := c.Fetch(context.Background(), filters.Default())
	require.Error(t, err)
	assert.Equal(t, "API error: 404 Not Found", err.Error())
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New(srv.URL, WithLogger(quietLogger())).Fetch(ctx, filters.Default())
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindNetwork))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
