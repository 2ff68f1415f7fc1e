package cli

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	stdout := new(bytes.Buffer)
	stderr := new(bytes.Buffer)
	cmd := NewRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestSetsListsEveryCombination(t *testing.T) {
	out, err := execute(t, "sets")
	require.NoError(t, err)
	assert.Contains(t, out, "/dashboard?time=today&category=support&status=pending")
	assert.Equal(t, 64, strings.Count(out, "/dashboard"))
}

func TestFetchPrintsTables(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalRevenue":12500,"totalOrders":320,"conversionRate":4.8,"activeUsers":1250,
			"chartData":[{"date":"2025-12-29","value":3490},{"date":"2025-12-30","value":3490}]}`))
	}))
	defer srv.Close()

	out, err := execute(t, "fetch", "--api", srv.URL, "--time", "today", "--category", "sales")
	require.NoError(t, err)
	assert.Equal(t, "time=today&category=sales", query)
	assert.Contains(t, out, "Total Revenue")
	assert.Contains(t, out, "$12,500")
	assert.Contains(t, out, "2025-12-30")
}

func TestFetchFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out, err := execute(t, "fetch", "--api", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error: 500 Internal Server Error")
	assert.Contains(t, out, "Retry: /dashboard")
}

func TestAuthResetRequestValidatesBeforeSending(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := execute(t, "auth", "reset-request", "--api", srv.URL, "--email", "not-an-email")
	require.Error(t, err)
	assert.False(t, called)
}

func TestAuthVerifyPrintsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/verify", r.URL.Path)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		assert.Equal(t, "0123456789abc", body["token"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Your email has been verified successfully!"}`))
	}))
	defer srv.Close()

	out, err := execute(t, "auth", "verify", "--api", srv.URL, "--token", "0123456789abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Your email has been verified successfully!")
}

func TestWriteStats(t *testing.T) {
	var buf bytes.Buffer
	writeStats(&buf, QueueStats{Queue: "default", Pending: 3})
	assert.Contains(t, buf.String(), "default")
	assert.Contains(t, buf.String(), "Pending")
}
