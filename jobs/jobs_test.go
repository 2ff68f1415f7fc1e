package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/filters"
	jobmetrics "github.com/odyssey-erp/pulse/internal/jobs"
)

type countingProvider struct {
	mu      sync.Mutex
	seen    map[string]int
	fail    map[string]bool
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (p *countingProvider) Fetch(ctx context.Context, set filters.Set) (analytics.Result, error) {
	n := p.active.Add(1)
	defer p.active.Add(-1)
	for {
		cur := p.maxSeen.Load()
		if n <= cur || p.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.seen == nil {
		p.seen = map[string]int{}
	}
	p.seen[set.String()]++
	if p.fail[set.String()] {
		return analytics.Result{}, errors.New("boom")
	}
	return analytics.Result{}, nil
}

type bumpRecorder struct{ calls int }

func (b *bumpRecorder) Bump(context.Context) error {
	b.calls++
	return nil
}

func TestWarmupCoversEverySet(t *testing.T) {
	provider := &countingProvider{}
	bumper := &bumpRecorder{}
	job := NewAnalyticsWarmupJob(provider, bumper, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.Concurrency = 3

	task, err := NewAnalyticsWarmupTask(true)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Len(t, provider.seen, 64)
	for key, n := range provider.seen {
		assert.Equal(t, 1, n, key)
	}
	assert.Equal(t, 1, bumper.calls)
	assert.LessOrEqual(t, provider.maxSeen.Load(), int32(3))
}

func TestWarmupReportsFailureAfterAttemptingAll(t *testing.T) {
	failing := filters.Decode("category=support&status=pending").String()
	provider := &countingProvider{fail: map[string]bool{failing: true}}
	job := NewAnalyticsWarmupJob(provider, nil, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	warmed, err := job.Run(context.Background(), AnalyticsWarmupPayload{})
	require.Error(t, err)
	assert.Equal(t, 63, warmed)
	assert.Len(t, provider.seen, 64)
}

func TestWarmupRejectsMalformedPayload(t *testing.T) {
	job := NewAnalyticsWarmupJob(&countingProvider{}, nil, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskAnalyticsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestPasswordResetMailRendersLink(t *testing.T) {
	var to, subject, body string
	sender := SenderFunc(func(_ context.Context, a, s, b string) error {
		to, subject, body = a, s, b
		return nil
	})
	job := NewPasswordResetMailJob("https://pulse.example/reset-password", sender, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPasswordResetTask(PasswordResetPayload{Email: "ada@example.com", Token: "tok en"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Equal(t, "ada@example.com", to)
	assert.Equal(t, PasswordResetSubject, subject)
	assert.Contains(t, body, "https://pulse.example/reset-password?token=tok+en")
}

func TestPasswordResetMailDefaultSenderOmitsToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	job := NewPasswordResetMailJob("https://pulse.example/reset-password", nil, logger, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewPasswordResetTask(PasswordResetPayload{Email: "ada@example.com", Token: "secret-token"})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	assert.Contains(t, buf.String(), "ada@example.com")
	assert.Contains(t, buf.String(), "password reset mail")
	assert.NotContains(t, buf.String(), "secret-token")
}

func TestPasswordResetMailSkipsIncompletePayload(t *testing.T) {
	job := NewPasswordResetMailJob("", nil, nil, nil)
	task, err := NewPasswordResetTask(PasswordResetPayload{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

type recordingEnqueuer struct {
	tasks []*asynq.Task
}

func (r *recordingEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "1", Queue: QueueDefault, Type: task.Type()}, nil
}

func (r *recordingEnqueuer) Close() error { return nil }

func TestClientSendPasswordResetEnqueuesTask(t *testing.T) {
	enq := &recordingEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.SendPasswordReset(context.Background(), "ada@example.com", "abc"))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskPasswordReset, enq.tasks[0].Type())

	var payload PasswordResetPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, PasswordResetPayload{Email: "ada@example.com", Token: "abc"}, payload)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func TestHealthEndpoint(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		contains  string
	}{
		{name: "no inspector", status: http.StatusOK, contains: `"pending":0`},
		{name: "queue info", inspector: stubInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 7}}, status: http.StatusOK, contains: `"pending":7`},
		{name: "redis down", inspector: stubInspector{err: errors.New("dial tcp")}, status: http.StatusServiceUnavailable, contains: "queue unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Route("/jobs", NewHandler(tc.inspector, nil).MountRoutes)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
			assert.Equal(t, tc.status, rr.Code)
			assert.True(t, strings.Contains(rr.Body.String(), tc.contains), rr.Body.String())
		})
	}
}
