package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/pulse/internal/jobs"
)

// Sender delivers a rendered message. The default implementation logs it.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, to, subject, body string) error

// Send implements Sender.
func (f SenderFunc) Send(ctx context.Context, to, subject, body string) error {
	return f(ctx, to, subject, body)
}

// PasswordResetSubject is the subject line of reset mails.
const PasswordResetSubject = "Reset your Pulse password"

// PasswordResetMailJob renders and sends reset links.
type PasswordResetMailJob struct {
	// ResetURL is the page the token is appended to as ?token=.
	ResetURL string
	Sender   Sender
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPasswordResetMailJob wires the mail handler. A nil sender logs the
// recipient and subject only; the body carries the reset token.
func NewPasswordResetMailJob(resetURL string, sender Sender, logger *slog.Logger, metrics *jobmetrics.Metrics) *PasswordResetMailJob {
	job := &PasswordResetMailJob{ResetURL: resetURL, Sender: sender, Logger: logger, Metrics: metrics}
	if job.Logger == nil {
		job.Logger = slog.Default()
	}
	if job.Sender == nil {
		job.Sender = SenderFunc(func(ctx context.Context, to, subject, body string) error {
			job.Logger.InfoContext(ctx, "password reset mail", slog.String("to", to), slog.String("subject", subject))
			return nil
		})
	}
	return job
}

// Handle processes TaskPasswordReset tasks.
func (j *PasswordResetMailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	var payload PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Email == "" || payload.Token == "" {
		return errors.Join(errors.New("password reset mail: email and token are required"), asynq.SkipRetry)
	}
	tracker := j.metrics().Track(TaskPasswordReset)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()
	return j.Sender.Send(ctx, payload.Email, PasswordResetSubject, j.body(payload.Token))
}

func (j *PasswordResetMailJob) body(token string) string {
	link := j.ResetURL
	if link == "" {
		link = "/reset-password"
	}
	sep := "?"
	if strings.Contains(link, "?") {
		sep = "&"
	}
	link += sep + "token=" + url.QueryEscape(token)
	return "We received a request to reset your password.\n\nOpen " + link + " to choose a new one. The link expires in one hour.\n"
}

func (j *PasswordResetMailJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
