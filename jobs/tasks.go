package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAnalyticsWarmup primes the analytics cache for every filter set.
	TaskAnalyticsWarmup = "analytics:warmup"
	// TaskPasswordReset delivers a password reset link.
	TaskPasswordReset = "mail:password_reset"
)

// AnalyticsWarmupPayload controls a warmup run.
type AnalyticsWarmupPayload struct {
	// Invalidate bumps the cache version before priming.
	Invalidate bool `json:"invalidate"`
}

// PasswordResetPayload describes a reset link to deliver.
type PasswordResetPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// NewAnalyticsWarmupTask constructs an Asynq task.
func NewAnalyticsWarmupTask(invalidate bool) (*asynq.Task, error) {
	data, err := json.Marshal(AnalyticsWarmupPayload{Invalidate: invalidate})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAnalyticsWarmup, data), nil
}

// NewPasswordResetTask constructs an Asynq task.
func NewPasswordResetTask(payload PasswordResetPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPasswordReset, data), nil
}
