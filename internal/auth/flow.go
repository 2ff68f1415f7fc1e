package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/pulse/internal/async"
	"github.com/odyssey-erp/pulse/internal/shared"
)

// SubmitFunc performs one auth call.
type SubmitFunc[R comparable] func(ctx context.Context, req R) (Response, error)

// Flow drives one form: it validates input, then tracks the submission through
// loading to success or failure. Only the latest submission is applied.
type Flow[R comparable] struct {
	submit   SubmitFunc[R]
	validate *validator.Validate
	tracker  *async.Tracker[R, Response]
	timeout  time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewFlow constructs an idle flow. A zero timeout means 30 seconds.
func NewFlow[R comparable](submit SubmitFunc[R], timeout time.Duration) *Flow[R] {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Flow[R]{
		submit:   submit,
		validate: validate,
		tracker:  async.NewTracker[R, Response](nil),
		timeout:  timeout,
	}
}

// Submit validates req and, when it passes, starts the call. A validation
// failure is returned without leaving the current state.
func (f *Flow[R]) Submit(req R) error {
	if err := f.validate.Struct(req); err != nil {
		return formError(err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		f.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	f.cancel = cancel
	ticket := f.tracker.Begin(req)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer cancel()
		resp, err := f.submit(ctx, req)
		if err != nil {
			err = shared.AsError(err)
		}
		f.tracker.Resolve(ticket, resp, err)
	}()
	return nil
}

// State returns the current submission state.
func (f *Flow[R]) State() async.State[R, Response] {
	return f.tracker.Snapshot()
}

// Wait blocks until the latest submission settles or ctx is done.
func (f *Flow[R]) Wait(ctx context.Context) (async.State[R, Response], error) {
	return f.tracker.Wait(ctx)
}

// Close cancels an in-flight submission and waits for it to return.
func (f *Flow[R]) Close() {
	f.mu.Lock()
	if f.cancel != nil {
		f.cancel()
	}
	f.mu.Unlock()
	f.wg.Wait()
}

// formError turns validator output into the messages shown next to a form.
func formError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return shared.Validation("invalid input").WithCause(err)
	}
	fe := verrs[0]
	switch {
	case fe.Tag() == "required":
		return shared.Validation("Please fill in all fields").WithCause(err)
	case fe.Tag() == "email":
		return shared.Validation("%s", MsgInvalidEmail).WithCause(err)
	case fe.Tag() == "min" && fe.Field() == "NewPassword":
		return shared.Validation("Password must be at least 8 characters long").WithCause(err)
	case fe.Tag() == "eqfield":
		return shared.Validation("Passwords do not match").WithCause(err)
	default:
		return shared.Validation("%s is invalid", fe.Field()).WithCause(err)
	}
}
