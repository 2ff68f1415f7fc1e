// Package dashboard drives one analytics view: it keeps the filter set, the
// in-flight query and the rendered outcome consistent while responses arrive
// out of order.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/async"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

// DefaultFetchTimeout bounds a single query.
const DefaultFetchTimeout = 10 * time.Second

// Observer receives outcome transitions and discarded responses.
type Observer interface {
	ObserveOutcome(kind string)
	ObserveDiscard()
}

// Option customises a View.
type Option func(*View)

// WithLogger sets the view logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *View) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// WithTimeout sets the per-fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(v *View) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithObserver attaches an Observer.
func WithObserver(o Observer) Option {
	return func(v *View) {
		v.observer = o
	}
}

// View is the per-consumer fetch orchestrator. It is safe for concurrent use;
// fetches resolve on background goroutines.
type View struct {
	id       string
	fetcher  analytics.Provider
	logger   *slog.Logger
	timeout  time.Duration
	observer Observer
	tracker  *async.Tracker[filters.Set, analytics.Result]

	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	inflight context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewView constructs an idle view over fetcher.
func NewView(fetcher analytics.Provider, opts ...Option) *View {
	v := &View{
		id:      uuid.NewString(),
		fetcher: fetcher,
		logger:  slog.Default(),
		timeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(v)
	}
	v.logger = v.logger.With(slog.String("view", v.id))
	v.base, v.stop = context.WithCancel(context.Background())
	v.tracker = async.NewTracker[filters.Set, analytics.Result](trackerObserver{v})
	return v
}

// ID identifies the view in logs.
func (v *View) ID() string {
	return v.id
}

// Mount starts the initial fetch for set.
func (v *View) Mount(set filters.Set) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.startLocked(set.Canonical())
}

// SetFilters switches the view to set. It returns false when set equals the
// current selection or the view is closed.
func (v *View) SetFilters(set filters.Set) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.switchLocked(set.Canonical())
}

// Update changes a single filter field, leaving the others untouched. The
// read of the current selection and the switch happen under one lock.
func (v *View) Update(field, value string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	current := v.tracker.Snapshot().Key.Canonical()
	return v.switchLocked(current.With(field, value).Canonical())
}

func (v *View) switchLocked(set filters.Set) bool {
	if v.closed {
		return false
	}
	if state := v.tracker.Snapshot(); state.Status != async.StatusIdle && state.Key == set {
		return false
	}
	v.startLocked(set)
	return true
}

// Retry re-issues the query for the current filter set.
func (v *View) Retry() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	state := v.tracker.Snapshot()
	if v.closed || state.Status == async.StatusIdle {
		return false
	}
	v.startLocked(state.Key)
	return true
}

// Outcome returns the current observable state.
func (v *View) Outcome() Outcome {
	return outcomeOf(v.tracker.Snapshot())
}

// Wait blocks until the current query settles or ctx is done. On timeout the
// Loading outcome is returned along with ctx.Err().
func (v *View) Wait(ctx context.Context) (Outcome, error) {
	state, err := v.tracker.Wait(ctx)
	return outcomeOf(state), err
}

// Changed returns a channel closed on the next state transition.
func (v *View) Changed() <-chan struct{} {
	return v.tracker.Changed()
}

// Filters returns the current canonical selection.
func (v *View) Filters() filters.Set {
	return v.Outcome().Filters
}

// Location returns the canonical query string for the current selection.
func (v *View) Location() string {
	return filters.Encode(v.Filters())
}

// Close cancels any in-flight query and waits for fetch goroutines to exit.
// Responses arriving after Close are dropped.
func (v *View) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.stop()
	v.mu.Unlock()
	v.wg.Wait()
}

func (v *View) startLocked(set filters.Set) {
	if v.inflight != nil {
		v.inflight()
	}
	ctx, cancel := context.WithTimeout(v.base, v.timeout)
	v.inflight = cancel
	ticket := v.tracker.Begin(set)

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		defer cancel()
		v.run(ctx, ticket)
	}()
}

func (v *View) run(ctx context.Context, ticket async.Ticket[filters.Set]) {
	if v.fetcher == nil {
		v.tracker.Resolve(ticket, analytics.Result{}, shared.Configuration("analytics provider not configured"))
		return
	}
	result, err := v.fetcher.Fetch(ctx, ticket.Key)
	if v.isClosed() {
		return
	}
	if err != nil {
		e := shared.AsError(err)
		if v.tracker.Resolve(ticket, analytics.Result{}, e) {
			v.logger.Warn("analytics fetch failed",
				slog.String("filters", ticket.Key.String()),
				slog.String("kind", string(e.Kind)),
				slog.Any("error", err))
		}
		return
	}
	v.tracker.Resolve(ticket, result, nil)
}

func (v *View) isClosed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.closed
}

type trackerObserver struct {
	v *View
}

func (o trackerObserver) Transition(state async.State[filters.Set, analytics.Result]) {
	if o.v.observer != nil {
		o.v.observer.ObserveOutcome(outcomeOf(state).Kind.String())
	}
}

func (o trackerObserver) Discarded(ticket async.Ticket[filters.Set], current filters.Set) {
	o.v.logger.Debug("discarding stale analytics response",
		slog.String("response", ticket.Key.String()),
		slog.String("current", current.String()),
		slog.Uint64("seq", ticket.Seq))
	if o.v.observer != nil {
		o.v.observer.ObserveDiscard()
	}
}
