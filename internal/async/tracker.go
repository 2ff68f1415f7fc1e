// Package async tracks the lifecycle of keyed asynchronous operations and
// drops results that arrive after the caller has moved on to another key.
package async

import (
	"context"
	"sync"
)

// Status enumerates tracker lifecycle phases.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// State is an immutable snapshot of a tracker.
type State[K comparable, T any] struct {
	Key    K
	Status Status
	Value  T
	Err    error
	Seq    uint64
}

// Ticket identifies one issued operation. Only the latest ticket may resolve.
type Ticket[K comparable] struct {
	Key K
	Seq uint64
}

// Observer is notified after every applied transition and for every discarded
// resolution.
type Observer[K comparable, T any] interface {
	Transition(state State[K, T])
	Discarded(ticket Ticket[K], current K)
}

// Tracker is a mutex guarded keyed state machine. Callers Begin an operation
// for a key and later Resolve the returned ticket; stale tickets are ignored.
type Tracker[K comparable, T any] struct {
	mu       sync.Mutex
	state    State[K, T]
	changed  chan struct{}
	observer Observer[K, T]
}

// NewTracker constructs an idle tracker. observer may be nil.
func NewTracker[K comparable, T any](observer Observer[K, T]) *Tracker[K, T] {
	return &Tracker[K, T]{changed: make(chan struct{}), observer: observer}
}

// Begin moves the tracker into Loading for key and returns the ticket that
// must be used to resolve it. Any earlier ticket becomes stale.
func (t *Tracker[K, T]) Begin(key K) Ticket[K] {
	t.mu.Lock()
	var zero T
	t.state = State[K, T]{Key: key, Status: StatusLoading, Value: zero, Seq: t.state.Seq + 1}
	snapshot := t.state
	t.broadcastLocked()
	t.mu.Unlock()

	if t.observer != nil {
		t.observer.Transition(snapshot)
	}
	return Ticket[K]{Key: key, Seq: snapshot.Seq}
}

// Resolve applies the outcome of ticket. It returns false, leaving the state
// untouched, when the ticket is no longer the latest or its key differs from
// the current key.
func (t *Tracker[K, T]) Resolve(ticket Ticket[K], value T, err error) bool {
	t.mu.Lock()
	if ticket.Seq != t.state.Seq || ticket.Key != t.state.Key || t.state.Status != StatusLoading {
		current := t.state.Key
		t.mu.Unlock()
		if t.observer != nil {
			t.observer.Discarded(ticket, current)
		}
		return false
	}
	if err != nil {
		var zero T
		t.state.Status = StatusFailed
		t.state.Value = zero
		t.state.Err = err
	} else {
		t.state.Status = StatusSuccess
		t.state.Value = value
		t.state.Err = nil
	}
	snapshot := t.state
	t.broadcastLocked()
	t.mu.Unlock()

	if t.observer != nil {
		t.observer.Transition(snapshot)
	}
	return true
}

// Snapshot returns the current state.
func (t *Tracker[K, T]) Snapshot() State[K, T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Changed returns a channel closed on the next transition.
func (t *Tracker[K, T]) Changed() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.changed
}

// Wait blocks until the tracker leaves Loading or ctx is done. The last
// observed state is returned together with ctx.Err() on timeout.
func (t *Tracker[K, T]) Wait(ctx context.Context) (State[K, T], error) {
	for {
		t.mu.Lock()
		state, changed := t.state, t.changed
		t.mu.Unlock()
		if state.Status != StatusLoading {
			return state, nil
		}
		select {
		case <-ctx.Done():
			return state, ctx.Err()
		case <-changed:
		}
	}
}

func (t *Tracker[K, T]) broadcastLocked() {
	close(t.changed)
	t.changed = make(chan struct{})
}
