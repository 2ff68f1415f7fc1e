package dashboard

import (
	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/async"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

// Kind tags an Outcome.
type Kind int

const (
	KindIdle Kind = iota
	KindLoading
	KindSuccess
	KindEmpty
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindEmpty:
		return "empty"
	case KindFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Outcome is the observable state of a View for one filter set. Result is
// set for Success and Empty, Err only for Failed.
type Outcome struct {
	Kind    Kind
	Filters filters.Set
	Result  analytics.Result
	Err     *shared.Error
}

// Retryable reports whether a retry action should be offered.
func (o Outcome) Retryable() bool {
	return o.Kind == KindFailed
}

func outcomeOf(state async.State[filters.Set, analytics.Result]) Outcome {
	out := Outcome{Filters: state.Key}
	switch state.Status {
	case async.StatusLoading:
		out.Kind = KindLoading
	case async.StatusSuccess:
		out.Kind = KindSuccess
		if state.Value.IsEmpty() {
			out.Kind = KindEmpty
		}
		out.Result = state.Value
	case async.StatusFailed:
		out.Kind = KindFailed
		out.Err = shared.AsError(state.Err)
	default:
		out.Kind = KindIdle
		out.Filters = filters.Default()
	}
	return out
}
