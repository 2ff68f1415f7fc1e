package analytics

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

// Defaults for the mock provider.
const (
	DefaultMockLatency   = 800 * time.Millisecond
	DefaultMockFaultRate = 0.10
)

var mockSeries = []ChartPoint{
	{Date: "2025-12-23", Value: 4000},
	{Date: "2025-12-24", Value: 3000},
	{Date: "2025-12-25", Value: 2000},
	{Date: "2025-12-26", Value: 2780},
	{Date: "2025-12-27", Value: 1890},
	{Date: "2025-12-28", Value: 2390},
	{Date: "2025-12-29", Value: 3490},
	{Date: "2025-12-30", Value: 3490},
}

// MockConfig tunes the simulated backend.
type MockConfig struct {
	Latency   time.Duration
	FaultRate float64
	Clock     clockwork.Clock
	// Rand returns values in [0,1). Nil uses math/rand/v2.
	Rand func() float64
}

// MockProvider computes deterministic results from the filter set and injects
// random server faults plus a fixed empty-result combination.
type MockProvider struct {
	latency   time.Duration
	faultRate float64
	clock     clockwork.Clock
	rand      func() float64
}

// NewMockProvider builds a MockProvider. A negative latency or fault rate
// disables the corresponding behaviour.
func NewMockProvider(cfg MockConfig) *MockProvider {
	p := &MockProvider{
		latency:   cfg.Latency,
		faultRate: cfg.FaultRate,
		clock:     cfg.Clock,
		rand:      cfg.Rand,
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.rand == nil {
		p.rand = rand.Float64
	}
	return p
}

// Fetch implements Provider.
func (p *MockProvider) Fetch(ctx context.Context, set filters.Set) (Result, error) {
	set = set.Canonical()
	if p.latency > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-p.clock.After(p.latency):
		}
	}

	if p.faultRate > 0 && p.rand() < p.faultRate {
		return Result{}, shared.Server("Internal Server Error")
	}

	result := MockResult(set)
	if IsEmptyCombination(set) {
		result.ChartData = []ChartPoint{}
	}
	return result, nil
}

// MockResult applies the deterministic rules without latency or faults.
func MockResult(set filters.Set) Result {
	result := Result{
		TotalRevenue:   45000,
		TotalOrders:    567,
		ConversionRate: 3.2,
		ActiveUsers:    1250,
		ChartData:      append([]ChartPoint(nil), mockSeries...),
	}
	if set.Time == filters.TimeToday {
		result.TotalRevenue = 12500
	}
	if set.Category == filters.CategorySales {
		result.TotalOrders = 320
	}
	if set.Status == filters.StatusActive {
		result.ConversionRate = 4.8
	}
	return result
}

// IsEmptyCombination reports whether set is the designated no-data selection.
func IsEmptyCombination(set filters.Set) bool {
	return set.Status == filters.StatusPending && set.Category == filters.CategorySupport
}
