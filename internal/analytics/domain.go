package analytics

import (
	"context"

	"github.com/odyssey-erp/pulse/internal/filters"
)

// ChartPoint is one day of the trend series.
type ChartPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Result is the analytics payload for one filter set.
type Result struct {
	TotalRevenue   float64      `json:"totalRevenue"`
	TotalOrders    int64        `json:"totalOrders"`
	ConversionRate float64      `json:"conversionRate"`
	ActiveUsers    int64        `json:"activeUsers"`
	ChartData      []ChartPoint `json:"chartData"`
}

// IsEmpty reports whether the result carries no chart data. An empty result is
// a successful answer, not an error.
func (r Result) IsEmpty() bool {
	return len(r.ChartData) == 0
}

// Provider resolves a filter set into a Result. Implementations report
// failures as *shared.Error values.
type Provider interface {
	Fetch(ctx context.Context, set filters.Set) (Result, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, set filters.Set) (Result, error)

// Fetch calls f.
func (f ProviderFunc) Fetch(ctx context.Context, set filters.Set) (Result, error) {
	return f(ctx, set)
}
