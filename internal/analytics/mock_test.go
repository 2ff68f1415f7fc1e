package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

func fixedRand(v float64) func() float64 {
	return func() float64 { return v }
}

func TestMockProviderRules(t *testing.T) {
	p := NewMockProvider(MockConfig{Rand: fixedRand(0.99), FaultRate: DefaultMockFaultRate})
	ctx := context.Background()

	base, err := p.Fetch(ctx, filters.Default())
	require.NoError(t, err)
	assert.Equal(t, 45000.0, base.TotalRevenue)
	assert.Equal(t, int64(567), base.TotalOrders)
	assert.Equal(t, 3.2, base.ConversionRate)
	assert.Equal(t, int64(1250), base.ActiveUsers)
	assert.Len(t, base.ChartData, 8)
	assert.Equal(t, "2025-12-23", base.ChartData[0].Date)

	tuned, err := p.Fetch(ctx, filters.Set{Time: filters.TimeToday, Category: filters.CategorySales, Status: filters.StatusActive})
	require.NoError(t, err)
	assert.Equal(t, 12500.0, tuned.TotalRevenue)
	assert.Equal(t, int64(320), tuned.TotalOrders)
	assert.Equal(t, 4.8, tuned.ConversionRate)
}

func TestMockProviderEmptyCombination(t *testing.T) {
	p := NewMockProvider(MockConfig{Rand: fixedRand(0.5), FaultRate: 0.1})
	set := filters.Decode("category=support&status=pending")

	result, err := p.Fetch(context.Background(), set)
	require.NoError(t, err)
	assert.True(t, result.IsEmpty())
	assert.NotNil(t, result.ChartData, "empty series must encode as [] not null")
	assert.Equal(t, 45000.0, result.TotalRevenue)
}

func TestMockProviderFaultInjection(t *testing.T) {
	p := NewMockProvider(MockConfig{Rand: fixedRand(0.05), FaultRate: 0.1})

	_, err := p.Fetch(context.Background(), filters.Decode("category=support&status=pending"))
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindServer))
	assert.Equal(t, "Internal Server Error", err.Error())
}

func TestMockProviderLatencyUsesClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	p := NewMockProvider(MockConfig{Latency: DefaultMockLatency, Clock: clock, FaultRate: -1})

	done := make(chan Result, 1)
	go func() {
		result, _ := p.Fetch(context.Background(), filters.Default())
		done <- result
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	select {
	case <-done:
		t.Fatal("fetch returned before latency elapsed")
	default:
	}
	clock.Advance(DefaultMockLatency)

	select {
	case result := <-done:
		assert.False(t, result.IsEmpty())
	case <-time.After(time.Second):
		t.Fatal("fetch did not complete after advancing clock")
	}
}

func TestMockProviderHonoursCancellation(t *testing.T) {
	p := NewMockProvider(MockConfig{Latency: time.Hour, Clock: clockwork.NewFakeClock()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Fetch(ctx, filters.Default())
	assert.ErrorIs(t, err, context.Canceled)
}
