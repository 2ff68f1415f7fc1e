package ui

import (
	"bytes"
	"errors"
	"html/template"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/analytics/svg"
	"github.com/odyssey-erp/pulse/internal/dashboard"
	"github.com/odyssey-erp/pulse/internal/filters"
	"github.com/odyssey-erp/pulse/internal/shared"
)

func TestBuildLoading(t *testing.T) {
	vm, err := Build(dashboard.Outcome{Kind: dashboard.KindLoading, Filters: filters.Default()}, svg.Trend)
	require.NoError(t, err)
	assert.True(t, vm.Loading)
	assert.Len(t, vm.Cards, 4)
	for _, c := range vm.Cards {
		assert.True(t, c.Skeleton)
	}
	assert.Empty(t, vm.Chart)
}

func TestBuildSuccess(t *testing.T) {
	set := filters.Default()
	vm, err := Build(dashboard.Outcome{Kind: dashboard.KindSuccess, Filters: set, Result: analytics.MockResult(set)}, svg.Trend)
	require.NoError(t, err)

	require.True(t, vm.Success)
	values := map[string]string{}
	for _, c := range vm.Cards {
		values[c.Label] = c.Value
	}
	assert.Equal(t, "$45,000", values["Total Revenue"])
	assert.Equal(t, "567", values["Total Orders"])
	assert.Equal(t, "3.2%", values["Conversion Rate"])
	assert.Equal(t, "1,250", values["Active Users"])
	assert.Contains(t, string(vm.Chart), "<svg")
	assert.Equal(t, ChartTitle, vm.Title)
	assert.Len(t, vm.Series, 8)
}

func TestBuildEmptyHasNoChartAndNoError(t *testing.T) {
	set := filters.Decode("category=support&status=pending")
	result := analytics.MockResult(set)
	result.ChartData = []analytics.ChartPoint{}

	vm, err := Build(dashboard.Outcome{Kind: dashboard.KindEmpty, Filters: set, Result: result}, svg.Trend)
	require.NoError(t, err)
	assert.True(t, vm.Empty)
	assert.False(t, vm.Failed)
	assert.Equal(t, EmptyMessage, vm.Message)
	assert.Empty(t, vm.Chart)
	assert.Empty(t, vm.Cards)
	assert.Empty(t, vm.RetryURL)
}

func TestBuildFailedOffersRetry(t *testing.T) {
	set := filters.Decode("time=week")
	out := dashboard.Outcome{Kind: dashboard.KindFailed, Filters: set, Err: shared.Network("API error: 500 Internal Server Error")}
	vm, err := Build(out, svg.Trend)
	require.NoError(t, err)
	assert.True(t, vm.Failed)
	assert.Equal(t, FailedMessage, vm.Message)
	assert.Contains(t, vm.Detail, "500")
	assert.Equal(t, "/dashboard?time=week", vm.RetryURL)
}

func TestBuildPropagatesChartError(t *testing.T) {
	broken := func([]analytics.ChartPoint, svg.LineOpts) (template.HTML, error) {
		return "", errors.New("boom")
	}
	set := filters.Default()
	_, err := Build(dashboard.Outcome{Kind: dashboard.KindSuccess, Filters: set, Result: analytics.MockResult(set)}, broken)
	assert.Error(t, err)
}

func TestFilterFormMarksSelection(t *testing.T) {
	groups := FilterForm(filters.Decode("time=today"))
	require.Len(t, groups, 3)
	assert.Equal(t, filters.KeyTime, groups[0].Key)
	for _, o := range groups[0].Options {
		assert.Equal(t, o.Value == "today", o.Selected, o.Value)
	}
	assert.True(t, groups[1].Options[0].Selected, "all categories selected by default")
}

func TestWriteText(t *testing.T) {
	set := filters.Decode("time=today&category=sales")
	vm, err := Build(dashboard.Outcome{Kind: dashboard.KindSuccess, Filters: set, Result: analytics.MockResult(set)}, nil)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteText(buf, vm))
	out := buf.String()
	assert.Contains(t, out, "Time=Today, Category=Sales, Status=All Status")
	assert.Contains(t, out, "$12,500")
	assert.Contains(t, out, "2025-12-30")

	buf.Reset()
	require.NoError(t, WriteText(buf, ViewModel{Empty: true, Message: EmptyMessage}))
	assert.Contains(t, buf.String(), EmptyMessage)
}
