// Package ui turns a dashboard Outcome into a render-ready view model.
package ui

import (
	"fmt"
	"html/template"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/analytics/svg"
	"github.com/odyssey-erp/pulse/internal/dashboard"
	"github.com/odyssey-erp/pulse/internal/filters"
)

// DashboardPath is the canonical location of the dashboard page.
const DashboardPath = "/dashboard"

// Messages shown for the terminal non-success states.
const (
	EmptyMessage  = "No data available for the selected filters"
	FailedMessage = "Failed to load analytics data"
	ChartTitle    = "Trend Overview"
)

// ChartFunc renders the trend series. svg.Trend satisfies it.
type ChartFunc func(points []analytics.ChartPoint, opts svg.LineOpts) (template.HTML, error)

// Card is one KPI tile. Skeleton cards carry no values.
type Card struct {
	Label    string
	Value    string
	Trend    string
	Positive bool
	Skeleton bool
}

// Option is one entry of a filter select.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// FilterGroup is a filter select.
type FilterGroup struct {
	Key     string
	Label   string
	Options []Option
}

// Point is one row of the trend table.
type Point struct {
	Date  string
	Value string
}

// ViewModel is everything a template or text renderer needs. Exactly one of
// the state flags is true.
type ViewModel struct {
	State    string
	Loading  bool
	Success  bool
	Empty    bool
	Failed   bool
	Filters  []FilterGroup
	Location string
	Cards    []Card
	Chart    template.HTML
	Title    string
	Series   []Point
	Message  string
	Detail   string
	RetryURL string
}

var printer = message.NewPrinter(language.English)

type kpi struct {
	label string
	trend string
}

var kpis = []kpi{
	{"Total Revenue", "+12%"},
	{"Total Orders", "+8%"},
	{"Conversion Rate", "-2%"},
	{"Active Users", "+15%"},
}

// Build derives the view model from out. chart may be nil, in which case the
// success state carries only the tabular series.
func Build(out dashboard.Outcome, chart ChartFunc) (ViewModel, error) {
	set := out.Filters.Canonical()
	vm := ViewModel{
		State:    out.Kind.String(),
		Filters:  FilterForm(set),
		Location: Href(set),
	}

	switch out.Kind {
	case dashboard.KindSuccess:
		vm.Success = true
		vm.Cards = Cards(out.Result)
		vm.Title = ChartTitle
		vm.Series = make([]Point, 0, len(out.Result.ChartData))
		for _, p := range out.Result.ChartData {
			vm.Series = append(vm.Series, Point{Date: p.Date, Value: formatNumber(p.Value)})
		}
		if chart != nil {
			html, err := chart(out.Result.ChartData, svg.LineOpts{
				Title:       ChartTitle,
				Description: "Daily value for " + set.String(),
				ShowDots:    true,
				MaxLabels:   10,
			})
			if err != nil {
				return ViewModel{}, fmt.Errorf("ui: render chart: %w", err)
			}
			vm.Chart = html
		}
	case dashboard.KindEmpty:
		vm.Empty = true
		vm.Message = EmptyMessage
	case dashboard.KindFailed:
		vm.Failed = true
		vm.Message = FailedMessage
		if out.Err != nil {
			vm.Detail = out.Err.Message
		}
		vm.RetryURL = Href(set)
	default:
		vm.State = dashboard.KindLoading.String()
		vm.Loading = true
		vm.Cards = make([]Card, len(kpis))
		for i := range vm.Cards {
			vm.Cards[i] = Card{Skeleton: true}
		}
	}
	return vm, nil
}

// Cards formats the four headline KPIs.
func Cards(r analytics.Result) []Card {
	values := []string{
		"$" + formatNumber(r.TotalRevenue),
		formatNumber(float64(r.TotalOrders)),
		strconv.FormatFloat(r.ConversionRate, 'f', -1, 64) + "%",
		formatNumber(float64(r.ActiveUsers)),
	}
	cards := make([]Card, len(kpis))
	for i, k := range kpis {
		cards[i] = Card{Label: k.label, Value: values[i], Trend: k.trend, Positive: k.trend[0] == '+'}
	}
	return cards
}

// Href returns the dashboard URL for set.
func Href(set filters.Set) string {
	if q := filters.Encode(set); q != "" {
		return DashboardPath + "?" + q
	}
	return DashboardPath
}

// FilterForm lists every filter option with the current selection marked.
func FilterForm(set filters.Set) []FilterGroup {
	return []FilterGroup{
		group(filters.KeyTime, "Time", string(set.Time), []Option{
			{Value: "", Label: "All Time"},
			{Value: string(filters.TimeToday), Label: "Today"},
			{Value: string(filters.TimeWeek), Label: "This Week"},
			{Value: string(filters.TimeMonth), Label: "This Month"},
		}),
		group(filters.KeyCategory, "Category", string(set.Category), []Option{
			{Value: "", Label: "All Categories"},
			{Value: string(filters.CategorySales), Label: "Sales"},
			{Value: string(filters.CategoryMarketing), Label: "Marketing"},
			{Value: string(filters.CategorySupport), Label: "Support"},
		}),
		group(filters.KeyStatus, "Status", string(set.Status), []Option{
			{Value: "", Label: "All Status"},
			{Value: string(filters.StatusActive), Label: "Active"},
			{Value: string(filters.StatusPending), Label: "Pending"},
			{Value: string(filters.StatusCompleted), Label: "Completed"},
		}),
	}
}

func group(key, label, current string, options []Option) FilterGroup {
	if current == filters.All {
		current = ""
	}
	for i := range options {
		options[i].Selected = options[i].Value == current
	}
	return FilterGroup{Key: key, Label: label, Options: options}
}

func formatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}
