package svg

import "html/template"

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
	// MaxLabels thins x-axis labels on dense series. Zero shows every label.
	MaxLabels int
}

// LineRenderer renders a labelled series as inline SVG.
type LineRenderer func(width, height int, series []float64, labels []string, opts LineOpts) (template.HTML, error)

// Defaults for the analytics charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 240
	DefaultPadding = 32.0
	DefaultTicks   = 5
)
