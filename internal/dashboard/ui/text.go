package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// WriteText renders vm as plain-text tables.
func WriteText(w io.Writer, vm ViewModel) error {
	if _, err := fmt.Fprintf(w, "Filters: %s\n", selection(vm.Filters)); err != nil {
		return err
	}

	switch {
	case vm.Loading:
		_, err := fmt.Fprintln(w, "Loading...")
		return err
	case vm.Empty:
		_, err := fmt.Fprintln(w, vm.Message)
		return err
	case vm.Failed:
		_, err := fmt.Fprintf(w, "%s: %s\nRetry: %s\n", vm.Message, vm.Detail, vm.RetryURL)
		return err
	}

	kpi := tablewriter.NewWriter(w)
	kpi.SetHeader([]string{"Metric", "Value", "Trend"})
	kpi.SetAutoFormatHeaders(false)
	for _, card := range vm.Cards {
		kpi.Append([]string{card.Label, card.Value, card.Trend})
	}
	kpi.Render()

	if _, err := fmt.Fprintf(w, "\n%s\n", vm.Title); err != nil {
		return err
	}
	series := tablewriter.NewWriter(w)
	series.SetHeader([]string{"Date", "Value"})
	series.SetAutoFormatHeaders(false)
	series.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, p := range vm.Series {
		series.Append([]string{p.Date, p.Value})
	}
	series.Render()
	return nil
}

func selection(groups []FilterGroup) string {
	parts := make([]string, 0, len(groups))
	for _, g := range groups {
		for _, o := range g.Options {
			if o.Selected {
				parts = append(parts, g.Label+"="+o.Label)
			}
		}
	}
	return strings.Join(parts, ", ")
}
