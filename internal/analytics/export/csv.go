package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/pulse/internal/analytics"
	"github.com/odyssey-erp/pulse/internal/filters"
)

// WriteSummaryCSV serialises the filter scope and KPI totals.
func WriteSummaryCSV(w io.Writer, set filters.Set, result analytics.Result) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Time", string(set.Time)},
		{"Category", string(set.Category)},
		{"Status", string(set.Status)},
		{"Total Revenue", formatFloat(result.TotalRevenue)},
		{"Total Orders", strconv.FormatInt(result.TotalOrders, 10)},
		{"Conversion Rate", formatFloat(result.ConversionRate)},
		{"Active Users", strconv.FormatInt(result.ActiveUsers, 10)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSeriesCSV emits the daily chart series. An empty series produces only
// the header row.
func WriteSeriesCSV(w io.Writer, points []analytics.ChartPoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Date", "Value"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{point.Date, formatFloat(point.Value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
