package analyzer

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes an HTML bar chart of the summary rows. Rows with an
// unknown time are left out.
func RenderChart(entries []SummaryEntry, w io.Writer) error {
	labels := make([]string, 0, len(entries))
	data := make([]opts.BarData, 0, len(entries))
	for _, e := range entries {
		if e.Time < 0 {
			continue
		}
		labels = append(labels, e.ID)
		data = append(data, opts.BarData{Name: e.ID, Value: e.Time})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Line profile summary"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Line profile summary",
			Subtitle: fmt.Sprintf("Top %d functions by total time (seconds)", len(data)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("total time", data)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("failed to render summary chart: %w", err)
	}
	return nil
}
