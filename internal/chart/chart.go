// Package chart renders event-array histograms as standalone HTML pages.
package chart

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"neutrons/internal/job"
)

// Bins is the default number of histogram buckets.
const Bins = 40

// Histogram builds a bar chart of values spread over bins buckets between
// their smallest and largest value.
func Histogram(title string, values []uint32, bins int) *charts.Bar {
	s := job.Summarize(values)
	bins = binCount(s, bins)
	edges, counts := job.Histogram(values, float64(s.Min), float64(s.Max)+1, bins)

	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = strconv.FormatFloat(edges[i], 'f', 0, 64)
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "900px", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: fmt.Sprintf("events=%d mean=%.1f sd=%.1f min=%d max=%d", s.Count, s.Mean, s.StdDev, s.Min, s.Max),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("events", y)
	return bar
}

// binCount caps bins at one bucket per distinct integer value, so narrow
// arrays such as uniform pulses do not get duplicate bucket labels.
func binCount(s job.Summary, bins int) int {
	span := int64(s.Max) - int64(s.Min) + 1
	if int64(bins) > span {
		bins = int(span)
	}
	return max(bins, 1)
}

// RenderPulse writes a page with the time-of-flight and pixel histograms of
// one pulse.
func RenderPulse(w io.Writer, pulseID uint64, tof, pixel []uint32, bins int) error {
	page := components.NewPage()
	page.PageTitle = fmt.Sprintf("Pulse %d", pulseID)
	page.AddCharts(
		Histogram(fmt.Sprintf("Time of flight, pulse %d", pulseID), tof, bins),
		Histogram(fmt.Sprintf("Pixel id, pulse %d", pulseID), pixel, bins),
	)
	return page.Render(w)
}
