package trajerr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/voeval/internal/fsutil"
)

// ReportName is the file name of the interactive HTML report for kind.
func ReportName(kind Kind) string {
	return fmt.Sprintf("%s_report.html", kind)
}

// HistogramCounts splits [min, max] of values into bins equal-width bins and
// counts the values in each; the last bin includes the maximum.
func HistogramCounts(values []float64, bins int) (edges []float64, counts []int) {
	if len(values) == 0 || bins < 1 {
		return nil, nil
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	edges = make([]float64, bins+1)
	floats.Span(edges, lo, hi)
	counts = make([]int, bins)
	width := (hi - lo) / float64(bins)
	for _, v := range values {
		k := int((v - lo) / width)
		if k >= bins {
			k = bins - 1
		}
		if k < 0 {
			k = 0
		}
		counts[k]++
	}
	return edges, counts
}

// RenderReport writes an HTML page with the error over time and its
// distribution.
func RenderReport(w io.Writer, r *Result, stats Summary, bins int) error {
	if bins < 1 {
		bins = DefaultHistogramBins
	}

	points := make([]opts.LineData, len(r.Errors))
	for i, v := range r.Errors {
		points[i] = opts.LineData{Value: []interface{}{r.Seconds[i], v}}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: r.Kind.Title(), Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("%s over Time", r.Kind.Title()),
			Subtitle: fmt.Sprintf("n=%d rmse=%.3f mean=%.3f median=%.3f std=%.3f",
				stats.Count, stats.RMSE, stats.Mean, stats.Median, stats.Std),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Seconds from Start (s)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Translational Error (m)"}),
	)
	line.AddSeries(r.Kind.Column(), points, charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}))

	edges, counts := HistogramCounts(r.Errors, bins)
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, c := range counts {
		x[i] = fmt.Sprintf("%.3f", edges[i])
		y[i] = opts.BarData{Value: c}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: fmt.Sprintf("%s Distribution", r.Kind.Title())}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Translational Error (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Frequency"}),
	)
	bar.SetXAxis(x).AddSeries("poses", y)

	page := components.NewPage()
	page.PageTitle = r.Kind.Title()
	page.AddCharts(line, bar)

	return page.Render(w)
}

// WriteReport renders the HTML report into path.
func WriteReport(fsys fsutil.FileSystem, path string, r *Result, stats Summary, bins int) error {
	var buf bytes.Buffer
	if err := RenderReport(&buf, r, stats, bins); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}
