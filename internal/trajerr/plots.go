package trajerr

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/voeval/internal/fsutil"
)

// DefaultHistogramBins is the bin count of the error distribution plot.
const DefaultHistogramBins = 20

var (
	colorDarkOrange = color.RGBA{R: 255, G: 140, A: 255}
	colorDarkGreen  = color.RGBA{G: 100, A: 255}
	colorBlue       = color.RGBA{B: 255, A: 255}
	colorRed        = color.RGBA{R: 255, A: 255}
	colorGrey       = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

// LinePlotName is the file name of the error line plot for kind.
func LinePlotName(kind Kind) string {
	if kind == RPE {
		return "rpe_vs_time_plot.png"
	}
	return fmt.Sprintf("%s_vs_distance_plot.png", kind)
}

// HistogramPlotName is the file name of the distribution plot for kind.
func HistogramPlotName(kind Kind) string {
	return fmt.Sprintf("%s_distribution_histogram.png", kind)
}

// BoxPlotName is the file name of the per-segment box plot for kind.
func BoxPlotName(kind Kind) string {
	return fmt.Sprintf("%s_boxplot_by_segment.png", kind)
}

// PlotErrorLine draws the error against distance (ATE) or time (RPE) with
// the summary statistics in the legend.
func PlotErrorLine(r *Result, stats Summary) (*plot.Plot, error) {
	p := plot.New()
	p.Y.Label.Text = "Translational Error (m)"
	p.Add(plotter.NewGrid())

	xs := r.Distances
	label := "Estimated Trajectory ATE"
	lineColor := colorDarkOrange
	if r.Kind == RPE {
		xs = r.Seconds
		p.Title.Text = r.Info.Title
		if p.Title.Text == "" {
			p.Title.Text = "Relative Pose Error (RPE) over Time"
		}
		p.X.Label.Text = "Seconds from Start (s)"
		label = r.Info.Label
		if label == "" {
			label = "RPE (m)"
		}
		lineColor = colorDarkGreen
	} else {
		p.Title.Text = "Absolute Trajectory Error (ATE) over Trajectory Distance"
		p.X.Label.Text = "Distance from Start (m)"
	}

	pts := make(plotter.XYs, len(r.Errors))
	for i, v := range r.Errors {
		pts[i] = plotter.XY{X: xs[i], Y: v}
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create error line: %w", err)
	}
	line.Color = lineColor
	line.Width = vg.Points(1.5)
	p.Add(line)

	p.Legend.Add(label, line)
	p.Legend.Add(fmt.Sprintf("RMSE: %.3f m", stats.RMSE))
	p.Legend.Add(fmt.Sprintf("Mean: %.3f m", stats.Mean))
	p.Legend.Add(fmt.Sprintf("Median: %.3f m", stats.Median))
	p.Legend.Add(fmt.Sprintf("Std Dev: %.3f m", stats.Std))
	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}

// PlotHistogram draws the error distribution in bins bins with dashed
// reference lines at the RMSE and mean.
func PlotHistogram(r *Result, stats Summary, bins int) (*plot.Plot, error) {
	if bins < 1 {
		bins = DefaultHistogramBins
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Distribution", r.Kind.Title())
	p.X.Label.Text = "Translational Error (m)"
	p.Y.Label.Text = "Frequency (Number of Poses)"

	hist, err := plotter.NewHist(plotter.Values(r.Errors), bins)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram: %w", err)
	}
	hist.FillColor = colorGrey
	p.Add(hist)

	var top float64
	for _, b := range hist.Bins {
		top = max(top, b.Weight)
	}

	for _, ref := range []struct {
		name  string
		value float64
		color color.Color
	}{
		{"RMSE", stats.RMSE, colorBlue},
		{"Mean", stats.Mean, colorRed},
	} {
		l, err := plotter.NewLine(plotter.XYs{{X: ref.value, Y: 0}, {X: ref.value, Y: top}})
		if err != nil {
			return nil, err
		}
		l.Color = ref.color
		l.Width = vg.Points(1.5)
		l.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}
		p.Add(l)
		p.Legend.Add(fmt.Sprintf("%s: %.3f m", ref.name, ref.value), l)
	}
	p.Legend.Top = true

	return p, nil
}

// PlotSegmentBoxes draws one box per distance segment.
func PlotSegmentBoxes(kind Kind, segments []Segment, size float64) (*plot.Plot, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("no data segments for box plot")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Distribution (Box Plot) across Trajectory Segments (%.2fm Segments)",
		strings.ToUpper(string(kind)), size)
	p.X.Label.Text = "Distance Segment Start Point (m)"
	p.Y.Label.Text = "Translational Error (m)"
	p.X.Tick.Label.Rotation = math.Pi / 4

	labels := make([]string, len(segments))
	for i, seg := range segments {
		box, err := plotter.NewBoxPlot(vg.Points(12), float64(i), plotter.Values(seg.Values))
		if err != nil {
			return nil, fmt.Errorf("failed to create box for segment %s: %w", seg.Label(), err)
		}
		box.MedianStyle.Color = colorRed
		p.Add(box)
		labels[i] = seg.Label()
	}
	p.NominalX(labels...)
	p.Add(plotter.NewGrid())

	return p, nil
}

// savePlot renders p as PNG and writes it through fsys.
func savePlot(fsys fsutil.FileSystem, p *plot.Plot, w, h vg.Length, path string) error {
	wt, err := p.WriterTo(w, h, "png")
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return fsys.WriteFile(path, buf.Bytes(), 0644)
}
