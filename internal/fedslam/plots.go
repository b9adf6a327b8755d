package fedslam

import (
	"bytes"
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/voeval/internal/fsutil"
)

const (
	TrajectoryDriftFile = "pp_fedslam_trajectory_drift.png"
	AblationStudyFile   = "pp_fedslam_ablation_study.png"
)

var (
	black = color.RGBA{A: 255}
	red   = color.RGBA{R: 220, G: 20, B: 20, A: 255}
	blue  = color.RGBA{R: 20, G: 60, B: 220, A: 255}
	green = color.RGBA{G: 160, A: 255}
	grey  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
)

func xys(p Path) plotter.XYs {
	pts := make(plotter.XYs, len(p.X))
	for i := range p.X {
		pts[i] = plotter.XY{X: p.X[i], Y: p.Y[i]}
	}
	return pts
}

func marker(x, y float64, shape draw.GlyphDrawer, c color.Color) (*plotter.Scatter, error) {
	s, err := plotter.NewScatter(plotter.XYs{{X: x, Y: y}})
	if err != nil {
		return nil, err
	}
	s.GlyphStyle = draw.GlyphStyle{Color: c, Radius: vg.Points(5), Shape: shape}
	return s, nil
}

// PlotTrajectoryDrift draws the three trajectories, the landmarks and the
// start and end markers.
func PlotTrajectoryDrift(d Drift) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Trajectory Drift and Feature Map Visualization"
	p.X.Label.Text = "X Position [m]"
	p.Y.Label.Text = "Y Position [m]"
	p.Add(plotter.NewGrid())

	gt, err := plotter.NewLine(xys(d.GroundTruth))
	if err != nil {
		return nil, err
	}
	gt.Color = black
	gt.Dashes = []vg.Length{vg.Points(5), vg.Points(3)}

	fedAvg, err := plotter.NewLine(xys(d.FedAvg))
	if err != nil {
		return nil, err
	}
	fedAvg.Color = red
	fedAvg.Width = vg.Points(2)

	pp, err := plotter.NewLine(xys(d.PPFedSLAM))
	if err != nil {
		return nil, err
	}
	pp.Color = blue
	pp.Width = vg.Points(2)

	features, err := plotter.NewScatter(xys(d.Features))
	if err != nil {
		return nil, err
	}
	features.GlyphStyle = draw.GlyphStyle{Color: grey, Radius: vg.Points(1.5), Shape: draw.CircleGlyph{}}

	p.Add(gt, fedAvg, pp, features)
	p.Legend.Add("Ground Truth", gt)
	p.Legend.Add("FedAvg Baseline", fedAvg)
	p.Legend.Add("PP-FedSLAM", pp)
	p.Legend.Add("Feature Map Points", features)

	startX, startY := d.GroundTruth.X[0], d.GroundTruth.Y[0]
	gtX, gtY := d.GroundTruth.Last()
	faX, faY := d.FedAvg.Last()
	ppX, ppY := d.PPFedSLAM.Last()
	for _, m := range []struct {
		label string
		x, y  float64
		shape draw.GlyphDrawer
		color color.Color
	}{
		{"Start", startX, startY, draw.CircleGlyph{}, green},
		{"End (GT)", gtX, gtY, draw.PlusGlyph{}, black},
		{"End (FedAvg)", faX, faY, draw.CrossGlyph{}, red},
		{"End (PP-FedSLAM)", ppX, ppY, draw.SquareGlyph{}, blue},
	} {
		s, err := marker(m.x, m.y, m.shape, m.color)
		if err != nil {
			return nil, err
		}
		p.Add(s)
		p.Legend.Add(m.label, s)
	}
	p.Legend.Top = true

	return p, nil
}

// PlotAblationStudy draws ATE against the privacy noise parameter on a
// logarithmic axis.
func PlotAblationStudy(points []AblationPoint) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Ablation Study: Accuracy vs. Privacy Trade-off (σ)"
	p.X.Label.Text = "Differential Privacy Parameter σ (← Higher Privacy)"
	p.Y.Label.Text = "Absolute Trajectory Error (ATE) [m] (↓ Better)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	fedAvg := make(plotter.XYs, len(points))
	pp := make(plotter.XYs, len(points))
	for i, pt := range points {
		fedAvg[i] = plotter.XY{X: pt.Sigma, Y: pt.FedAvgATE}
		pp[i] = plotter.XY{X: pt.Sigma, Y: pt.PPFedSLAMATE}
	}

	for _, series := range []struct {
		label string
		pts   plotter.XYs
		color color.Color
		shape draw.GlyphDrawer
	}{
		{"FedAvg Baseline", fedAvg, red, draw.CircleGlyph{}},
		{"PP-FedSLAM (with Reliability r_i)", pp, blue, draw.SquareGlyph{}},
	} {
		line, glyphs, err := plotter.NewLinePoints(series.pts)
		if err != nil {
			return nil, err
		}
		line.Color = series.color
		line.Width = vg.Points(2)
		glyphs.GlyphStyle = draw.GlyphStyle{Color: series.color, Radius: vg.Points(4), Shape: series.shape}
		p.Add(line, glyphs)
		p.Legend.Add(series.label, line, glyphs)
	}
	p.Legend.Top = true

	return p, nil
}

// WriteFigures renders both figures as PNG into dir and returns their paths.
func WriteFigures(fsys fsutil.FileSystem, dir string, d Drift, ablation []AblationPoint) ([]string, error) {
	drift, err := PlotTrajectoryDrift(d)
	if err != nil {
		return nil, fmt.Errorf("trajectory drift plot: %w", err)
	}
	study, err := PlotAblationStudy(ablation)
	if err != nil {
		return nil, fmt.Errorf("ablation study plot: %w", err)
	}

	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	var paths []string
	for _, fig := range []struct {
		p    *plot.Plot
		name string
		w, h vg.Length
	}{
		{drift, TrajectoryDriftFile, 8 * vg.Inch, 8 * vg.Inch},
		{study, AblationStudyFile, 8 * vg.Inch, 6 * vg.Inch},
	} {
		path := filepath.Join(dir, fig.name)
		wt, err := fig.p.WriterTo(fig.w, fig.h, "png")
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", fig.name, err)
		}
		var buf bytes.Buffer
		if _, err := wt.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", fig.name, err)
		}
		if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
