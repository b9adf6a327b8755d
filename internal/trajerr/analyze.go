package trajerr

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/monitoring"
)

// Options controls an analysis run.
type Options struct {
	// OutputDir receives plots, report and CSV; defaults to the input dir.
	OutputDir     string
	SegmentSize   float64
	HistogramBins int
}

// Report lists what an analysis produced.
type Report struct {
	Result   *Result
	Stats    Summary
	Segments []Segment
	Files    []string
}

// Analyze loads the results in dir, prints the statistics to w and writes
// the plots, HTML report and CSV export.
func Analyze(fsys fsutil.FileSystem, w io.Writer, dir string, kind Kind, opts Options) (*Report, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = dir
	}
	if opts.SegmentSize <= 0 {
		opts.SegmentSize = DefaultSegmentSize
	}
	if opts.HistogramBins < 1 {
		opts.HistogramBins = DefaultHistogramBins
	}

	r, err := Load(fsys, dir, kind)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("Loaded %d %s samples from %s", len(r.Errors), strings.ToUpper(string(kind)), dir)

	if err := PrintResult(w, r); err != nil {
		return nil, err
	}

	if err := fsys.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	rep := &Report{Result: r, Stats: r.DisplayStats()}
	out := func(name string) string {
		path := filepath.Join(opts.OutputDir, name)
		rep.Files = append(rep.Files, path)
		return path
	}

	linePlot, err := PlotErrorLine(r, rep.Stats)
	if err != nil {
		return nil, err
	}
	if err := savePlot(fsys, linePlot, 12*vg.Inch, 6*vg.Inch, out(LinePlotName(kind))); err != nil {
		return nil, err
	}

	hist, err := PlotHistogram(r, rep.Stats, opts.HistogramBins)
	if err != nil {
		return nil, err
	}
	if err := savePlot(fsys, hist, 10*vg.Inch, 6*vg.Inch, out(HistogramPlotName(kind))); err != nil {
		return nil, err
	}

	rep.Segments = Segments(r.Distances, r.Errors, opts.SegmentSize)
	if len(rep.Segments) == 0 {
		monitoring.Logf("Warning: no data segments found for box plot; skipping")
	} else {
		boxes, err := PlotSegmentBoxes(kind, rep.Segments, opts.SegmentSize)
		if err != nil {
			return nil, err
		}
		if err := savePlot(fsys, boxes, 14*vg.Inch, 7*vg.Inch, out(BoxPlotName(kind))); err != nil {
			return nil, err
		}
	}

	if err := WriteReport(fsys, out(ReportName(kind)), r, rep.Stats, opts.HistogramBins); err != nil {
		return nil, err
	}
	if err := ExportCSV(fsys, out(CSVName(kind)), r); err != nil {
		return nil, err
	}

	for _, f := range rep.Files {
		monitoring.Logf("Saved %s", f)
	}
	return rep, nil
}

// PrintResult prints stats.json and, when present, the Sim3 alignment.
func PrintResult(w io.Writer, r *Result) error {
	rule := strings.Repeat("=", 50)

	stats, err := json.MarshalIndent(r.Stats, "", "    ")
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s\n     %s STATISTICS\n%s\n", rule, strings.ToUpper(r.Kind.Title()), rule)
	fmt.Fprintln(w, string(stats))

	if r.Alignment != nil {
		fmt.Fprintf(w, "\n%s\n     ALIGNMENT TRANSFORMATION (Sim3)\n%s\n", rule, rule)
		fmt.Fprintf(w, "%.6v\n", mat.Formatted(r.Alignment, mat.Squeeze()))
	}
	fmt.Fprintf(w, "%s\n\n", rule)
	return nil
}
