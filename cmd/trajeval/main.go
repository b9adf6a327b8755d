// Command trajeval summarises an ATE or RPE result directory: it prints the
// statistics and writes plots, an interactive HTML report and a CSV export.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/banshee-data/voeval/internal/config"
	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/trajerr"
	"github.com/banshee-data/voeval/internal/version"
)

// Config holds the command-line options.
type Config struct {
	ConfigFile    string
	Dir           string
	Kind          string
	OutputDir     string
	SegmentSize   float64
	HistogramBins int
	ShowVersion   bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{set: map[string]bool{}}
	fs := flag.NewFlagSet("trajeval", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigFile, "config", "", "JSON configuration file (optional)")
	fs.StringVar(&cfg.Dir, "dir", "", "Result directory holding error_array.npy and friends (required)")
	fs.StringVar(&cfg.Kind, "kind", string(trajerr.ATE), "Error metric: ate or rpe")
	fs.StringVar(&cfg.OutputDir, "out", "", "Output directory (default: -dir)")
	fs.Float64Var(&cfg.SegmentSize, "segment-size", config.DefaultSegmentSize, "Distance segment size in metres for the box plot")
	fs.IntVar(&cfg.HistogramBins, "bins", config.DefaultHistogramBins, "Histogram bin count")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: trajeval -dir <results> [options]\n\n")
		fmt.Fprintf(stderr, "Analyses trajectory error results exported by the evaluation pipeline.\n\n")
		fmt.Fprintf(stderr, "Outputs:\n")
		fmt.Fprintf(stderr, "  <kind>_vs_distance_plot.png / rpe_vs_time_plot.png\n")
		fmt.Fprintf(stderr, "  <kind>_distribution_histogram.png\n")
		fmt.Fprintf(stderr, "  <kind>_boxplot_by_segment.png\n")
		fmt.Fprintf(stderr, "  <kind>_report.html\n")
		fmt.Fprintf(stderr, "  <kind>_data_full.csv\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  trajeval -dir results/ate\n")
		fmt.Fprintf(stderr, "  trajeval -dir results/rpe -kind rpe -out figures\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })
	return cfg, nil
}

// analysisOptions merges the optional config file with explicit flags.
func (c Config) analysisOptions() (trajerr.Kind, trajerr.Options, error) {
	kind, err := trajerr.ParseKind(c.Kind)
	if err != nil {
		return "", trajerr.Options{}, err
	}

	file := config.EmptyConfig()
	if c.ConfigFile != "" {
		if file, err = config.LoadConfig(c.ConfigFile); err != nil {
			return "", trajerr.Options{}, err
		}
	}
	if c.set["segment-size"] {
		file.SegmentSize = &c.SegmentSize
	}
	if c.set["bins"] {
		file.HistogramBins = &c.HistogramBins
	}
	if err := file.Validate(); err != nil {
		return "", trajerr.Options{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return kind, trajerr.Options{
		OutputDir:     c.OutputDir,
		SegmentSize:   file.GetSegmentSize(),
		HistogramBins: file.GetHistogramBins(),
	}, nil
}

func main() {
	cfg, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		os.Exit(1)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String("trajeval"))
		return
	}
	if cfg.Dir == "" {
		fmt.Fprintln(os.Stderr, "Error: -dir is required")
		os.Exit(1)
	}

	if err := run(fsutil.OSFileSystem{}, os.Stdout, cfg); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run(fsys fsutil.FileSystem, stdout io.Writer, cfg Config) error {
	kind, opts, err := cfg.analysisOptions()
	if err != nil {
		return err
	}
	if !fsys.IsDir(cfg.Dir) {
		return fmt.Errorf("result directory not found: %s", cfg.Dir)
	}

	rep, err := trajerr.Analyze(fsys, stdout, cfg.Dir, kind, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Analysis complete: %d samples, %d segments, %d files written\n",
		rep.Stats.Count, len(rep.Segments), len(rep.Files))
	return nil
}
