// Command associate pairs the records of two timestamped listings (RGB and
// depth frames of a TUM RGB-D sequence by default) and writes the matches
// to an associations file inside the data directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/voeval/internal/associate"
	"github.com/banshee-data/voeval/internal/config"
	"github.com/banshee-data/voeval/internal/db"
	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/version"
)

// Config holds the command-line options.
type Config struct {
	ConfigFile    string
	DataDir       string
	FirstFile     string
	SecondFile    string
	OutputFile    string
	MaxDifference float64
	Strategy      string
	Workers       int
	LedgerDB      string
	Quiet         bool
	ShowVersion   bool

	// set holds the names of flags given explicitly on the command line.
	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	cfg := Config{set: map[string]bool{}}
	fs := flag.NewFlagSet("associate", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&cfg.ConfigFile, "config", "", "JSON configuration file (optional)")
	fs.StringVar(&cfg.DataDir, "data", config.DefaultDataDir, "Directory holding both listings")
	fs.StringVar(&cfg.FirstFile, "first", config.DefaultFirstFile, "First listing file name")
	fs.StringVar(&cfg.SecondFile, "second", config.DefaultSecondFile, "Second listing file name")
	fs.StringVar(&cfg.OutputFile, "output", config.DefaultOutputFile, "Associations file name, written inside -data")
	fs.Float64Var(&cfg.MaxDifference, "max-diff", config.DefaultMaxDifference, "Maximum timestamp difference in seconds (exclusive)")
	fs.StringVar(&cfg.Strategy, "strategy", config.DefaultStrategy, "Association strategy: brute, auto, parallel")
	fs.IntVar(&cfg.Workers, "workers", 0, "Workers for the parallel strategy (0 = one per CPU)")
	fs.StringVar(&cfg.LedgerDB, "ledger", "", "SQLite run ledger to record this run in (optional)")
	fs.BoolVar(&cfg.Quiet, "q", false, "Suppress progress logging")
	fs.BoolVar(&cfg.ShowVersion, "version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: associate [options]\n\n")
		fmt.Fprintf(stderr, "Associates two timestamped listings by greedy nearest-timestamp matching.\n")
		fmt.Fprintf(stderr, "Each line of the output holds: first_ts first_payload second_ts second_payload\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  associate -data tum_data/rgbd_dataset_freiburg1_xyz\n")
		fmt.Fprintf(stderr, "  associate -max-diff 0.01 -strategy auto -ledger runs.db\n")
		fmt.Fprintf(stderr, "  associate -config config/voeval.defaults.json\n")
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) { cfg.set[f.Name] = true })
	return cfg, nil
}

// resolve merges the optional config file with the explicitly set flags.
// Flags win over file values; untouched fields keep the file's values.
func (c Config) resolve() (*config.Config, error) {
	file := config.EmptyConfig()
	if c.ConfigFile != "" {
		loaded, err := config.LoadConfig(c.ConfigFile)
		if err != nil {
			return nil, err
		}
		file = loaded
	}

	if c.set["data"] {
		file.DataDir = &c.DataDir
	}
	if c.set["first"] {
		file.FirstFile = &c.FirstFile
	}
	if c.set["second"] {
		file.SecondFile = &c.SecondFile
	}
	if c.set["output"] {
		file.OutputFile = &c.OutputFile
	}
	if c.set["max-diff"] {
		file.MaxDifference = &c.MaxDifference
	}
	if c.set["strategy"] {
		file.Strategy = &c.Strategy
	}
	if c.set["workers"] {
		file.Workers = &c.Workers
	}
	if c.set["ledger"] {
		file.LedgerDB = &c.LedgerDB
	}

	if err := file.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return file, nil
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
		fmt.Println(version.String("associate"))
		return
	}
	if cfg.Quiet {
		log.SetOutput(io.Discard)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, fsutil.OSFileSystem{}, os.Stdout, cfg); err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("Error: %v", err)
	}
}

func run(ctx context.Context, fsys fsutil.FileSystem, stdout io.Writer, cfg Config) error {
	resolved, err := cfg.resolve()
	if err != nil {
		return err
	}
	opts := associate.OptionsFromConfig(resolved)

	res, err := associate.Run(ctx, fsys, opts)
	if err != nil {
		return err
	}
	printReport(stdout, res)

	if path := resolved.GetLedgerDB(); path != "" {
		id, err := record(ctx, path, opts, res)
		if err != nil {
			return fmt.Errorf("failed to record run in ledger: %w", err)
		}
		fmt.Fprintf(stdout, "Recorded run %s in %s\n", id, path)
	}
	return nil
}

func printReport(w io.Writer, res *associate.Result) {
	fmt.Fprintf(w, "Success! Wrote %d associations to %s\n", res.Written, res.OutputPath)
	g := res.Gaps
	if g.Count == 0 {
		fmt.Fprintf(w, "  no records matched (%d unmatched)\n", g.Unmatched)
		return
	}
	fmt.Fprintf(w, "  gaps: mean %.6fs, median %.6fs, max %.6fs, rmse %.6fs (%d unmatched)\n",
		g.Mean, g.Median, g.Max, g.RMSE, g.Unmatched)
}

func record(ctx context.Context, path string, opts associate.Options, res *associate.Result) (string, error) {
	ledger, err := db.NewDB(path)
	if err != nil {
		return "", err
	}
	defer ledger.Close()

	run, pairs := ledgerEntry(opts, res)
	if err := ledger.RecordRun(ctx, run, pairs); err != nil {
		return "", err
	}
	return run.ID, nil
}

// ledgerEntry converts a run result into ledger rows.
func ledgerEntry(opts associate.Options, res *associate.Result) (*db.Run, []db.Pair) {
	gaps := associate.Gaps(res.First, res.Second, res.Associations)
	pairs := make([]db.Pair, len(res.Associations))
	for k, a := range res.Associations {
		pairs[k] = db.Pair{
			FirstIndex:      a.First,
			SecondIndex:     a.Second,
			FirstTimestamp:  res.First[a.First].Timestamp,
			SecondTimestamp: res.Second[a.Second].Timestamp,
			Gap:             gaps[k],
		}
	}
	run := &db.Run{
		DataDir:          opts.DataDir,
		MaxDifference:    opts.MaxDifference,
		FirstCount:       len(res.First),
		SecondCount:      len(res.Second),
		AssociationCount: len(res.Associations),
		MeanGap:          res.Gaps.Mean,
		MaxGap:           res.Gaps.Max,
	}
	return run, pairs
}
