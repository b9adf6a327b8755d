package associate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/voeval/internal/config"
	"github.com/banshee-data/voeval/internal/fsutil"
	"github.com/banshee-data/voeval/internal/monitoring"
	"github.com/banshee-data/voeval/internal/timestamps"
)

var (
	// ErrMissingDataDirectory is returned when the base data directory does not exist.
	ErrMissingDataDirectory = errors.New("data directory not found")
	// ErrEmptyRecordList is returned when a listing parsed to zero records.
	ErrEmptyRecordList = errors.New("record list is empty")
)

// Options configures one association run. Input and output names are
// resolved inside DataDir.
type Options struct {
	DataDir       string
	FirstFile     string
	SecondFile    string
	OutputFile    string
	MaxDifference float64
	Strategy      string
	Workers       int
}

// OptionsFromConfig resolves the association settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		DataDir:       cfg.GetDataDir(),
		FirstFile:     cfg.GetFirstFile(),
		SecondFile:    cfg.GetSecondFile(),
		OutputFile:    cfg.GetOutputFile(),
		MaxDifference: cfg.GetMaxDifference(),
		Strategy:      cfg.GetStrategy(),
		Workers:       cfg.GetWorkers(),
	}
}

// Result is the outcome of a successful run.
type Result struct {
	OutputPath   string
	First        timestamps.RecordList
	Second       timestamps.RecordList
	Associations []Association
	Written      int
	Gaps         GapSummary
}

// Run loads both listings from opts.DataDir, associates them and writes the
// output file next to the inputs. Nothing is written when a directory or
// listing is missing or when either listing has no records.
func Run(ctx context.Context, fsys fsutil.FileSystem, opts Options) (*Result, error) {
	if !fsys.IsDir(opts.DataDir) {
		return nil, fmt.Errorf("%w: %s", ErrMissingDataDirectory, opts.DataDir)
	}

	firstPath := filepath.Join(opts.DataDir, opts.FirstFile)
	secondPath := filepath.Join(opts.DataDir, opts.SecondFile)

	monitoring.Logf("--- Loading data from: %s ---", opts.DataDir)
	first, err := timestamps.ReadRecordFile(fsys, firstPath)
	if err != nil {
		return nil, err
	}
	second, err := timestamps.ReadRecordFile(fsys, secondPath)
	if err != nil {
		return nil, err
	}
	monitoring.Logf("Loaded %d records from %s and %d records from %s",
		len(first), opts.FirstFile, len(second), opts.SecondFile)

	if len(first) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRecordList, firstPath)
	}
	if len(second) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyRecordList, secondPath)
	}

	monitoring.Logf("Associating with max difference %.4fs (strategy %s)", opts.MaxDifference, opts.strategy())
	assoc, err := opts.associate(ctx, first, second)
	if err != nil {
		return nil, fmt.Errorf("association failed: %w", err)
	}

	outputPath := filepath.Join(opts.DataDir, opts.OutputFile)
	monitoring.Logf("Writing %d associations to %s", len(assoc), outputPath)
	n, err := WriteAssociationFile(fsys, outputPath, first, second, assoc)
	if err != nil {
		return nil, err
	}

	return &Result{
		OutputPath:   outputPath,
		First:        first,
		Second:       second,
		Associations: assoc,
		Written:      n,
		Gaps:         SummarizeGaps(Gaps(first, second, assoc), len(first)),
	}, nil
}

func (o Options) strategy() string {
	if o.Strategy == "" {
		return config.StrategyBrute
	}
	return o.Strategy
}

func (o Options) associate(ctx context.Context, first, second timestamps.RecordList) ([]Association, error) {
	switch o.strategy() {
	case config.StrategyBrute:
		return Associate(first, second, o.MaxDifference), nil
	case config.StrategyAuto:
		return AssociateSorted(first, second, o.MaxDifference), nil
	case config.StrategyParallel:
		return AssociateParallel(ctx, first, second, o.MaxDifference, o.Workers)
	default:
		return nil, fmt.Errorf("unknown strategy %q", o.Strategy)
	}
}
