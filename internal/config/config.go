package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Defaults mirror the layout produced by the fetch-dataset tool.
const (
	DefaultDatasetName   = "rgbd_dataset_freiburg1_xyz"
	DefaultDatasetRoot   = "tum_data"
	DefaultDatasetURL    = "https://cvg.cit.tum.de/rgbd/dataset/freiburg1/" + DefaultDatasetName + ".tgz"
	DefaultDataDir       = DefaultDatasetRoot + "/" + DefaultDatasetName
	DefaultFirstFile     = "rgb.txt"
	DefaultSecondFile    = "depth.txt"
	DefaultOutputFile    = "associations.txt"
	DefaultMaxDifference = 0.02
	DefaultStrategy      = StrategyBrute
	DefaultSegmentSize   = 0.05
	DefaultHistogramBins = 20
)

// Association strategies. All of them produce identical output.
const (
	StrategyBrute    = "brute"
	StrategyAuto     = "auto"
	StrategyParallel = "parallel"
)

// maxConfigSize guards against accidentally pointing -config at a dataset file.
const maxConfigSize = 1 * 1024 * 1024

// Config is the JSON configuration shared by the command-line tools.
// Unset fields fall back to the defaults above through the Get* accessors,
// so partial files are safe.
type Config struct {
	// Association
	DataDir       *string  `json:"data_dir,omitempty"`
	FirstFile     *string  `json:"first_file,omitempty"`
	SecondFile    *string  `json:"second_file,omitempty"`
	OutputFile    *string  `json:"output_file,omitempty"`
	MaxDifference *float64 `json:"max_difference,omitempty"`
	Strategy      *string  `json:"strategy,omitempty"`
	Workers       *int     `json:"workers,omitempty"`

	// Dataset download
	DatasetName *string `json:"dataset_name,omitempty"`
	DatasetURL  *string `json:"dataset_url,omitempty"`
	DatasetRoot *string `json:"dataset_root,omitempty"`

	// Trajectory error evaluation
	SegmentSize   *float64 `json:"segment_size,omitempty"`
	HistogramBins *int     `json:"histogram_bins,omitempty"`

	// Run ledger (empty disables it)
	LedgerDB *string `json:"ledger_db,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyConfig returns a Config with all fields unset.
func EmptyConfig() *Config {
	return &Config{}
}

// DefaultConfig returns a Config with every field populated.
func DefaultConfig() *Config {
	return &Config{
		DataDir:       ptrString(DefaultDataDir),
		FirstFile:     ptrString(DefaultFirstFile),
		SecondFile:    ptrString(DefaultSecondFile),
		OutputFile:    ptrString(DefaultOutputFile),
		MaxDifference: ptrFloat64(DefaultMaxDifference),
		Strategy:      ptrString(DefaultStrategy),
		Workers:       ptrInt(0),
		DatasetName:   ptrString(DefaultDatasetName),
		DatasetURL:    ptrString(DefaultDatasetURL),
		DatasetRoot:   ptrString(DefaultDatasetRoot),
		SegmentSize:   ptrFloat64(DefaultSegmentSize),
		HistogramBins: ptrInt(DefaultHistogramBins),
		LedgerDB:      ptrString(""),
	}
}

// LoadConfig loads a Config from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the set values are usable.
func (c *Config) Validate() error {
	if c.MaxDifference != nil {
		v := *c.MaxDifference
		if math.IsNaN(v) || v <= 0 {
			return fmt.Errorf("max_difference must be positive, got %v", v)
		}
	}

	if c.Strategy != nil {
		switch *c.Strategy {
		case StrategyBrute, StrategyAuto, StrategyParallel:
		default:
			return fmt.Errorf("strategy must be one of %q, %q, %q, got %q",
				StrategyBrute, StrategyAuto, StrategyParallel, *c.Strategy)
		}
	}

	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}

	for name, v := range map[string]*string{
		"first_file":  c.FirstFile,
		"second_file": c.SecondFile,
		"output_file": c.OutputFile,
	} {
		if v == nil {
			continue
		}
		if *v == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
		if filepath.Base(*v) != *v {
			return fmt.Errorf("%s must be a bare file name, got %q", name, *v)
		}
	}

	if c.SegmentSize != nil && !(*c.SegmentSize > 0) {
		return fmt.Errorf("segment_size must be positive, got %v", *c.SegmentSize)
	}

	if c.HistogramBins != nil && *c.HistogramBins < 1 {
		return fmt.Errorf("histogram_bins must be at least 1, got %d", *c.HistogramBins)
	}

	return nil
}

// GetDataDir returns the base data directory or the default.
func (c *Config) GetDataDir() string {
	if c.DataDir == nil || *c.DataDir == "" {
		return DefaultDataDir
	}
	return *c.DataDir
}

// GetFirstFile returns the first listing file name or the default.
func (c *Config) GetFirstFile() string {
	if c.FirstFile == nil {
		return DefaultFirstFile
	}
	return *c.FirstFile
}

// GetSecondFile returns the second listing file name or the default.
func (c *Config) GetSecondFile() string {
	if c.SecondFile == nil {
		return DefaultSecondFile
	}
	return *c.SecondFile
}

// GetOutputFile returns the associations file name or the default.
func (c *Config) GetOutputFile() string {
	if c.OutputFile == nil {
		return DefaultOutputFile
	}
	return *c.OutputFile
}

// GetMaxDifference returns the association tolerance in seconds.
func (c *Config) GetMaxDifference() float64 {
	if c.MaxDifference == nil {
		return DefaultMaxDifference
	}
	return *c.MaxDifference
}

// GetStrategy returns the association strategy or the default.
func (c *Config) GetStrategy() string {
	if c.Strategy == nil || *c.Strategy == "" {
		return DefaultStrategy
	}
	return *c.Strategy
}

// GetWorkers returns the worker count for the parallel strategy.
// Zero means one worker per CPU.
func (c *Config) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}

func (c *Config) GetDatasetName() string {
	if c.DatasetName == nil || *c.DatasetName == "" {
		return DefaultDatasetName
	}
	return *c.DatasetName
}

// GetDatasetURL returns the archive URL. When only the dataset name was
// overridden the URL is derived from it.
func (c *Config) GetDatasetURL() string {
	if c.DatasetURL != nil && *c.DatasetURL != "" {
		return *c.DatasetURL
	}
	return "https://cvg.cit.tum.de/rgbd/dataset/freiburg1/" + c.GetDatasetName() + ".tgz"
}

func (c *Config) GetDatasetRoot() string {
	if c.DatasetRoot == nil || *c.DatasetRoot == "" {
		return DefaultDatasetRoot
	}
	return *c.DatasetRoot
}

func (c *Config) GetSegmentSize() float64 {
	if c.SegmentSize == nil {
		return DefaultSegmentSize
	}
	return *c.SegmentSize
}

func (c *Config) GetHistogramBins() int {
	if c.HistogramBins == nil {
		return DefaultHistogramBins
	}
	return *c.HistogramBins
}

// GetLedgerDB returns the ledger database path; empty disables the ledger.
func (c *Config) GetLedgerDB() string {
	if c.LedgerDB == nil {
		return ""
	}
	return *c.LedgerDB
}
