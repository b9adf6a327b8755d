// Package trajerr analyses absolute and relative trajectory error results
// (ATE/RPE) exported as .npy arrays plus JSON statistics.
package trajerr

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/voeval/internal/fsutil"
)

// Kind selects the error metric a result directory holds.
type Kind string

const (
	ATE Kind = "ate"
	RPE Kind = "rpe"
)

const (
	FileError     = "error_array.npy"
	FileDistance  = "distances_from_start.npy"
	FileSeconds   = "seconds_from_start.npy"
	FileStats     = "stats.json"
	FileAlignment = "alignment_transformation_sim3.npy"
	FileInfo      = "info.json"
)

var (
	// ErrLengthMismatch is returned when ATE arrays differ in length.
	ErrLengthMismatch = errors.New("array length mismatch")
	// ErrNoData is returned when the error array is empty.
	ErrNoData = errors.New("no data to analyze")
	// ErrMissingFile is returned when a required result file is absent.
	ErrMissingFile = errors.New("missing result file")
)

// ParseKind accepts "ate" or "rpe" in any case.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(s)); k {
	case ATE, RPE:
		return k, nil
	default:
		return "", fmt.Errorf("unknown error kind %q (want ate or rpe)", s)
	}
}

// Title is the long name of the metric.
func (k Kind) Title() string {
	if k == RPE {
		return "Relative Pose Error (RPE)"
	}
	return "Absolute Trajectory Error (ATE)"
}

// Column is the CSV and series name of the error values.
func (k Kind) Column() string {
	return strings.ToUpper(string(k)) + "_m"
}

// Info carries the optional RPE plot labels.
type Info struct {
	Title string `json:"title"`
	Label string `json:"label"`
}

// Result is one loaded result directory. Errors, Distances and Seconds
// always have the same length.
type Result struct {
	Kind      Kind
	Errors    []float64
	Distances []float64
	Seconds   []float64
	// Stats holds stats.json as written by the evaluator.
	Stats map[string]float64
	// Alignment is the 4x4 Sim3 alignment for ATE, nil when absent.
	Alignment *mat.Dense
	Info      Info
}

// Load reads the result files of kind from dir.
func Load(fsys fsutil.FileSystem, dir string, kind Kind) (*Result, error) {
	r := &Result{Kind: kind}
	var err error

	if r.Errors, err = readArray(fsys, dir, FileError); err != nil {
		return nil, err
	}
	if r.Distances, err = readArray(fsys, dir, FileDistance); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, dir, FileStats, &r.Stats); err != nil {
		return nil, err
	}

	switch kind {
	case ATE:
		return loadATE(fsys, dir, r)
	case RPE:
		return loadRPE(fsys, dir, r)
	default:
		return nil, fmt.Errorf("unknown error kind %q", kind)
	}
}

func loadATE(fsys fsutil.FileSystem, dir string, r *Result) (*Result, error) {
	seconds, err := readArray(fsys, dir, FileSeconds)
	switch {
	case errors.Is(err, ErrMissingFile):
		seconds = linspace(0, 1, len(r.Errors))
	case err != nil:
		return nil, err
	}
	r.Seconds = seconds

	alignPath := filepath.Join(dir, FileAlignment)
	if fsys.Exists(alignPath) {
		f, err := fsys.Open(alignPath)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var m mat.Dense
		if err := npyio.Read(f, &m); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", FileAlignment, err)
		}
		if rows, cols := m.Dims(); rows != 4 || cols != 4 {
			return nil, fmt.Errorf("%s: expected 4x4 matrix, got %dx%d", FileAlignment, rows, cols)
		}
		r.Alignment = &m
	}

	if len(r.Errors) != len(r.Distances) || len(r.Errors) != len(r.Seconds) {
		return nil, fmt.Errorf("%w: error=%d distances=%d seconds=%d",
			ErrLengthMismatch, len(r.Errors), len(r.Distances), len(r.Seconds))
	}
	if len(r.Errors) == 0 {
		return nil, ErrNoData
	}
	return r, nil
}

func loadRPE(fsys fsutil.FileSystem, dir string, r *Result) (*Result, error) {
	var err error
	if r.Seconds, err = readArray(fsys, dir, FileSeconds); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, dir, FileInfo, &r.Info); err != nil {
		return nil, err
	}

	n := min(len(r.Errors), len(r.Distances), len(r.Seconds))
	r.Errors = r.Errors[:n]
	r.Distances = r.Distances[:n]
	r.Seconds = r.Seconds[:n]
	if n == 0 {
		return nil, ErrNoData
	}
	return r, nil
}

func readArray(fsys fsutil.FileSystem, dir, name string) ([]float64, error) {
	f, err := fsys.Open(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
		return nil, err
	}
	defer f.Close()

	var data []float64
	if err := npyio.Read(f, &data); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

func readJSON(fsys fsutil.FileSystem, dir, name string, v interface{}) error {
	data, err := fsys.ReadFile(filepath.Join(dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrMissingFile, name)
		}
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

// linspace returns n evenly spaced values over [start, stop].
func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	switch n {
	case 0:
	case 1:
		out[0] = start
	default:
		floats.Span(out, start, stop)
	}
	return out
}
