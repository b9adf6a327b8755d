// Package associate pairs two timestamped record lists by nearest timestamp.
//
// For every record of the first list the whole second list is scanned and
// the closest entry is kept; ties go to the lowest second-list index. The
// pair is accepted only when the gap is strictly below the tolerance. The
// matching is greedy and one-directional: several first-list records may
// select the same second-list record.
package associate

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/voeval/internal/timestamps"
)

// DefaultMaxDifference is the acceptance tolerance in seconds.
const DefaultMaxDifference = 0.02

// Association pairs index First of the first list with index Second of the
// second list.
type Association struct {
	First  int
	Second int
}

// nearest scans second in order and returns the index with the smallest
// absolute gap to t. The strict comparison keeps the lowest index on ties.
// It returns -1 and +Inf when no gap compares below +Inf.
func nearest(t float64, second timestamps.RecordList) (int, float64) {
	best := -1
	minDiff := math.Inf(1)
	for j, rec := range second {
		diff := math.Abs(t - rec.Timestamp)
		if diff < minDiff {
			minDiff = diff
			best = j
		}
	}
	return best, minDiff
}

// Associate is the reference O(|first|·|second|) matcher. Inputs are not
// modified and a record without an acceptable match is simply omitted.
func Associate(first, second timestamps.RecordList, maxDifference float64) []Association {
	var out []Association
	for i, rec := range first {
		j, diff := nearest(rec.Timestamp, second)
		if diff < maxDifference {
			out = append(out, Association{First: i, Second: j})
		}
	}
	return out
}

// AssociateSorted returns exactly what Associate returns. When second is
// non-decreasing and every timestamp in it is finite, each lookup is a
// binary search; otherwise it falls back to the full scan.
func AssociateSorted(first, second timestamps.RecordList, maxDifference float64) []Association {
	ts := second.Timestamps()
	if !sortedFinite(ts) {
		return Associate(first, second, maxDifference)
	}

	var out []Association
	for i, rec := range first {
		j, diff := nearestSorted(rec.Timestamp, ts)
		if diff < maxDifference {
			out = append(out, Association{First: i, Second: j})
		}
	}
	return out
}

func sortedFinite(ts []float64) bool {
	for i, v := range ts {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
		if i > 0 && v < ts[i-1] {
			return false
		}
	}
	return true
}

// nearestSorted is nearest for a non-decreasing, finite ts.
//
// Below the insertion point k the gap never grows with j, above it the gap
// never shrinks, so the minimum sits at k-1 or k. Rounding can make several
// entries below k share that gap; the scan in nearest would keep the first
// of them, so the lowest such index is searched for. On equal gaps the side
// below k wins, again matching the scan order.
func nearestSorted(t float64, ts []float64) (int, float64) {
	if len(ts) == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return -1, math.Inf(1)
	}

	k := sort.SearchFloat64s(ts, t)
	best := -1
	minDiff := math.Inf(1)

	if k > 0 {
		if diff := math.Abs(t - ts[k-1]); diff < minDiff {
			best = sort.Search(k, func(j int) bool { return math.Abs(t-ts[j]) <= diff })
			minDiff = diff
		}
	}
	if k < len(ts) {
		if diff := math.Abs(t - ts[k]); diff < minDiff {
			best, minDiff = k, diff
		}
	}
	return best, minDiff
}

// AssociateParallel splits the first list across workers. Each index is
// resolved independently with the reference scan and results are compacted
// in first-list order, so the output equals Associate for the same inputs.
// workers <= 0 uses runtime.GOMAXPROCS(0).
func AssociateParallel(ctx context.Context, first, second timestamps.RecordList, maxDifference float64, workers int) ([]Association, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(first) {
		workers = len(first)
	}
	if workers <= 1 {
		return Associate(first, second, maxDifference), nil
	}

	matches := make([]int, len(first))
	chunk := (len(first) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(first); start += chunk {
		lo, hi := start, min(start+chunk, len(first))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%1024 == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				j, diff := nearest(first[i].Timestamp, second)
				if diff < maxDifference {
					matches[i] = j
				} else {
					matches[i] = -1
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []Association
	for i, j := range matches {
		if j >= 0 {
			out = append(out, Association{First: i, Second: j})
		}
	}
	return out, nil
}
