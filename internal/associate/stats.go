package associate

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/voeval/internal/timestamps"
)

// GapSummary describes the time gaps of accepted associations.
type GapSummary struct {
	Count     int
	Unmatched int // first-list records without an accepted match
	Mean      float64
	Median    float64
	Max       float64
	RMSE      float64
}

// Gaps returns |t_first - t_second| for each association, in order.
func Gaps(first, second timestamps.RecordList, assoc []Association) []float64 {
	gaps := make([]float64, len(assoc))
	for k, a := range assoc {
		gaps[k] = math.Abs(first[a.First].Timestamp - second[a.Second].Timestamp)
	}
	return gaps
}

// SummarizeGaps computes summary statistics over gaps. firstLen is the size
// of the first list and is used to count unmatched records.
func SummarizeGaps(gaps []float64, firstLen int) GapSummary {
	s := GapSummary{Count: len(gaps), Unmatched: firstLen - len(gaps)}
	if len(gaps) == 0 {
		return s
	}

	sorted := append([]float64(nil), gaps...)
	sort.Float64s(sorted)

	s.Mean = stat.Mean(sorted, nil)
	s.Median = median(sorted)
	s.Max = floats.Max(sorted)
	s.RMSE = math.Sqrt(floats.Dot(sorted, sorted) / float64(len(sorted)))
	return s
}

// median of an already sorted, non-empty slice; even lengths average the
// two middle values.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
