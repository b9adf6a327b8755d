package trajerr

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds the usual trajectory error statistics. Std is the
// population standard deviation.
type Summary struct {
	Count  int     `json:"count"`
	RMSE   float64 `json:"rmse"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	SSE    float64 `json:"sse"`
}

// Summarize computes a Summary of values.
func Summarize(values []float64) Summary {
	s := Summary{Count: len(values)}
	if len(values) == 0 {
		return s
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s.Mean, s.Std = stat.PopMeanStdDev(sorted, nil)
	s.SSE = floats.Dot(sorted, sorted)
	s.RMSE = math.Sqrt(s.SSE / float64(len(sorted)))
	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	if n := len(sorted); n%2 == 1 {
		s.Median = sorted[n/2]
	} else {
		s.Median = (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return s
}

// DisplayStats returns the recomputed summary with any value present in
// stats.json taking precedence.
func (r *Result) DisplayStats() Summary {
	s := Summarize(r.Errors)
	for key, dst := range map[string]*float64{
		"rmse":   &s.RMSE,
		"mean":   &s.Mean,
		"median": &s.Median,
		"std":    &s.Std,
		"min":    &s.Min,
		"max":    &s.Max,
		"sse":    &s.SSE,
	} {
		if v, ok := r.Stats[key]; ok {
			*dst = v
		}
	}
	return s
}
