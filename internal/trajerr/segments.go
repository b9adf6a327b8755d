package trajerr

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/voeval/internal/monitoring"
)

// DefaultSegmentSize is the distance bin width in metres.
const DefaultSegmentSize = 0.05

// Segment groups the errors whose distance from start falls in
// (Start, End]. The first segment also includes Start.
type Segment struct {
	Start  float64
	End    float64
	Values []float64
}

// Label names the segment by its start point.
func (s Segment) Label() string {
	return fmt.Sprintf("%.2fm", s.Start)
}

// SegmentEdges returns bin edges 0, size, 2*size, ... covering maxDist,
// with maxDist appended when the last step falls short of it. A maxDist
// of zero or less is replaced by 1.0.
func SegmentEdges(maxDist, size float64) []float64 {
	if maxDist <= 0 {
		monitoring.Logf("Warning: maximum distance is %.3f; using 1.0 for segmentation", maxDist)
		maxDist = 1.0
	}

	n := int(math.Ceil((maxDist + size) / size))
	edges := make([]float64, 0, n+1)
	for k := 0; k < n; k++ {
		edges = append(edges, float64(k)*size)
	}
	if len(edges) == 0 || edges[len(edges)-1] < maxDist {
		edges = append(edges, maxDist)
	}
	if len(edges) < 2 {
		edges = []float64{0, maxDist}
	}
	return edges
}

// Segments bins values by the matching distances into segments of size
// metres. Empty segments and values outside the edges are dropped.
func Segments(distances, values []float64, size float64) []Segment {
	if len(distances) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultSegmentSize
	}

	edges := SegmentEdges(floats.Max(distances), size)
	bins := make([][]float64, len(edges)-1)
	for i, d := range distances {
		if i >= len(values) {
			break
		}
		if k := segmentIndex(edges, d); k >= 0 {
			bins[k] = append(bins[k], values[i])
		}
	}

	var segments []Segment
	for k, vals := range bins {
		if len(vals) == 0 {
			continue
		}
		segments = append(segments, Segment{Start: edges[k], End: edges[k+1], Values: vals})
	}
	return segments
}

// segmentIndex returns the bin holding d, or -1.
func segmentIndex(edges []float64, d float64) int {
	if math.IsNaN(d) || d < edges[0] {
		return -1
	}
	if d == edges[0] {
		return 0
	}
	k := sort.SearchFloat64s(edges, d)
	if k >= len(edges) {
		return -1
	}
	return k - 1
}
