// Package fedslam generates the illustrative trajectory-drift and privacy
// ablation figures comparing a FedAvg baseline with PP-FedSLAM.
package fedslam

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultSamples is the number of trajectory samples over t in [0, 20].
	DefaultSamples = 100
	// FeatureCount is the number of synthetic landmarks.
	FeatureCount = 50
	// DefaultSeed seeds the landmark generator.
	DefaultSeed = 42

	featureExtent = 15.0
	spiralEnd     = 20.0
)

// Path is a planar trajectory or point set.
type Path struct {
	X []float64
	Y []float64
}

// Last returns the final point.
func (p Path) Last() (x, y float64) {
	return p.X[len(p.X)-1], p.Y[len(p.Y)-1]
}

// Drift holds the synthetic trajectories of the drift figure.
type Drift struct {
	T           []float64
	GroundTruth Path
	FedAvg      Path
	PPFedSLAM   Path
	Features    Path
}

// TrajectoryDrift builds a spiral ground truth of n samples, a FedAvg
// estimate with linear drift, a PP-FedSLAM estimate with bounded drift
// and FeatureCount uniform landmarks in [-15, 15]².
func TrajectoryDrift(n int, seed uint64) Drift {
	if n < 2 {
		n = DefaultSamples
	}

	t := make([]float64, n)
	floats.Span(t, 0, spiralEnd)

	d := Drift{
		T:           t,
		GroundTruth: newPath(n),
		FedAvg:      newPath(n),
		PPFedSLAM:   newPath(n),
		Features:    newPath(FeatureCount),
	}
	for i, ti := range t {
		gx := ti * math.Cos(ti*0.5)
		gy := ti * math.Sin(ti*0.5)
		d.GroundTruth.X[i], d.GroundTruth.Y[i] = gx, gy

		d.FedAvg.X[i] = gx*1.05 + 0.1*ti
		d.FedAvg.Y[i] = gy*1.05 - 0.2*ti

		d.PPFedSLAM.X[i] = gx*1.01 + 0.05*ti*math.Sin(ti*0.1)
		d.PPFedSLAM.Y[i] = gy*1.01 - 0.05*ti*math.Cos(ti*0.1)
	}

	u := distuv.Uniform{Min: -featureExtent, Max: featureExtent, Src: rand.NewPCG(seed, seed)}
	for i := range d.Features.X {
		d.Features.X[i] = u.Rand()
	}
	for i := range d.Features.Y {
		d.Features.Y[i] = u.Rand()
	}
	return d
}

// EndpointError is the distance between the final points of est and gt.
func EndpointError(est, gt Path) float64 {
	ex, ey := est.Last()
	gx, gy := gt.Last()
	return math.Hypot(ex-gx, ey-gy)
}

func newPath(n int) Path {
	return Path{X: make([]float64, n), Y: make([]float64, n)}
}

// AblationPoint is the ATE of both methods at one privacy noise level.
type AblationPoint struct {
	Sigma        float64
	FedAvgATE    float64
	PPFedSLAMATE float64
}

// AblationStudy returns the privacy/accuracy trade-off table.
func AblationStudy() []AblationPoint {
	return []AblationPoint{
		{Sigma: 0.001, FedAvgATE: 1.8, PPFedSLAMATE: 1.2},
		{Sigma: 0.01, FedAvgATE: 1.5, PPFedSLAMATE: 0.9},
		{Sigma: 0.1, FedAvgATE: 1.3, PPFedSLAMATE: 0.7},
		{Sigma: 1, FedAvgATE: 1.0, PPFedSLAMATE: 0.5},
		{Sigma: 10, FedAvgATE: 0.95, PPFedSLAMATE: 0.45},
		{Sigma: 100, FedAvgATE: 0.9, PPFedSLAMATE: 0.4},
	}
}
