package fedslam

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/voeval/internal/fsutil"
)

func TestTrajectoryDrift(t *testing.T) {
	d := TrajectoryDrift(DefaultSamples, DefaultSeed)

	require.Len(t, d.T, 100)
	assert.Equal(t, 0.0, d.T[0])
	assert.Equal(t, 20.0, d.T[99])

	// the spiral starts at the origin
	assert.Equal(t, 0.0, d.GroundTruth.X[0])
	assert.Equal(t, 0.0, d.GroundTruth.Y[0])

	gx, gy := d.GroundTruth.Last()
	assert.InDelta(t, 20*math.Cos(10), gx, 1e-9)
	assert.InDelta(t, 20*math.Sin(10), gy, 1e-9)

	fx, fy := d.FedAvg.Last()
	assert.InDelta(t, gx*1.05+2, fx, 1e-9)
	assert.InDelta(t, gy*1.05-4, fy, 1e-9)

	px, py := d.PPFedSLAM.Last()
	assert.InDelta(t, gx*1.01+math.Sin(2), px, 1e-9)
	assert.InDelta(t, gy*1.01-math.Cos(2), py, 1e-9)
}

func TestTrajectoryDrift_Features(t *testing.T) {
	a := TrajectoryDrift(DefaultSamples, DefaultSeed)
	b := TrajectoryDrift(DefaultSamples, DefaultSeed)
	c := TrajectoryDrift(DefaultSamples, 7)

	require.Len(t, a.Features.X, FeatureCount)
	require.Len(t, a.Features.Y, FeatureCount)
	for i := range a.Features.X {
		assert.GreaterOrEqual(t, a.Features.X[i], -15.0)
		assert.Less(t, a.Features.X[i], 15.0)
		assert.GreaterOrEqual(t, a.Features.Y[i], -15.0)
		assert.Less(t, a.Features.Y[i], 15.0)
	}
	assert.Equal(t, a.Features, b.Features, "same seed must give the same landmarks")
	assert.NotEqual(t, a.Features, c.Features)
}

func TestTrajectoryDrift_SmallSampleCountUsesDefault(t *testing.T) {
	assert.Len(t, TrajectoryDrift(1, DefaultSeed).T, DefaultSamples)
}

func TestEndpointError_PPFedSLAMDriftsLess(t *testing.T) {
	d := TrajectoryDrift(DefaultSamples, DefaultSeed)
	assert.Less(t, EndpointError(d.PPFedSLAM, d.GroundTruth), EndpointError(d.FedAvg, d.GroundTruth))
	assert.Zero(t, EndpointError(d.GroundTruth, d.GroundTruth))
}

func TestAblationStudy(t *testing.T) {
	points := AblationStudy()
	require.Len(t, points, 6)
	assert.Equal(t, 0.001, points[0].Sigma)
	assert.Equal(t, 100.0, points[5].Sigma)
	for i, p := range points {
		assert.Less(t, p.PPFedSLAMATE, p.FedAvgATE, "sigma %g", p.Sigma)
		if i > 0 {
			assert.Less(t, p.FedAvgATE, points[i-1].FedAvgATE)
		}
	}
}

func TestWriteFigures(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()

	paths, err := WriteFigures(mfs, "/figs", TrajectoryDrift(DefaultSamples, DefaultSeed), AblationStudy())
	require.NoError(t, err)
	assert.Equal(t, []string{"/figs/" + TrajectoryDriftFile, "/figs/" + AblationStudyFile}, paths)

	for _, p := range paths {
		data, err := mfs.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), p)
	}
}
