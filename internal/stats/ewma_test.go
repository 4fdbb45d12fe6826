package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)

func daily(values ...float64) []Sample {
	samples := make([]Sample, len(values))
	for i, v := range values {
		samples[i] = Sample{Time: epoch.AddDate(0, 0, i), Value: v}
	}
	return samples
}

func TestSmooth_Constant(t *testing.T) {
	points := Smooth(daily(2, 2, 2, 2, 2, 2, 2, 2), DefaultAlpha)
	require.Len(t, points, 8)

	for i, p := range points {
		if i < 3 || i > 5 {
			assert.False(t, p.Smoothed, "edge point %d", i)
			continue
		}
		assert.True(t, p.Smoothed, "point %d", i)
		assert.InDelta(t, 2.0, p.Mean, 1e-9)
		assert.InDelta(t, 2.0, p.Upper, 1e-9)
		assert.InDelta(t, 2.0, p.Lower, 1e-9)
	}
}

func TestSmooth_TooFewSamples(t *testing.T) {
	for _, p := range Smooth(daily(1, 2, 3, 4, 5), DefaultAlpha) {
		assert.False(t, p.Smoothed)
	}
	assert.Empty(t, Smooth(nil, DefaultAlpha))
}

func TestSmooth_SortsAndBounds(t *testing.T) {
	samples := daily(1, 5, 1, 5, 1, 5, 1, 5, 1)
	// Shuffle the input order; output must come back sorted by time.
	samples[0], samples[8] = samples[8], samples[0]

	points := Smooth(samples, DefaultAlpha)
	for i := 1; i < len(points); i++ {
		assert.False(t, points[i].Time.Before(points[i-1].Time))
	}
	for _, p := range points {
		if !p.Smoothed {
			continue
		}
		assert.Greater(t, p.Mean, 1.0)
		assert.Less(t, p.Mean, 5.0)
		assert.Greater(t, p.Upper, p.Mean)
		assert.Less(t, p.Lower, p.Mean)
	}
}

func TestSmooth_NearbySamplesWeighMore(t *testing.T) {
	samples := daily(0, 0, 0, 10, 0, 0, 0)
	samples = append(samples, Sample{Time: epoch.AddDate(0, 0, 60), Value: 100})
	samples = append(samples, Sample{Time: epoch.AddDate(0, 0, 61), Value: 100})

	points := Smooth(samples, DefaultAlpha)
	require.True(t, points[3].Smoothed)
	// The distant 100s contribute almost nothing to the day-3 average.
	assert.Less(t, points[3].Mean, 5.0)
}

func TestSmooth_DefaultAlpha(t *testing.T) {
	samples := daily(1, 2, 3, 4, 5, 6, 7)
	assert.Equal(t, Smooth(samples, DefaultAlpha), Smooth(samples, 0))
}
