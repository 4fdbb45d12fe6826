// Package stats holds the smoothing used by the review latency report.
package stats

import (
	"math"
	"sort"
	"time"
)

// DefaultAlpha is the smoothing factor, in days.
const DefaultAlpha = 3.0

// edge points without enough neighbours on one side are left unsmoothed.
const (
	leadingEdge  = 3
	trailingEdge = 2
)

// Sample is a single time-stamped measurement.
type Sample struct {
	Time  time.Time
	Value float64
	Label string
}

// Point is a sample together with its smoothed statistics. Upper and Lower
// are one weighted standard deviation above and below Mean, computed
// separately from the samples above and at-or-below the mean.
type Point struct {
	Sample
	Smoothed bool
	Mean     float64
	Upper    float64
	Lower    float64
}

// Smooth computes a centred exponentially weighted mean and variance for
// every sample except the edge-most ones. Each neighbour is weighted by
// exp(-|Δt in days| / alpha). Samples are returned in time order.
func Smooth(samples []Sample, alpha float64) []Point {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}
	sorted := append([]Sample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	points := make([]Point, len(sorted))
	weights := make([]float64, len(sorted))
	for i, s := range sorted {
		points[i].Sample = s
		if i < leadingEdge || i > len(sorted)-1-trailingEdge {
			continue
		}

		var total, weighted float64
		for j, other := range sorted {
			days := math.Abs(s.Time.Sub(other.Time).Hours()) / 24
			weights[j] = math.Exp(-days / alpha)
			total += weights[j]
			weighted += weights[j] * other.Value
		}
		mean := weighted / total

		var upperVar, lowerVar float64
		for j, other := range sorted {
			d := other.Value - mean
			if other.Value > mean {
				upperVar += weights[j] * d * d
			} else {
				lowerVar += weights[j] * d * d
			}
		}

		points[i].Smoothed = true
		points[i].Mean = mean
		points[i].Upper = mean + math.Sqrt(upperVar/total)
		points[i].Lower = mean - math.Sqrt(lowerVar/total)
	}
	return points
}
