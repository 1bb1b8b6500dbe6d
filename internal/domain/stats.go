package domain

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summarize computes axis statistics over the finite y values of points.
// NaN sentinels left by lenient normalization are ignored.
func Summarize(points []SamplePoint) SeriesStats {
	ys := make([]float64, 0, len(points))
	for _, p := range points {
		if !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0) {
			ys = append(ys, p.Y)
		}
	}
	if len(ys) == 0 {
		return SeriesStats{}
	}
	return SeriesStats{
		Count: len(ys),
		Min:   floats.Min(ys),
		Max:   floats.Max(ys),
		Mean:  stat.Mean(ys, nil),
	}
}
