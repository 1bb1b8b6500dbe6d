package domain

import "math"

// maxSmoothingShift bounds how far smoothing may move a point.
const maxSmoothingShift = 0.5

// Smooth returns a copy of points with a 3-point running mean applied.
//
// Points are visited from last to first and neighbours are read from the
// working copy, so the right neighbour contributes its already smoothed y
// while the left one is still original. Missing edge neighbours are replaced
// by the point itself, and so are NaN sentinels. A sentinel point is left
// untouched. A point that was smoothed before is clamped around its stored
// original value, not around its current y.
func Smooth(points []SamplePoint) []SamplePoint {
	out := make([]SamplePoint, len(points))
	copy(out, points)

	for i := len(out) - 1; i >= 0; i-- {
		orig := out[i].Original()
		if !isFinite(orig) {
			continue
		}

		prev, next := orig, orig
		if i > 0 && isFinite(out[i-1].Y) {
			prev = out[i-1].Y
		}
		if i < len(out)-1 && isFinite(out[i+1].Y) {
			next = out[i+1].Y
		}
		sum := prev + orig + next

		v := orig
		out[i].Value = &v
		out[i].Y = math.Max(orig-maxSmoothingShift, math.Min(sum/3, orig+maxSmoothingShift))
	}
	return out
}

func isFinite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
