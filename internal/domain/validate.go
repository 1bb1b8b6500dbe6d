package domain

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// smoothingTolerance absorbs float rounding in the 0.5 smoothing bound.
const smoothingTolerance = 1e-9

// Validate checks the invariants every dataset built by Normalize holds: all
// columns share one x grid, x strictly increases, no window ends past the
// horizon and smoothed points stay within 0.5 of their original value. All
// violations are returned joined.
func (d Dataset) Validate() error {
	var errs []error
	grid := d.grid()

	check := func(metric string, xs []Timestamp) {
		if len(xs) != len(grid) {
			errs = append(errs, fmt.Errorf("%s: %d rows, want %d", metric, len(xs), len(grid)))
			return
		}
		for i, x := range xs {
			if x != grid[i] {
				errs = append(errs, fmt.Errorf("%s[%d]: x=%d, want %d", metric, i, x, grid[i]))
				return
			}
		}
	}

	for name, points := range d.Series {
		xs := make([]Timestamp, len(points))
		for i, p := range points {
			xs[i] = p.X
			if d.Horizon > 0 && p.To > d.PointStart+Timestamp(d.Horizon) {
				errs = append(errs, fmt.Errorf("%s[%d]: window ends at %d, past horizon", name, i, p.To))
			}
			// A NaN y around a finite original fails the bound too.
			if p.Value != nil && isFinite(*p.Value) && !(math.Abs(p.Y-*p.Value) <= maxSmoothingShift+smoothingTolerance) {
				errs = append(errs, fmt.Errorf("%s[%d]: smoothed %g too far from %g", name, i, p.Y, *p.Value))
			}
		}
		check(name, xs)
	}
	for name, samples := range d.Directions {
		xs := make([]Timestamp, len(samples))
		for i, s := range samples {
			xs[i] = s.X
		}
		check(name, xs)
	}
	for name, labels := range d.Labels {
		xs := make([]Timestamp, len(labels))
		for i, l := range labels {
			xs[i] = l.X
		}
		check(name, xs)
	}

	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			errs = append(errs, fmt.Errorf("row %d: x=%d does not follow %d: %w", i, grid[i], grid[i-1], ErrOutOfOrder))
		}
	}
	return errors.Join(errs...)
}

// grid returns the x values of the first column in a stable metric order.
func (d Dataset) grid() []Timestamp {
	for _, name := range sortedKeys(d.Series) {
		points := d.Series[name]
		xs := make([]Timestamp, len(points))
		for i, p := range points {
			xs[i] = p.X
		}
		return xs
	}
	for _, name := range sortedKeys(d.Directions) {
		samples := d.Directions[name]
		xs := make([]Timestamp, len(samples))
		for i, s := range samples {
			xs[i] = s.X
		}
		return xs
	}
	for _, name := range sortedKeys(d.Labels) {
		labels := d.Labels[name]
		xs := make([]Timestamp, len(labels))
		for i, l := range labels {
			xs[i] = l.X
		}
		return xs
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
