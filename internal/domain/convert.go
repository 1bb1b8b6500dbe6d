package domain

import (
	"fmt"
	"math"
)

const (
	// KmhPerMps converts metres per second to kilometres per hour.
	KmhPerMps = 3.6

	// GustFactor derives the plotted maximum wind speed from the mean speed.
	GustFactor = 1.3
)

// DirectionConvention selects how a wind direction is derived from its u/v
// components.
type DirectionConvention string

const (
	// ConventionLiteral reproduces |atan(u/v) - 90| as the chart pages compute it.
	ConventionLiteral DirectionConvention = "literal"
	// ConventionMeteorological is the bearing the wind blows from, atan2(-u, -v).
	ConventionMeteorological DirectionConvention = "meteorological"
)

// ParseDirectionConvention validates a convention name.
func ParseDirectionConvention(s string) (DirectionConvention, error) {
	switch c := DirectionConvention(s); c {
	case ConventionLiteral, ConventionMeteorological:
		return c, nil
	case "":
		return ConventionLiteral, nil
	default:
		return "", fmt.Errorf("unknown direction convention %q", s)
	}
}

// VectorSpeed returns the magnitude of (u, v) multiplied by scale.
func VectorSpeed(u, v, scale float64) float64 {
	return math.Sqrt(u*u+v*v) * scale
}

// VectorDirection derives a direction in degrees from wind components.
//
// The literal convention subtracts 90 from an angle in radians, so its output
// stays within a few degrees of 90. It is kept because existing charts were
// drawn with it.
func VectorDirection(u, v float64, conv DirectionConvention) float64 {
	if conv == ConventionMeteorological {
		if u == 0 && v == 0 {
			return math.NaN()
		}
		return NormalizeDegrees(math.Atan2(-u, -v) * 180 / math.Pi)
	}
	return math.Abs(math.Atan(u/v) - 90)
}

// Reciprocal flips a peak wave direction the way the wavegram does: |deg - 180|.
func Reciprocal(deg float64) float64 {
	return math.Abs(deg - 180)
}

// Conversion turns the extracted inputs of a metric into its plotted value.
type Conversion func(in []float64) float64

// Identity passes the single input through.
func Identity(in []float64) float64 { return in[0] }

// Truncate drops the fractional part, matching integer-only sources.
func Truncate(in []float64) float64 { return math.Trunc(in[0]) }

// Scale multiplies the single input by factor.
func Scale(factor float64) Conversion {
	return func(in []float64) float64 { return in[0] * factor }
}

// Speed converts (u, v) inputs to a scaled magnitude.
func Speed(scale float64) Conversion {
	return func(in []float64) float64 { return VectorSpeed(in[0], in[1], scale) }
}

// Gust converts (u, v) inputs to a scaled magnitude multiplied by factor.
func Gust(scale, factor float64) Conversion {
	return func(in []float64) float64 { return VectorSpeed(in[0], in[1], scale) * factor }
}

// Direction converts (u, v) inputs to degrees using conv.
func Direction(conv DirectionConvention) Conversion {
	return func(in []float64) float64 { return VectorDirection(in[0], in[1], conv) }
}

// ReciprocalDirection applies Reciprocal to the single input.
func ReciprocalDirection(in []float64) float64 { return Reciprocal(in[0]) }
