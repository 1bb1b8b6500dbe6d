package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorSpeed(t *testing.T) {
	assert.InDelta(t, 18.0, VectorSpeed(3, 4, KmhPerMps), 1e-9)
	assert.InDelta(t, 5.0, VectorSpeed(-3, -4, 1), 1e-9)
	assert.Equal(t, 0.0, VectorSpeed(0, 0, KmhPerMps))
}

func TestConversions(t *testing.T) {
	uv := []float64{3, 4}

	assert.InDelta(t, 18.0, Speed(KmhPerMps)(uv), 1e-9)
	assert.InDelta(t, 23.4, Gust(KmhPerMps, GustFactor)(uv), 1e-9)
	assert.Equal(t, 7.0, Truncate([]float64{7.9}))
	assert.Equal(t, -3.0, Truncate([]float64{-3.7}))
	assert.Equal(t, 2.5, Identity([]float64{2.5}))
	assert.InDelta(t, 2.0, Scale(0.5)([]float64{4}), 1e-12)
	assert.InDelta(t, 144.0, ReciprocalDirection([]float64{36}), 1e-12)
	assert.InDelta(t, 20.0, ReciprocalDirection([]float64{200}), 1e-12)
}

func TestVectorDirection(t *testing.T) {
	t.Run("meteorological", func(t *testing.T) {
		tests := []struct {
			name string
			u, v float64
			want float64
		}{
			{"from north", 0, -5, 0},
			{"from east", -5, 0, 90},
			{"from south", 0, 5, 180},
			{"from west", 5, 0, 270},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				got := VectorDirection(tt.u, tt.v, ConventionMeteorological)
				assert.InDelta(t, tt.want, got, 1e-9)
			})
		}
		assert.True(t, math.IsNaN(VectorDirection(0, 0, ConventionMeteorological)))
	})

	t.Run("literal", func(t *testing.T) {
		got := VectorDirection(1, 1, ConventionLiteral)
		assert.InDelta(t, 90-math.Pi/4, got, 1e-12)
		assert.InDelta(t, 90.0, VectorDirection(0, 5, ConventionLiteral), 1e-12)
	})
}

func TestParseDirectionConvention(t *testing.T) {
	c, err := ParseDirectionConvention("")
	require.NoError(t, err)
	assert.Equal(t, ConventionLiteral, c)

	c, err = ParseDirectionConvention("meteorological")
	require.NoError(t, err)
	assert.Equal(t, ConventionMeteorological, c)

	_, err = ParseDirectionConvention("nautical")
	assert.Error(t, err)
}
