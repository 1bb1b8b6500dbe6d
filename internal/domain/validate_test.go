package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normalizedWavegram(t *testing.T) Dataset {
	t.Helper()
	freezeClock(t)
	ds, err := Normalize(loadRecords(t, "wavegram.json"), mustProfile(t, ProfileWavegram, ConventionLiteral), Options{})
	require.NoError(t, err)
	return ds
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, normalizedWavegram(t).Validate())
	})

	t.Run("empty dataset", func(t *testing.T) {
		assert.NoError(t, Dataset{}.Validate())
	})

	t.Run("column length mismatch", func(t *testing.T) {
		ds := normalizedWavegram(t)
		ds.Series["waveHeight"] = ds.Series["waveHeight"][:3]
		err := ds.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rows")
	})

	t.Run("out of order", func(t *testing.T) {
		ds := normalizedWavegram(t)
		for name, s := range ds.Series {
			s[1].X, s[2].X = s[2].X, s[1].X
			ds.Series[name] = s
		}
		for name, s := range ds.Directions {
			s[1].X, s[2].X = s[2].X, s[1].X
			ds.Directions[name] = s
		}
		assert.ErrorIs(t, ds.Validate(), ErrOutOfOrder)
	})

	t.Run("past horizon", func(t *testing.T) {
		ds := normalizedWavegram(t)
		ds.Horizon = 1000
		err := ds.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "past horizon")
	})

	t.Run("smoothing bound", func(t *testing.T) {
		ds := normalizedWavegram(t)
		p := ds.Series["waveHeight"]
		orig := p[0].Y
		p[0].Value = &orig
		p[0].Y = orig + 0.75
		err := ds.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too far")
	})

	t.Run("nan smoothed value", func(t *testing.T) {
		ds := normalizedWavegram(t)
		p := ds.Series["waveHeight"]
		nine := 9.0
		p[0].Value = &nine
		p[0].Y = math.NaN()
		err := ds.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too far")
	})
}
