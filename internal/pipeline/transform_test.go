package pipeline_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/couchcryptid/forecast-normalizer/internal/observability"
	"github.com/couchcryptid/forecast-normalizer/internal/pipeline"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefaults() pipeline.Defaults {
	return pipeline.Defaults{
		Profile:    domain.ProfileWavegramCSV,
		Mode:       domain.ModeStrict,
		Convention: domain.ConventionLiteral,
	}
}

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("../source/testdata/" + name)
	require.NoError(t, err)
	return data
}

func TestForecastTransformer_Transform(t *testing.T) {
	builtAt := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(builtAt))
	t.Cleanup(func() { domain.SetClock(nil) })

	tfm := pipeline.NewTransformer(testDefaults(), nil, observability.NewMetricsForTesting(), discardLogger())

	tests := []struct {
		name    string
		headers map[string]string
		fixture string
		profile string
		rows    int
	}{
		{"default profile", nil, "wavegram.csv", domain.ProfileWavegramCSV, 56},
		{"profile header", map[string]string{"profile": "wavegram"}, "wavegram.json", domain.ProfileWavegram, 16},
		{"yr document", map[string]string{"profile": "meteogram"}, "yr.json", domain.ProfileMeteogram, 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := tfm.Transform(context.Background(), domain.RawEvent{Value: readFixture(t, tt.fixture), Headers: tt.headers})
			require.NoError(t, err)

			assert.Equal(t, tt.profile, out.Headers["profile"])
			assert.Equal(t, "2026-10-16T09:30:00Z", out.Headers["built_at"])

			ds, err := domain.DecodeDataset(out.Value)
			require.NoError(t, err)
			assert.Equal(t, tt.rows, ds.Len())
			assert.Equal(t, []byte(ds.ID), out.Key)
		})
	}
}

func TestForecastTransformer_FormatHeaderOverridesProfile(t *testing.T) {
	tfm := pipeline.NewTransformer(testDefaults(), nil, observability.NewMetricsForTesting(), discardLogger())

	// wavegram-csv rows delivered as a JSON array
	payload := []byte(`[{"Time":"2015-01-06 03:00:00","sig_wav_ht_surface":1.2,"max_wav_ht_surface":2.1,"peak_wav_dir_surface":200,"wnd_ucmp_height_above_ground":3,"wnd_vcmp_height_above_ground":4,"peak_wav_per_surface":7.5}]`)
	ds, err := tfm.Build(context.Background(), domain.BuildRequest{Format: "json", Payload: payload})
	require.NoError(t, err)
	assert.InDelta(t, 18.0, ds.Series["windSpeed"][0].Y, 1e-9)
}

func TestForecastTransformer_Errors(t *testing.T) {
	tfm := pipeline.NewTransformer(testDefaults(), nil, observability.NewMetricsForTesting(), discardLogger())
	ctx := context.Background()

	t.Run("unknown profile", func(t *testing.T) {
		_, err := tfm.Build(ctx, domain.BuildRequest{Profile: "radar", Payload: []byte("x")})
		assert.ErrorIs(t, err, domain.ErrUnknownProfile)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := tfm.Build(ctx, domain.BuildRequest{Mode: "ignore", Payload: []byte("x")})
		assert.Error(t, err)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, err := tfm.Build(ctx, domain.BuildRequest{})
		assert.ErrorIs(t, err, domain.ErrNoData)
	})

	t.Run("malformed field", func(t *testing.T) {
		payload := []byte("Time,sig_wav_ht_surface\n2015-01-06 03:00:00,tall\n")
		_, err := tfm.Build(ctx, domain.BuildRequest{Payload: payload})
		assert.ErrorIs(t, err, domain.ErrMalformedField)
	})

	t.Run("out of order", func(t *testing.T) {
		payload := []byte(`[{"Time":"2015-01-06 06:00:00"},{"Time":"2015-01-06 00:00:00"}]`)
		_, err := tfm.Build(ctx, domain.BuildRequest{Profile: "wavegram", Mode: "sentinel", Payload: payload})
		assert.ErrorIs(t, err, domain.ErrOutOfOrder)
	})
}

func TestForecastTransformer_ModeHeader(t *testing.T) {
	tfm := pipeline.NewTransformer(testDefaults(), nil, observability.NewMetricsForTesting(), discardLogger())
	payload := []byte(`[{"Time":"2015-01-06 00:00:00","Wind_speed_surface":"calm"},{"Time":"2015-01-06 06:00:00","Wind_speed_surface":4.2}]`)

	out, err := tfm.Transform(context.Background(), domain.RawEvent{
		Value:   payload,
		Headers: map[string]string{"profile": "wavegram", "mode": "sentinel"},
	})
	require.NoError(t, err)

	ds, err := domain.DecodeDataset(out.Value)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, 4.2, ds.Series["windSpeed"][1].Y)
}

func TestForecastTransformer_Cache(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	cache := pipeline.NewDatasetCache(4)
	tfm := pipeline.NewTransformer(testDefaults(), cache, metrics, discardLogger())
	req := domain.BuildRequest{Profile: "wavegram", Payload: readFixture(t, "wavegram.json")}

	first, err := tfm.Build(context.Background(), req)
	require.NoError(t, err)
	second, err := tfm.Build(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, cache.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DatasetCache.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DatasetCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DatasetsBuilt.WithLabelValues("wavegram")))

	req.Mode = "skip"
	_, err = tfm.Build(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len(), "mode is part of the cache key")
}
