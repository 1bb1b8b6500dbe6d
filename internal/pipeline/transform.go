package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
	"github.com/couchcryptid/forecast-normalizer/internal/observability"
	"github.com/couchcryptid/forecast-normalizer/internal/source"
)

// Message headers read from the source topic.
const (
	HeaderProfile = "profile"
	HeaderFormat  = "format"
	HeaderMode    = "mode"
)

// Defaults are the normalization settings used when a message or request
// does not carry its own.
type Defaults struct {
	Profile    string
	Mode       domain.ErrorMode
	Convention domain.DirectionConvention
	Horizon    time.Duration
}

// ForecastTransformer decodes raw forecast loads and normalizes them into
// datasets. It implements Transformer and serves the HTTP normalize route.
type ForecastTransformer struct {
	defaults Defaults
	cache    *DatasetCache
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewTransformer creates a ForecastTransformer. A nil cache disables caching.
func NewTransformer(defaults Defaults, cache *DatasetCache, metrics *observability.Metrics, logger *slog.Logger) *ForecastTransformer {
	return &ForecastTransformer{
		defaults: defaults,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// Transform normalizes the load carried by raw and serializes the dataset.
// The profile, format and mode headers override the defaults.
func (t *ForecastTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	ds, err := t.Build(ctx, domain.BuildRequest{
		Profile: raw.Headers[HeaderProfile],
		Format:  raw.Headers[HeaderFormat],
		Mode:    raw.Headers[HeaderMode],
		Payload: raw.Value,
	})
	if err != nil {
		return domain.OutputEvent{}, err
	}
	return domain.SerializeDataset(ds)
}

// Build decodes and normalizes one raw load.
func (t *ForecastTransformer) Build(_ context.Context, req domain.BuildRequest) (domain.Dataset, error) {
	name := req.Profile
	if name == "" {
		name = t.defaults.Profile
	}
	profile, err := domain.LookupProfile(name, t.defaults.Convention)
	if err != nil {
		return domain.Dataset{}, err
	}

	format := req.Format
	if format == "" {
		format = profile.Format
	}

	mode := t.defaults.Mode
	if req.Mode != "" {
		if mode, err = domain.ParseErrorMode(req.Mode); err != nil {
			return domain.Dataset{}, err
		}
	}

	key := cacheKey(profile.Name, format, mode, req.Payload)
	if ds, ok := t.cache.Get(key); ok {
		t.metrics.DatasetCache.WithLabelValues("hit").Inc()
		return ds, nil
	}
	if t.cache != nil {
		t.metrics.DatasetCache.WithLabelValues("miss").Inc()
	}

	start := time.Now()
	records, err := source.Decode(format, req.Payload)
	if err != nil {
		return domain.Dataset{}, err
	}
	ds, err := domain.Normalize(records, profile, domain.Options{Mode: mode, Horizon: t.defaults.Horizon})
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("normalize %s: %w", profile.Name, err)
	}
	t.metrics.NormalizeDuration.WithLabelValues(profile.Name).Observe(time.Since(start).Seconds())
	t.metrics.DatasetsBuilt.WithLabelValues(profile.Name).Inc()
	t.metrics.RecordsSkipped.WithLabelValues("horizon").Add(float64(ds.Skipped.Horizon))
	t.metrics.RecordsSkipped.WithLabelValues("malformed").Add(float64(ds.Skipped.Malformed))

	t.logger.Debug("dataset built",
		"id", ds.ID,
		"profile", ds.Profile,
		"rows", ds.Len(),
		"skipped_horizon", ds.Skipped.Horizon,
		"skipped_malformed", ds.Skipped.Malformed,
	)

	t.cache.Put(key, ds)
	return ds, nil
}

func cacheKey(profile, format string, mode domain.ErrorMode, payload []byte) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|", profile, format, mode)
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
