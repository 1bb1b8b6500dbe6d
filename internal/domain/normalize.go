package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrorMode decides what happens to a record with a malformed metric field.
type ErrorMode string

const (
	// ModeStrict aborts normalization on the first malformed field.
	ModeStrict ErrorMode = "strict"
	// ModeSkip drops the whole record from every series.
	ModeSkip ErrorMode = "skip"
	// ModeSentinel keeps the record and stores NaN (or an empty label) for
	// the malformed sample.
	ModeSentinel ErrorMode = "sentinel"
)

// ParseErrorMode validates an error mode name. Empty means strict.
func ParseErrorMode(s string) (ErrorMode, error) {
	switch m := ErrorMode(s); m {
	case ModeStrict, ModeSkip, ModeSentinel:
		return m, nil
	case "":
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown error mode %q", s)
	}
}

// Options tunes a Normalize call.
type Options struct {
	Mode ErrorMode
	// Horizon overrides the profile horizon when positive.
	Horizon time.Duration
}

// columns accumulates aligned rows. A row is appended to every metric at
// once, so all columns always have the same length.
type columns struct {
	slots  []Slot
	values [][]float64 // numeric and direction metrics, by metric index
	texts  [][]string  // label metrics, by metric index
}

func newColumns(metrics, capacity int) *columns {
	return &columns{
		slots:  make([]Slot, 0, capacity),
		values: make([][]float64, metrics),
		texts:  make([][]string, metrics),
	}
}

func (c *columns) append(slot Slot, values []float64, texts []string) {
	c.slots = append(c.slots, slot)
	for m := range values {
		c.values[m] = append(c.values[m], values[m])
		c.texts[m] = append(c.texts[m], texts[m])
	}
}

// Normalize runs extraction, conversion and time alignment for every metric
// of p in one pass over records, then smooths the flagged metrics. On error no
// dataset is returned.
func Normalize(records []RawRecord, p Profile, opts Options) (Dataset, error) {
	if len(records) == 0 {
		return Dataset{}, ErrNoData
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeStrict
	}
	horizon := p.Horizon
	if opts.Horizon > 0 {
		horizon = opts.Horizon
	}

	tl := NewTimeline(horizon)
	cols := newColumns(len(p.Metrics), len(records))
	var skipped SkipCounts

	values := make([]float64, len(p.Metrics))
	texts := make([]string, len(p.Metrics))
	for i, rec := range records {
		from, to, err := p.Time.Bounds(rec)
		if err != nil {
			return Dataset{}, fmt.Errorf("align: %w", atRecord(i, err))
		}
		slot, err := tl.Place(i, from, to)
		if errors.Is(err, errBeyondHorizon) {
			skipped.Horizon++
			continue
		}
		if err != nil {
			return Dataset{}, fmt.Errorf("align: %w", err)
		}

		ok, err := evalRow(rec, p.Metrics, mode, values, texts)
		if err != nil {
			return Dataset{}, fmt.Errorf("extract: %w", atRecord(i, err))
		}
		if !ok {
			skipped.Malformed++
			continue
		}
		tl.Commit(slot)
		cols.append(slot, values, texts)
	}

	if len(cols.slots) == 0 {
		return Dataset{}, fmt.Errorf("all %d records rejected: %w", len(records), ErrNoData)
	}

	id, err := datasetID(p.Name, records)
	if err != nil {
		return Dataset{}, err
	}
	ds := build(p, cols)
	ds.ID = id
	ds.PointStart = tl.PointStart()
	ds.Resolution = tl.Resolution()
	ds.Horizon = horizon.Milliseconds()
	ds.Skipped = skipped
	ds.BuiltAt = clock.Now().UTC()
	return ds, nil
}

// evalRow fills values and texts for one record. It returns false when the
// record must be skipped under ModeSkip.
func evalRow(rec RawRecord, metrics []Metric, mode ErrorMode, values []float64, texts []string) (bool, error) {
	for m, metric := range metrics {
		v, text, err := evalMetric(rec, metric)
		if err != nil {
			switch mode {
			case ModeSkip:
				return false, nil
			case ModeSentinel:
				v, text = math.NaN(), ""
			default:
				return false, err
			}
		}
		values[m], texts[m] = v, text
	}
	return true, nil
}

func evalMetric(rec RawRecord, m Metric) (float64, string, error) {
	if len(m.Inputs) == 0 {
		return math.NaN(), "", fmt.Errorf("metric %q has no input fields", m.Name)
	}
	if m.Kind == KindLabel {
		text, err := ExtractString(rec, m.Inputs[0])
		if err != nil {
			return math.NaN(), "", err
		}
		if m.Label != nil {
			text = m.Label(text)
		}
		return math.NaN(), text, nil
	}

	in := make([]float64, len(m.Inputs))
	for j, f := range m.Inputs {
		v, err := ExtractFloat(rec, f)
		if err != nil {
			return math.NaN(), "", err
		}
		in[j] = v
	}
	convert := m.Convert
	if convert == nil {
		convert = Identity
	}
	return convert(in), "", nil
}

func build(p Profile, cols *columns) Dataset {
	ds := Dataset{
		Profile:    p.Name,
		Series:     make(map[string][]SamplePoint),
		Directions: make(map[string][]DirectionSample),
		Labels:     make(map[string][]LabelSample),
		Stats:      make(map[string]SeriesStats),
	}

	for m, metric := range p.Metrics {
		switch metric.Kind {
		case KindNumeric:
			points := make([]SamplePoint, len(cols.slots))
			for i, s := range cols.slots {
				points[i] = SamplePoint{X: s.From, Y: cols.values[m][i], To: s.To, Index: s.Index}
			}
			if metric.Smooth {
				points = Smooth(points)
			}
			ds.Series[metric.Name] = points
			ds.Stats[metric.Name] = Summarize(points)
		case KindDirection:
			samples := make([]DirectionSample, len(cols.slots))
			for i, s := range cols.slots {
				deg := cols.values[m][i]
				samples[i] = DirectionSample{X: s.From, Degrees: deg, Sector: SectorOf(deg)}
			}
			ds.Directions[metric.Name] = samples
		case KindLabel:
			labels := make([]LabelSample, len(cols.slots))
			for i, s := range cols.slots {
				labels[i] = LabelSample{X: s.From, Text: cols.texts[m][i]}
			}
			ds.Labels[metric.Name] = labels
		}
	}
	return ds
}

// datasetID derives a deterministic ID from the profile and the raw records,
// so a redelivered load maps to the same dataset.
func datasetID(profile string, records []RawRecord) (string, error) {
	h := sha256.New()
	h.Write([]byte(profile))
	h.Write([]byte{'|'})
	// Map keys are marshalled in sorted order, so the encoding is stable.
	if err := json.NewEncoder(h).Encode(records); err != nil {
		return "", fmt.Errorf("dataset id: %w", err)
	}
	return profile + "-" + hex.EncodeToString(h.Sum(nil)[:8]), nil
}
