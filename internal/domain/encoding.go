package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// NaN sentinels are encoded as JSON null and decoded back to NaN.

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// samplePointJSON keeps Value raw so a smoothed point whose original is NaN
// is written as an explicit null and stays distinguishable from an
// unsmoothed point, which omits the key.
type samplePointJSON struct {
	X     Timestamp       `json:"x"`
	Y     *float64        `json:"y"`
	To    Timestamp       `json:"to"`
	Index int             `json:"index"`
	Value json.RawMessage `json:"value,omitempty"`
}

var jsonNull = json.RawMessage("null")

func (p SamplePoint) MarshalJSON() ([]byte, error) {
	out := samplePointJSON{X: p.X, Y: nullable(p.Y), To: p.To, Index: p.Index}
	if p.Value != nil {
		out.Value = jsonNull
		if v := nullable(*p.Value); v != nil {
			raw, err := json.Marshal(*v)
			if err != nil {
				return nil, err
			}
			out.Value = raw
		}
	}
	return json.Marshal(out)
}

func (p *SamplePoint) UnmarshalJSON(data []byte) error {
	var in samplePointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode sample point: %w", err)
	}
	*p = SamplePoint{X: in.X, Y: orNaN(in.Y), To: in.To, Index: in.Index}
	if len(in.Value) > 0 {
		var v *float64
		if err := json.Unmarshal(in.Value, &v); err != nil {
			return fmt.Errorf("decode sample point value: %w", err)
		}
		orig := orNaN(v)
		p.Value = &orig
	}
	return nil
}

type directionSampleJSON struct {
	X       Timestamp `json:"x"`
	Degrees *float64  `json:"deg"`
	Sector  Sector    `json:"sector"`
}

func (s DirectionSample) MarshalJSON() ([]byte, error) {
	return json.Marshal(directionSampleJSON{X: s.X, Degrees: nullable(s.Degrees), Sector: s.Sector})
}

func (s *DirectionSample) UnmarshalJSON(data []byte) error {
	var in directionSampleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode direction sample: %w", err)
	}
	*s = DirectionSample{X: in.X, Degrees: orNaN(in.Degrees), Sector: in.Sector}
	return nil
}

// SerializeDataset marshals a dataset into a sink event keyed by its ID.
func SerializeDataset(ds Dataset) (OutputEvent, error) {
	data, err := json.Marshal(ds)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize dataset: %w", err)
	}
	return OutputEvent{
		Key:   []byte(ds.ID),
		Value: data,
		Headers: map[string]string{
			"profile":  ds.Profile,
			"built_at": ds.BuiltAt.Format(time.RFC3339),
		},
	}, nil
}

// DecodeDataset parses a serialized dataset.
func DecodeDataset(data []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	return ds, nil
}
