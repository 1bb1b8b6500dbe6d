package domain

import (
	"context"
	"time"
)

// RawRecord is one provider record as decoded from JSON or CSV. Values are
// primitives, nested attribute nodes, or parenthesized numeric strings.
type RawRecord map[string]any

// RawEvent represents an unprocessed message from the source topic. The value
// holds a complete raw forecast load (one yr.no document, one JSON array or
// one CSV file).
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Timestamp is milliseconds since the Unix epoch in UTC.
type Timestamp int64

// TimestampOf converts t to a Timestamp.
func TimestampOf(t time.Time) Timestamp { return Timestamp(t.UnixMilli()) }

// Time returns the UTC time for ts.
func (ts Timestamp) Time() time.Time { return time.UnixMilli(int64(ts)).UTC() }

// SamplePoint is one plotted value. Value is set once the series has been
// smoothed and holds the original reading.
type SamplePoint struct {
	X     Timestamp `json:"x"`
	Y     float64   `json:"y"`
	To    Timestamp `json:"to"`
	Index int       `json:"index"`
	Value *float64  `json:"value,omitempty"`
}

// Original returns the reading before smoothing.
func (p SamplePoint) Original() float64 {
	if p.Value != nil {
		return *p.Value
	}
	return p.Y
}

// DirectionSample is a direction in decimal degrees with its compass sector.
type DirectionSample struct {
	X       Timestamp `json:"x"`
	Degrees float64   `json:"deg"`
	Sector  Sector    `json:"sector"`
}

// LabelSample is a text column value, e.g. a yr.no symbol name.
type LabelSample struct {
	X    Timestamp `json:"x"`
	Text string    `json:"text"`
}

// SeriesStats summarizes the finite display values of a numeric series.
type SeriesStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// SkipCounts records how many raw records did not make it into the dataset.
type SkipCounts struct {
	Horizon   int `json:"horizon"`
	Malformed int `json:"malformed"`
}

// Dataset is the normalized result of one raw forecast load. It is built once
// by Normalize and never modified afterwards.
type Dataset struct {
	ID         string                       `json:"id"`
	Profile    string                       `json:"profile"`
	PointStart Timestamp                    `json:"pointStart"`
	Resolution int64                        `json:"resolution"`
	Horizon    int64                        `json:"horizon"`
	Series     map[string][]SamplePoint     `json:"series"`
	Directions map[string][]DirectionSample `json:"directions"`
	Labels     map[string][]LabelSample     `json:"labels"`
	Stats      map[string]SeriesStats       `json:"stats"`
	Skipped    SkipCounts                   `json:"skipped"`
	BuiltAt    time.Time                    `json:"builtAt"`
}

// Len returns the number of aligned rows.
func (d Dataset) Len() int {
	for _, s := range d.Series {
		return len(s)
	}
	for _, s := range d.Directions {
		return len(s)
	}
	for _, s := range d.Labels {
		return len(s)
	}
	return 0
}

// DirectionNames returns the long sector labels of a direction series as a
// parallel string slice.
func (d Dataset) DirectionNames(metric string) []string {
	samples := d.Directions[metric]
	names := make([]string, len(samples))
	for i, s := range samples {
		names[i] = s.Sector.Name
	}
	return names
}

// OutputEvent is the serialized form destined for the sink.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// BuildRequest asks for one raw load to be normalized. Empty fields fall back
// to the service defaults.
type BuildRequest struct {
	Profile string
	Format  string
	Mode    string
	Payload []byte
}
