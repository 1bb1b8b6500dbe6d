package domain

import (
	"errors"
	"fmt"
	"time"
)

// Window describes how a record time maps onto its observation window.
type Window struct {
	// Offset is subtracted from the record time to get the window start.
	Offset time.Duration
	// Width is added to the window start to get the window end. Ignored when
	// the profile reads the end from its own field.
	Width time.Duration
}

// Slot is the aligned window of one accepted record.
type Slot struct {
	From  Timestamp
	To    Timestamp
	Index int // position of the record in the raw list
}

// errBeyondHorizon marks a record dropped by the horizon cutoff.
var errBeyondHorizon = errors.New("beyond forecast horizon")

// Timeline assigns records to windows and enforces the horizon cutoff. The
// first committed slot anchors PointStart and Resolution.
type Timeline struct {
	horizon    time.Duration
	anchored   bool
	last       Timestamp
	pointStart Timestamp
	resolution int64
}

// NewTimeline returns a Timeline that drops windows ending more than horizon
// after the anchor.
func NewTimeline(horizon time.Duration) *Timeline {
	return &Timeline{horizon: horizon}
}

// Place computes the slot for a window. It returns errBeyondHorizon for
// windows past the cutoff and ErrOutOfOrder when from does not advance.
func (tl *Timeline) Place(index int, from, to time.Time) (Slot, error) {
	s := Slot{From: TimestampOf(from), To: TimestampOf(to), Index: index}
	if s.To < s.From {
		return Slot{}, fmt.Errorf("record %d: window ends before it starts: %w", index, ErrOutOfOrder)
	}
	if !tl.anchored {
		return s, nil
	}
	if s.To > tl.pointStart+Timestamp(tl.horizon.Milliseconds()) {
		return Slot{}, errBeyondHorizon
	}
	if s.From <= tl.last {
		return Slot{}, fmt.Errorf("record %d starts at %d, not after %d: %w", index, s.From, tl.last, ErrOutOfOrder)
	}
	return s, nil
}

// Commit records s as accepted.
func (tl *Timeline) Commit(s Slot) {
	if !tl.anchored {
		tl.anchored = true
		tl.pointStart = (s.From + s.To) / 2
		tl.resolution = int64(s.To - s.From)
	}
	tl.last = s.From
}

// PointStart is the midpoint of the first accepted window.
func (tl *Timeline) PointStart() Timestamp { return tl.pointStart }

// Resolution is the width of the first accepted window in milliseconds.
func (tl *Timeline) Resolution() int64 { return tl.resolution }

// TimeSource reads the window of one record.
type TimeSource struct {
	Start  Field
	End    *Field // optional explicit window end
	Window Window
}

// Bounds returns the window start and end of rec.
func (ts TimeSource) Bounds(rec RawRecord) (time.Time, time.Time, error) {
	start, err := parseTimeField(rec, ts.Start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	from := start.Add(-ts.Window.Offset)
	if ts.End == nil {
		return from, from.Add(ts.Window.Width), nil
	}
	end, err := parseTimeField(rec, *ts.End)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, end.Add(-ts.Window.Offset), nil
}

func parseTimeField(rec RawRecord, f Field) (time.Time, error) {
	raw, err := ExtractString(rec, f)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseTime(raw)
	if err != nil {
		return time.Time{}, malformed(f.String(), raw, err)
	}
	return t, nil
}

// BuildSeries aligns records on ts and extracts one numeric series with
// extract. Records past the horizon are skipped. It is the single-metric form
// of Normalize.
func BuildSeries(records []RawRecord, ts TimeSource, horizon time.Duration, extract func(RawRecord) (float64, error)) ([]SamplePoint, *Timeline, error) {
	if len(records) == 0 {
		return nil, nil, ErrNoData
	}

	tl := NewTimeline(horizon)
	points := make([]SamplePoint, 0, len(records))
	for i, rec := range records {
		from, to, err := ts.Bounds(rec)
		if err != nil {
			return nil, nil, atRecord(i, err)
		}
		slot, err := tl.Place(i, from, to)
		if errors.Is(err, errBeyondHorizon) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		y, err := extract(rec)
		if err != nil {
			return nil, nil, atRecord(i, err)
		}
		tl.Commit(slot)
		points = append(points, SamplePoint{X: slot.From, Y: y, To: slot.To, Index: slot.Index})
	}
	return points, tl, nil
}

// atRecord stamps the record index onto a field error.
func atRecord(i int, err error) error {
	var mf *MalformedFieldError
	if errors.As(err, &mf) {
		mf.Record = i
	}
	return err
}
