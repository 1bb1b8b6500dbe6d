// Package source decodes raw forecast payloads into the record lists the
// normalizer works on.
package source

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/couchcryptid/forecast-normalizer/internal/domain"
)

// Supported payload formats.
const (
	FormatYr   = "yr"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// ErrUnknownFormat is returned for a format name with no decoder.
var ErrUnknownFormat = errors.New("unknown source format")

// ErrUnreadable is returned when a payload is not valid JSON or CSV.
var ErrUnreadable = errors.New("unreadable payload")

// Decode parses payload according to format.
func Decode(format string, payload []byte) ([]domain.RawRecord, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, domain.ErrNoData
	}
	switch format {
	case FormatYr:
		return DecodeYr(payload)
	case FormatJSON:
		return DecodeJSON(payload)
	case FormatCSV:
		return DecodeCSV(bytes.NewReader(payload))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// yrDocument is the JSON rendering of a yr.no forecast XML file. A forecast
// with a single time slot renders "time" as an object instead of an array.
type yrDocument struct {
	Forecast *struct {
		Tabular *struct {
			Time json.RawMessage `json:"time"`
		} `json:"tabular"`
	} `json:"forecast"`
}

// DecodeYr extracts the forecast.tabular.time slots of a yr.no document.
func DecodeYr(payload []byte) ([]domain.RawRecord, error) {
	var doc yrDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode yr: %w: %w", ErrUnreadable, err)
	}
	if doc.Forecast == nil || doc.Forecast.Tabular == nil || len(doc.Forecast.Tabular.Time) == 0 {
		return nil, fmt.Errorf("decode yr: forecast.tabular.time missing: %w", domain.ErrNoData)
	}

	records, err := decodeRecords(doc.Forecast.Tabular.Time)
	if err != nil {
		return nil, fmt.Errorf("decode yr: %w", err)
	}
	return records, nil
}

// DecodeJSON reads a JSON array of records, or an object holding one under
// "data".
func DecodeJSON(payload []byte) ([]domain.RawRecord, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("decode json: %w: %w", ErrUnreadable, err)
		}
		if len(wrapped.Data) == 0 {
			return nil, fmt.Errorf("decode json: no data array: %w", domain.ErrNoData)
		}
		trimmed = wrapped.Data
	}

	records, err := decodeRecords(trimmed)
	if err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	return records, nil
}

// decodeRecords accepts an array of objects or a single object.
func decodeRecords(raw json.RawMessage) ([]domain.RawRecord, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var rec domain.RawRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return []domain.RawRecord{rec}, nil
	}

	var records []domain.RawRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}
	if len(records) == 0 {
		return nil, domain.ErrNoData
	}
	for i, rec := range records {
		if rec == nil {
			return nil, fmt.Errorf("%w: record %d is null", ErrUnreadable, i)
		}
	}
	return records, nil
}

// DecodeCSV reads header-indexed rows. Every value is kept as a string and
// parsed by the field extractor. Blank lines are ignored.
func DecodeCSV(r io.Reader) ([]domain.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode csv: missing header: %w", domain.ErrNoData)
	}
	if err != nil {
		return nil, fmt.Errorf("decode csv: %w: %w", ErrUnreadable, err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var records []domain.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode csv: %w: %w", ErrUnreadable, err)
		}
		rec := make(domain.RawRecord, len(header))
		for i, name := range header {
			rec[name] = strings.TrimSpace(row[i])
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("decode csv: header only: %w", domain.ErrNoData)
	}
	return records, nil
}
