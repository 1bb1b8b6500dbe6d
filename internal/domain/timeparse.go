package domain

import (
	"fmt"
	"strings"
	"time"
)

// zoneOffsets covers the abbreviations that appear in provider exports.
// time.Parse does not resolve abbreviations outside the local zone, so they
// are mapped explicitly.
var zoneOffsets = map[string]int{
	"UTC": 0,
	"GMT": 0,
	"Z":   0,
	"EST": -5,
	"EDT": -4,
	"CST": -6,
	"CDT": -5,
	"MST": -7,
	"MDT": -6,
	"PST": -8,
	"PDT": -7,
}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTime parses a provider time string. It accepts RFC 3339 and
// "YYYY-MM-DD[ T]HH:MM[:SS]" with "-" or "/" date separators, optionally
// followed by a zone abbreviation. Times without a zone are UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("parse time: empty")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}

	loc := time.UTC
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		if hours, ok := zoneOffsets[strings.ToUpper(s[i+1:])]; ok {
			loc = time.FixedZone(s[i+1:], hours*3600)
			s = strings.TrimSpace(s[:i])
		}
	}
	s = strings.TrimSuffix(s, "Z")
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.Replace(s, "T", " ", 1)

	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse time: unrecognized format %q", s)
}
