package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Strategy selects how a field value is pulled out of a RawRecord.
type Strategy int

const (
	// PlainNumeric reads a JSON number or a numeric string.
	PlainNumeric Strategy = iota
	// PlainString reads a string; numbers are formatted.
	PlainString
	// NestedAttribute reads one key of an {"@attributes": {...}} node.
	NestedAttribute
	// ParenthesizedString strips the first and last character of a string
	// such as "(54.15)" and parses the rest as a float.
	ParenthesizedString
)

var strategyNames = map[Strategy]string{
	PlainNumeric:        "plain_numeric",
	PlainString:         "plain_string",
	NestedAttribute:     "nested_attribute",
	ParenthesizedString: "parenthesized_string",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return fmt.Sprintf("strategy(%d)", int(s))
}

// DefaultAttribute is the nested attribute read when a Field names none.
const DefaultAttribute = "value"

// Field names a value inside a RawRecord and how to read it.
type Field struct {
	Name      string
	Strategy  Strategy
	Attribute string // NestedAttribute only
}

func (f Field) String() string {
	if f.Strategy == NestedAttribute {
		return f.Name + "." + f.attribute()
	}
	return f.Name
}

func (f Field) attribute() string {
	if f.Attribute == "" {
		return DefaultAttribute
	}
	return f.Attribute
}

// lookup finds a field by exact name, falling back to the single key that
// ends in "/"+name. CSV exports prefix every column with the grid cell.
func lookup(rec RawRecord, name string) (any, error) {
	if v, ok := rec[name]; ok {
		return v, nil
	}
	suffix := "/" + name
	var (
		found any
		hits  int
	)
	for k, v := range rec {
		if strings.HasSuffix(k, suffix) {
			found = v
			hits++
		}
	}
	switch hits {
	case 0:
		return nil, errMissing
	case 1:
		return found, nil
	default:
		return nil, errAmbiguous
	}
}

// resolve returns the raw value addressed by f, unwrapping nested nodes.
// A NestedAttribute field with an empty name reads the record's own
// attributes, as yr.no time slots carry their from/to there.
func resolve(rec RawRecord, f Field) (any, error) {
	var v any = map[string]any(rec)
	if f.Name != "" || f.Strategy != NestedAttribute {
		var err error
		if v, err = lookup(rec, f.Name); err != nil {
			return nil, malformed(f.String(), nil, err)
		}
	}
	if f.Strategy != NestedAttribute {
		return v, nil
	}

	node, ok := v.(map[string]any)
	if !ok {
		return nil, malformed(f.String(), v, errNotNested)
	}
	attrs, ok := node["@attributes"].(map[string]any)
	if !ok {
		attrs, ok = node["attributes"].(map[string]any)
	}
	if !ok {
		return nil, malformed(f.String(), v, errNotNested)
	}
	inner, ok := attrs[f.attribute()]
	if !ok {
		return nil, malformed(f.String(), v, errNoAttr)
	}
	return inner, nil
}

// ExtractFloat returns the numeric value of f in rec.
func ExtractFloat(rec RawRecord, f Field) (float64, error) {
	v, err := resolve(rec, f)
	if err != nil {
		return math.NaN(), err
	}

	if f.Strategy == ParenthesizedString {
		s, ok := v.(string)
		if !ok {
			return math.NaN(), malformed(f.String(), v, errNotString)
		}
		s = strings.TrimSpace(s)
		if len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
			s = s[1 : len(s)-1]
		}
		return parseNumber(f, v, s)
	}

	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return n, malformed(f.String(), v, errNotNumber)
		}
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return parseNumber(f, v, n.String())
	case string:
		return parseNumber(f, v, n)
	default:
		return math.NaN(), malformed(f.String(), v, errNotNumber)
	}
}

func parseNumber(f Field, raw any, s string) (float64, error) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(n) {
		return math.NaN(), malformed(f.String(), raw, errNotNumber)
	}
	return n, nil
}

// ExtractString returns the text value of f in rec.
func ExtractString(rec RawRecord, f Field) (string, error) {
	v, err := resolve(rec, f)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case string:
		if f.Strategy == ParenthesizedString {
			t := strings.TrimSpace(s)
			if len(t) >= 2 && t[0] == '(' && t[len(t)-1] == ')' {
				return t[1 : len(t)-1], nil
			}
		}
		return s, nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case json.Number:
		return s.String(), nil
	case nil:
		return "", malformed(f.String(), v, errNotString)
	default:
		return fmt.Sprint(s), nil
	}
}
