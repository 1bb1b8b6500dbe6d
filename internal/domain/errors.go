package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNoData reports a missing or empty raw record list.
	ErrNoData = errors.New("no forecast data")

	// ErrMalformedField classifies every *MalformedFieldError.
	ErrMalformedField = errors.New("malformed field")

	// ErrOutOfOrder reports a record whose window does not start after the
	// previous accepted window.
	ErrOutOfOrder = errors.New("records out of order")

	// ErrUnknownProfile reports a profile name with no registered definition.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrNotFound reports a dataset lookup with no match.
	ErrNotFound = errors.New("dataset not found")
)

// MalformedFieldError describes a field that is missing or cannot be parsed.
type MalformedFieldError struct {
	Record int // index in the raw record list, -1 when not known
	Field  string
	Value  any
	Err    error
}

func (e *MalformedFieldError) Error() string {
	if e.Record >= 0 {
		return fmt.Sprintf("record %d: field %q (%v): %v", e.Record, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("field %q (%v): %v", e.Field, e.Value, e.Err)
}

func (e *MalformedFieldError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedField) match any field failure.
func (e *MalformedFieldError) Is(target error) bool {
	return target == ErrMalformedField
}

var (
	errMissing   = errors.New("missing")
	errNotNested = errors.New("expected nested attribute node")
	errNoAttr    = errors.New("attribute not present")
	errNotNumber = errors.New("not a number")
	errNotString = errors.New("not a string")
	errAmbiguous = errors.New("ambiguous field suffix")
)

func malformed(field string, value any, err error) *MalformedFieldError {
	return &MalformedFieldError{Record: -1, Field: field, Value: value, Err: err}
}
