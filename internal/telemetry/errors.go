package telemetry

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldCount is matched by errors returned for records with too few fields
	ErrFieldCount = errors.New("field count mismatch")

	// ErrFieldParse is matched by errors returned for fields that are not valid numbers
	ErrFieldParse = errors.New("field parse error")
)

const (
	ReasonFieldCount = "field_count"
	ReasonFieldParse = "field_parse"
	ReasonUnknown    = "unknown"
)

// FieldCountError is returned when a record carries fewer fields than the wire format requires
type FieldCountError struct {
	Expected int
	Actual   int
}

func (e *FieldCountError) Error() string {
	return fmt.Sprintf("%s: expected %d fields, got %d", ErrFieldCount, e.Expected, e.Actual)
}

func (e *FieldCountError) Is(target error) bool {
	return target == ErrFieldCount
}

// FieldParseError is returned when a field can not be converted to its declared type.
// Value holds the raw field text as received.
type FieldParseError struct {
	Index int
	Name  string
	Value string
	Err   error
}

func (e *FieldParseError) Error() string {
	return fmt.Sprintf("%s: field %d (%s): invalid value %q", ErrFieldParse, e.Index, e.Name, e.Value)
}

func (e *FieldParseError) Is(target error) bool {
	return target == ErrFieldParse
}

func (e *FieldParseError) Unwrap() error {
	return e.Err
}

// Reason classifies a parse error into a short label suitable for metrics
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrFieldCount):
		return ReasonFieldCount
	case errors.Is(err, ErrFieldParse):
		return ReasonFieldParse
	default:
		return ReasonUnknown
	}
}
