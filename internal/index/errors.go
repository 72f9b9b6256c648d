package index

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a crate has no shard in the index.
var ErrNotFound = errors.New("not found")

// ErrNoMatch is returned when a shard exists but no version satisfies the query.
var ErrNoMatch = errors.New("no matching version")

// NotFoundError wraps ErrNotFound with the queried crate name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("crate %s not found in index", e.Name)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// NoMatchError wraps ErrNoMatch with the crate name and the range that
// filtered out every record.
type NoMatchError struct {
	Name  string
	Range string
}

func (e *NoMatchError) Error() string {
	if e.Range != "" {
		return fmt.Sprintf("crate %s has no version matching %s", e.Name, e.Range)
	}
	return fmt.Sprintf("crate %s has no selectable version", e.Name)
}

func (e *NoMatchError) Unwrap() error {
	return ErrNoMatch
}

// InvalidNameError is returned for crate names the index cannot address.
type InvalidNameError struct {
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid crate name %q: %s", e.Name, e.Reason)
}

// InvalidRangeError is returned when a version range expression fails to parse.
type InvalidRangeError struct {
	Range string
	Err   error
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid version range %q: %v", e.Range, e.Err)
}

func (e *InvalidRangeError) Unwrap() error {
	return e.Err
}

// MalformedRecordError is returned when a shard line fails to decode.
// Line is 1-based within the shard file.
type MalformedRecordError struct {
	Line int
	Err  error
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record on line %d: %v", e.Line, e.Err)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
