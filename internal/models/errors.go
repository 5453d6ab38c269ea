package models

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across services and storage adapters. Adapters wrap
// infrastructure errors with these so callers can branch on taxonomy rather
// than driver detail.
var (
	ErrNotFound         = errors.New("not found")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrAlreadySold      = errors.New("lots already sold")
	ErrUnknownField     = errors.New("unknown field")
)

// ValidationError rejects an operation locally before any state changes:
// missing or invalid sell inputs, non-uniform sector/ticker within an
// aggregation group, malformed lot input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ConsistencyError surfaces a state conflict as a distinct outcome: an
// already-sold race, a degenerate snapshot divisor, an out-of-order business
// date. The conflict is never silently coerced to zero or NaN.
type ConsistencyError struct {
	Op     string
	Reason string
	Err    error // optional underlying sentinel (e.g. ErrAlreadySold)
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// NewConsistencyError builds a ConsistencyError for an operation.
func NewConsistencyError(op string, err error, format string, args ...interface{}) *ConsistencyError {
	return &ConsistencyError{Op: op, Reason: fmt.Sprintf(format, args...), Err: err}
}

// IsConsistency reports whether err is a ConsistencyError.
func IsConsistency(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
