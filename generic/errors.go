/*
errors.go - Centralized error types for the capacity engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine computations never return these for data irregularities: bad
  numbers coerce to zero, unknown owners go to the unmapped bucket. These
  errors belong to the edges (request parsing, storage, carryover writes).

ERROR CATEGORIES:
  1. Input errors - malformed dates, inverted ranges, bad adjustments
  2. Lookup errors - missing person, role, scenario
  3. Store errors - wrapped driver failures

SEE ALSO:
  - api/handlers.go: maps these to HTTP status codes
  - budget/carryover.go: returns ErrInvalidAdjustment
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidDate is returned when a date string is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date")

	// ErrPersonNotFound is returned when a referenced person doesn't exist.
	ErrPersonNotFound = errors.New("person not found")

	// ErrRoleNotFound is returned when a referenced budget role doesn't exist.
	ErrRoleNotFound = errors.New("budget role not found")

	// ErrInvalidAdjustment is returned when a carryover batch is inconsistent
	// with its key.
	ErrInvalidAdjustment = errors.New("invalid budget adjustment")

	// ErrUnknownScenario is returned when a demo scenario id is not registered.
	ErrUnknownScenario = errors.New("unknown scenario")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DateError reports the offending value of a failed date parse.
type DateError struct {
	Field string
	Value string
	Err   error
}

func (e *DateError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid date for %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid date: %q", e.Value)
}

func (e *DateError) Unwrap() []error {
	return []error{ErrInvalidDate, e.Err}
}

// AdjustmentError explains why a carryover row was rejected.
type AdjustmentError struct {
	Index  int
	Reason string
}

func (e *AdjustmentError) Error() string {
	return fmt.Sprintf("adjustment %d: %s", e.Index, e.Reason)
}

func (e *AdjustmentError) Unwrap() error {
	return ErrInvalidAdjustment
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidAdjustment) ||
		errors.Is(err, ErrUnknownScenario)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPersonNotFound) ||
		errors.Is(err, ErrRoleNotFound)
}
