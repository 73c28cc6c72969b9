/*
errors.go - Centralized error types for the projection engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine prefers defaulting over failing: zero-revenue margins, zero-life
  assets and short branch schedules are NOT errors. What is left here is the
  small set of conditions a caller must hear about.

ERROR CATEGORIES:
  1. Configuration errors - malformed plan shape, caught before computation
  2. Lookup errors - unknown plan, profile or document format
  3. Store errors - missing plans and runs (returned by every Store)

USAGE:
  if errors.Is(err, generic.ErrInvalidConfig) {
      // 400 Bad Request
  }

  var cfgErr *generic.InvalidConfigError
  if errors.As(err, &cfgErr) {
      fmt.Println(cfgErr.Field)
  }

SEE ALSO:
  - plan/validate.go: Produces InvalidConfigError
  - factory/plan.go: Wraps decode failures as InvalidConfigError
  - api/handlers.go: Maps errors to HTTP status codes
  - store.go: ErrPlanNotFound / ErrRunNotFound contract
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
	// ErrInvalidConfig is returned when a plan configuration is malformed:
	// missing required arrays, non-numeric values or out-of-range settings.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrUnknownProfile is returned when a growth profile name is not one of
	// the closed set of profiles.
	ErrUnknownProfile = errors.New("unknown growth profile")

	// ErrPlanNotFound is returned when a referenced plan doesn't exist.
	ErrPlanNotFound = errors.New("plan not found")

	// ErrRunNotFound is returned when a referenced projection run doesn't exist.
	ErrRunNotFound = errors.New("projection run not found")

	// ErrUnsupportedFormat is returned for plan documents in an unknown format.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidConfigError names the offending field of a malformed configuration.
type InvalidConfigError struct {
	Field  string // e.g. "assets[2].cost"
	Reason string
	Err    error // optional cause
}

func (e *InvalidConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid config: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid config: %s: %s", e.Field, e.Reason)
}

func (e *InvalidConfigError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidConfig, e.Err}
	}
	return []error{ErrInvalidConfig}
}

// InvalidConfig builds an InvalidConfigError.
func InvalidConfig(field, reason string) *InvalidConfigError {
	return &InvalidConfigError{Field: field, Reason: reason}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrUnknownProfile) ||
		errors.Is(err, ErrUnsupportedFormat)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlanNotFound) ||
		errors.Is(err, ErrRunNotFound)
}
