package utils

import (
	"errors"
	"fmt"
)

// Engine error kinds. None of these are returned to the engine's caller; they
// are attached to log entries so a dropped pair or zeroed amount can be traced.
var (
	// ErrNoMapping is reported when a venue symbol has no canonical form.
	ErrNoMapping = errors.New("no canonical mapping for symbol")
	// ErrMissingFeeData is reported when no withdrawal fee entry matches.
	ErrMissingFeeData = errors.New("missing withdrawal fee data")
	// ErrInvalidInvestment is reported when the investment is not positive.
	ErrInvalidInvestment = errors.New("investment must be positive")
)

// ValidationError represents an error occurring during data validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// SourceUnavailableError means a venue could not be read for this cycle:
// transport failure, timeout, non-2xx status, malformed payload or an open
// circuit breaker.
type SourceUnavailableError struct {
	Venue string
	Op    string
	Err   error
}

// NewSourceUnavailableError wraps err for the given venue and operation.
func NewSourceUnavailableError(venue, op string, err error) error {
	return &SourceUnavailableError{Venue: venue, Op: op, Err: err}
}

func (e *SourceUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: source unavailable", e.Venue, e.Op)
	}
	return fmt.Sprintf("%s %s: source unavailable: %v", e.Venue, e.Op, e.Err)
}

func (e *SourceUnavailableError) Unwrap() error {
	return e.Err
}

// IsSourceUnavailable reports whether err is or wraps a SourceUnavailableError.
func IsSourceUnavailable(err error) bool {
	var se *SourceUnavailableError
	return errors.As(err, &se)
}
