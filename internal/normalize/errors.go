package normalize

import (
	"errors"
	"fmt"
)

// Common normalization errors.
var (
	// ErrNotAnObject is returned when the raw document is not a parseable
	// JSON object. This is the only fatal condition in the pipeline; no
	// partial result is produced.
	ErrNotAnObject = errors.New("raw document is not a parseable object")

	// ErrEmptyDocument is returned when the raw document is nil.
	ErrEmptyDocument = errors.New("raw document is empty")
)

// ProcessingError wraps errors with additional context about where in
// the pipeline the failure happened.
type ProcessingError struct {
	// Op is the operation that failed (e.g., "Normalize", "NormalizeHeader").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *ProcessingError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("normalize: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("normalize: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ProcessingError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapProcessingError wraps an error as a ProcessingError if it isn't
// already one.
func WrapProcessingError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var procErr *ProcessingError
	if errors.As(err, &procErr) {
		return err
	}

	return &ProcessingError{Op: op, Err: err, Details: details}
}
