package reader

import (
	"errors"
	"fmt"
)

// Sentinel errors for document reading.
var (
	ErrMissingCredentials   = errors.New("no credentials found in environment")
	ErrInvalidCredentials   = errors.New("invalid or expired credentials")
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidPDF           = errors.New("invalid PDF document")
	ErrDocumentTooLarge     = errors.New("document exceeds size limit")
	ErrProcessorNotFound    = errors.New("document processor not found")
	ErrQuotaExceeded        = errors.New("API quota exceeded")
	ErrReadFailed           = errors.New("document read failed")
	ErrEmptyResponse        = errors.New("reader returned no document")
)

// ReadError carries the operation and detail context of a failed read.
type ReadError struct {
	Op      string
	Err     error
	Details string
}

func (e *ReadError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Details)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

func (e *ReadError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// WrapReadError wraps err with operation and detail context.
func WrapReadError(op string, err error, details string) error {
	return &ReadError{Op: op, Err: err, Details: details}
}
