package collection

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicateID indicates an insert whose ID is already present.
	ErrDuplicateID = errors.New("document ID already exists")

	// ErrNotFound indicates the requested document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrValidation indicates a document failed schema validation.
	ErrValidation = errors.New("document validation failed")

	// ErrUnknownField indicates a condition or selector referenced a
	// field the schema does not define.
	ErrUnknownField = errors.New("unknown field")

	// ErrIncomparable indicates an ordering comparison between values
	// with no defined order.
	ErrIncomparable = errors.New("values cannot be compared")

	// ErrCorruptLog indicates log replay failed on a complete record.
	ErrCorruptLog = errors.New("corrupt collection log")
)

// ValidationError carries the per-field messages produced by schema
// validation. It unwraps to ErrValidation.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func corruptLog(offset int64, format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrCorruptLog, offset, fmt.Sprintf(format, args...))
}
