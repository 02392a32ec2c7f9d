package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseExists is returned when creating a database whose name
	// is already taken, in memory or on disk.
	ErrDatabaseExists = errors.New("database already exists")

	// ErrDatabaseNotFound is returned when a query names a database the
	// registry does not hold.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNotReference is returned when a sub-document selector targets
	// a field that is not a reference.
	ErrNotReference = errors.New("not a reference field")
)

// Error wraps a sentinel error with additional context
type Error struct {
	Err     error
	Context string
}

func (e *Error) Error() string {
	if e.Context == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Context)
}

// Unwrap implements the errors.Unwrap interface for compatibility with errors.Is/As
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(err error, format string, args ...interface{}) *Error {
	return &Error{
		Err:     err,
		Context: fmt.Sprintf(format, args...),
	}
}
