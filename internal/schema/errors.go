package schema

import "errors"

var (
	// ErrNoIDField indicates the schema declares no id_string or
	// id_int field.
	ErrNoIDField = errors.New("schema has no ID field")

	// ErrMultipleIDFields indicates the schema declares more than one
	// ID field.
	ErrMultipleIDFields = errors.New("schema must contain at most one field with type id_string or id_int")
)
