// Package document defines the value universe of the database: typed
// document identifiers, the document wrapper, and the operations on the
// dynamic values documents are built from.
package document

import (
	"strconv"

	"github.com/google/uuid"
)

// IDKind discriminates the two identifier families a collection can use.
type IDKind int

const (
	// IDString identifies documents by an arbitrary string, usually a UUID.
	IDString IDKind = iota
	// IDInt identifies documents by a non-negative 64-bit integer.
	IDInt
)

// ID is the typed identity of a document. The zero value is the empty
// string ID. ID is comparable and safe to use as a map key.
type ID struct {
	kind IDKind
	str  string
	num  uint64
}

// StringID returns an ID carrying the given string.
func StringID(s string) ID {
	return ID{kind: IDString, str: s}
}

// IntID returns an ID carrying the given integer.
func IntID(n uint64) ID {
	return ID{kind: IDInt, num: n}
}

// NewID returns a fresh random string ID (UUID v4).
func NewID() ID {
	return StringID(uuid.NewString())
}

// Kind reports which identifier family this ID belongs to.
func (id ID) Kind() IDKind { return id.kind }

// Int returns the integer payload. Only meaningful when Kind is IDInt.
func (id ID) Int() uint64 { return id.num }

// String renders the ID for display and for use inside error messages.
func (id ID) String() string {
	if id.kind == IDInt {
		return strconv.FormatUint(id.num, 10)
	}
	return id.str
}

// Value returns the ID as the value stored in the document's ID field:
// a string for IDString, an int64 for IDInt.
func (id ID) Value() any {
	if id.kind == IDInt {
		return int64(id.num)
	}
	return id.str
}
