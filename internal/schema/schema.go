// Package schema defines collection schemas: a mapping from field
// names to typed field definitions, plus validation of documents
// against those definitions.
package schema

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
)

// Kind enumerates the field type constructors.
type Kind uint8

const (
	KindInt Kind = iota
	KindFloat
	KindBoolean
	KindString
	KindArray
	KindReference
	KindNullable
	KindIDString
	KindIDInt
)

// FieldType is the type of a single schema field. Array and Nullable
// carry an element type in Elem; Reference carries the name of the
// target collection.
type FieldType struct {
	Kind       Kind
	Elem       *FieldType
	Collection string
}

func Int() FieldType      { return FieldType{Kind: KindInt} }
func Float() FieldType    { return FieldType{Kind: KindFloat} }
func Boolean() FieldType  { return FieldType{Kind: KindBoolean} }
func String() FieldType   { return FieldType{Kind: KindString} }
func IDString() FieldType { return FieldType{Kind: KindIDString} }
func IDInt() FieldType    { return FieldType{Kind: KindIDInt} }

func Array(elem FieldType) FieldType {
	return FieldType{Kind: KindArray, Elem: &elem}
}

func Nullable(elem FieldType) FieldType {
	return FieldType{Kind: KindNullable, Elem: &elem}
}

func Reference(collection string) FieldType {
	return FieldType{Kind: KindReference, Collection: collection}
}

// IsID reports whether the type designates the identity field.
func (t FieldType) IsID() bool {
	return t.Kind == KindIDString || t.Kind == KindIDInt
}

// String renders the type the way the query language spells it.
func (t FieldType) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBoolean:
		return "boolean"
	case KindString:
		return "string"
	case KindArray:
		return fmt.Sprintf("array<%s>", t.Elem)
	case KindReference:
		return fmt.Sprintf("ref<%s>", t.Collection)
	case KindNullable:
		return fmt.Sprintf("nullable<%s>", t.Elem)
	case KindIDString:
		return "id_string"
	case KindIDInt:
		return "id_int"
	default:
		return "unknown"
	}
}

// Equal reports structural equality of two field types.
func (t FieldType) Equal(other FieldType) bool {
	if t.Kind != other.Kind || t.Collection != other.Collection {
		return false
	}
	if (t.Elem == nil) != (other.Elem == nil) {
		return false
	}
	if t.Elem != nil {
		return t.Elem.Equal(*other.Elem)
	}
	return true
}

// FieldDefinition pairs a field type with an optional default value.
type FieldDefinition struct {
	Type       FieldType
	Default    any
	HasDefault bool
}

// Field constructs a definition without a default.
func Field(t FieldType) FieldDefinition {
	return FieldDefinition{Type: t}
}

// FieldWithDefault constructs a definition carrying a default value.
func FieldWithDefault(t FieldType, def any) FieldDefinition {
	return FieldDefinition{Type: t, Default: def, HasDefault: true}
}

// Required reports whether a document must supply the field
// explicitly. ID fields are autogenerated, nullable and reference
// fields default to null, arrays default to empty, and fields with an
// explicit default are filled in.
func (d FieldDefinition) Required() bool {
	if d.HasDefault {
		return false
	}
	switch d.Type.Kind {
	case KindNullable, KindArray, KindReference, KindIDString, KindIDInt:
		return false
	}
	return true
}

// Schema maps field names to their definitions. A schema holds at
// most one ID field (id_string or id_int).
type Schema struct {
	Fields map[string]FieldDefinition
}

// New returns an empty schema.
func New() *Schema {
	return &Schema{Fields: make(map[string]FieldDefinition)}
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	out := New()
	for name, def := range s.Fields {
		if def.HasDefault {
			def.Default = document.Normalize(cloneDefault(def.Default))
		}
		out.Fields[name] = def
	}
	return out
}

func cloneDefault(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneDefault(item)
		}
		return out
	case bson.M:
		out := make(bson.M, len(val))
		for k, item := range val {
			out[k] = cloneDefault(item)
		}
		return out
	default:
		return v
	}
}

// HasField reports whether the schema defines the named field.
func (s *Schema) HasField(name string) bool {
	_, ok := s.Fields[name]
	return ok
}

// IDField returns the name and kind of the schema's identity field.
// It fails with ErrNoIDField when the schema has none.
func (s *Schema) IDField() (string, document.IDKind, error) {
	for name, def := range s.Fields {
		switch def.Type.Kind {
		case KindIDString:
			return name, document.IDString, nil
		case KindIDInt:
			return name, document.IDInt, nil
		}
	}
	return "", 0, ErrNoIDField
}

// EnsureID guarantees the schema carries exactly one ID field. When
// none is declared, an "id" field of type id_int is inserted. More
// than one ID field is an error.
func (s *Schema) EnsureID() (string, document.IDKind, error) {
	var (
		name  string
		kind  document.IDKind
		count int
	)
	for fieldName, def := range s.Fields {
		switch def.Type.Kind {
		case KindIDString:
			name, kind = fieldName, document.IDString
			count++
		case KindIDInt:
			name, kind = fieldName, document.IDInt
			count++
		}
	}
	switch count {
	case 0:
		s.Fields["id"] = Field(IDInt())
		return "id", document.IDInt, nil
	case 1:
		return name, kind, nil
	default:
		return "", 0, ErrMultipleIDFields
	}
}

// ApplyDefaults fills in absent optional fields: explicit defaults
// first, then the intrinsic ones (empty array for array fields, null
// for nullable and reference fields). ID fields are left for the
// collection to generate. Returns the number of fields filled in.
func (s *Schema) ApplyDefaults(doc bson.M) int {
	applied := 0
	for name, def := range s.Fields {
		if _, present := doc[name]; present {
			continue
		}
		if def.Type.IsID() {
			continue
		}
		switch {
		case def.HasDefault:
			doc[name] = document.Normalize(cloneDefault(def.Default))
		case def.Type.Kind == KindArray:
			doc[name] = []any{}
		case def.Type.Kind == KindNullable, def.Type.Kind == KindReference:
			doc[name] = nil
		default:
			continue
		}
		applied++
	}
	return applied
}
