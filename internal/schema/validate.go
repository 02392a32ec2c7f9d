package schema

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
)

// Validate checks a document against the schema and returns one
// message per violation, in field-name order. Documents are closed:
// fields not declared in the schema are rejected. A nil return means
// the document is valid.
func (s *Schema) Validate(doc bson.M) []string {
	var errs []string
	for _, name := range sortedKeys(s.Fields) {
		def := s.Fields[name]
		value, present := doc[name]
		if !present {
			if def.Required() {
				errs = append(errs, fmt.Sprintf("Missing field: '%s'.", name))
			}
			continue
		}
		if msg := ValidateValue(value, def.Type); msg != "" {
			errs = append(errs, fmt.Sprintf("Field '%s': %s", name, msg))
		}
	}
	for _, name := range sortedDocKeys(doc) {
		if !s.HasField(name) {
			errs = append(errs, fmt.Sprintf("Unknown field: '%s'.", name))
		}
	}
	return errs
}

// ValidateValue checks a single normalized value against a field
// type. It returns an empty string on success and a description of
// the mismatch otherwise.
func ValidateValue(value any, t FieldType) string {
	switch t.Kind {
	case KindInt:
		if _, ok := value.(int64); !ok {
			return "Expected int"
		}
	case KindFloat:
		if _, ok := value.(float64); !ok {
			return "Expected float"
		}
	case KindBoolean:
		if _, ok := value.(bool); !ok {
			return "Expected boolean"
		}
	case KindString:
		if _, ok := value.(string); !ok {
			return "Expected string"
		}
	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			return "Expected array"
		}
		for i, elem := range arr {
			if msg := ValidateValue(elem, *t.Elem); msg != "" {
				return fmt.Sprintf("Array element %d: %s", i, msg)
			}
		}
	case KindReference:
		// The target collection's ID type is only known at
		// evaluation time; accept both ID shapes here.
		switch value.(type) {
		case string, int64, nil:
		default:
			return "Expected reference (string, integer or null)"
		}
	case KindNullable:
		if value == nil {
			return ""
		}
		return ValidateValue(value, *t.Elem)
	case KindIDString:
		if _, ok := value.(string); !ok {
			return "Expected ID as string"
		}
	case KindIDInt:
		n, ok := value.(int64)
		if !ok || n < 0 {
			return "Expected ID as integer"
		}
	}
	return ""
}

func sortedKeys(fields map[string]FieldDefinition) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func sortedDocKeys(doc bson.M) []string {
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
