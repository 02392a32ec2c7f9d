package schema

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
)

// The on-disk form of a schema is a BSON map from field name to type
// representation. Simple types are their name as a string; composite
// types nest: {"array": <type>}, {"nullable": <type>},
// {"reference": "<collection>"}. A field with an explicit default is
// wrapped as {"type": <type>, "default": <value>}.

// Encode serializes the schema to its BSON byte form.
func (s *Schema) Encode() ([]byte, error) {
	doc := make(bson.M, len(s.Fields))
	for name, def := range s.Fields {
		doc[name] = encodeDefinition(def)
	}
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}
	return b, nil
}

// Decode parses a schema from its BSON byte form.
func Decode(b []byte) (*Schema, error) {
	var doc bson.M
	if err := bson.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	doc = document.NormalizeMap(doc)

	s := New()
	for name, raw := range doc {
		def, err := decodeDefinition(raw)
		if err != nil {
			return nil, fmt.Errorf("decode schema field %q: %w", name, err)
		}
		s.Fields[name] = def
	}
	return s, nil
}

func encodeDefinition(def FieldDefinition) any {
	t := encodeType(def.Type)
	if !def.HasDefault {
		return t
	}
	return bson.M{"type": t, "default": def.Default}
}

func encodeType(t FieldType) any {
	switch t.Kind {
	case KindArray:
		return bson.M{"array": encodeType(*t.Elem)}
	case KindNullable:
		return bson.M{"nullable": encodeType(*t.Elem)}
	case KindReference:
		return bson.M{"reference": t.Collection}
	default:
		return t.String()
	}
}

func decodeDefinition(raw any) (FieldDefinition, error) {
	if m, ok := raw.(bson.M); ok {
		if rawType, present := m["type"]; present {
			t, err := decodeType(rawType)
			if err != nil {
				return FieldDefinition{}, err
			}
			return FieldWithDefault(t, m["default"]), nil
		}
	}
	t, err := decodeType(raw)
	if err != nil {
		return FieldDefinition{}, err
	}
	return Field(t), nil
}

func decodeType(raw any) (FieldType, error) {
	switch v := raw.(type) {
	case string:
		switch v {
		case "int":
			return Int(), nil
		case "float":
			return Float(), nil
		case "boolean":
			return Boolean(), nil
		case "string":
			return String(), nil
		case "id_string":
			return IDString(), nil
		case "id_int":
			return IDInt(), nil
		}
		return FieldType{}, fmt.Errorf("unknown field type %q", v)
	case bson.M:
		if inner, present := v["array"]; present {
			elem, err := decodeType(inner)
			if err != nil {
				return FieldType{}, err
			}
			return Array(elem), nil
		}
		if inner, present := v["nullable"]; present {
			elem, err := decodeType(inner)
			if err != nil {
				return FieldType{}, err
			}
			return Nullable(elem), nil
		}
		if name, ok := v["reference"].(string); ok {
			return Reference(name), nil
		}
	}
	return FieldType{}, fmt.Errorf("unrecognized field type representation %v", raw)
}
