package document

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Values inside a document are restricted to a closed set of Go types:
//
//	int64, float64, bool, string, []any, bson.M, nil
//
// Encode and Decode move between that set and the canonical BSON byte
// form; Normalize folds the wider set of types the BSON decoder can
// produce (int32, primitive.A, bson.D) back into it.

// Encode serializes a document-shaped value map to BSON bytes.
func Encode(doc bson.M) ([]byte, error) {
	b, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

// Decode parses BSON bytes into a normalized value map.
func Decode(b []byte) (bson.M, error) {
	var doc bson.M
	if err := bson.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return NormalizeMap(doc), nil
}

// NormalizeMap normalizes every value in a decoded map in place and
// returns it.
func NormalizeMap(doc bson.M) bson.M {
	for k, v := range doc {
		doc[k] = Normalize(v)
	}
	return doc
}

// Normalize converts a value produced by the BSON decoder into its
// canonical in-memory form.
func Normalize(v any) any {
	switch val := v.(type) {
	case int32:
		return int64(val)
	case int:
		return int64(val)
	case primitive.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Normalize(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = Normalize(item)
		}
		return val
	case bson.M:
		return NormalizeMap(val)
	case bson.D:
		out := make(bson.M, len(val))
		for _, e := range val {
			out[e.Key] = Normalize(e.Value)
		}
		return out
	default:
		return v
	}
}

// Equal reports structural equality between two values. Null equals
// Null; an Int64 never equals a Double.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch av := a.(type) {
	case int64:
		bv, ok := b.(int64)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case bson.M:
		bv, ok := b.(bson.M)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two values. It is defined for integer pairs, double
// pairs, mixed integer/double pairs (the integer is promoted), and
// string pairs. The second return value is false for every other
// pairing; arrays and nulls are never ordered.
func Compare(a, b any) (int, bool) {
	switch av := a.(type) {
	case int64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, bv), true
		case float64:
			return compareOrdered(float64(av), bv), true
		}
	case float64:
		switch bv := b.(type) {
		case int64:
			return compareOrdered(av, float64(bv)), true
		case float64:
			return compareOrdered(av, bv), true
		}
	case string:
		if bv, ok := b.(string); ok {
			return compareOrdered(av, bv), true
		}
	}
	return 0, false
}

func compareOrdered[T int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
