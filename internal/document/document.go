package document

import "go.mongodb.org/mongo-driver/bson"

// Document pairs a typed identifier with its field data. The ID always
// equals the value stored in the collection's ID field; the collection
// layer maintains that invariant.
type Document struct {
	ID   ID
	Data bson.M
}

// New returns a document with the given identity and data.
func New(id ID, data bson.M) Document {
	return Document{ID: id, Data: data}
}

// Clone returns a deep copy of the document. Mutating the copy never
// affects the original.
func (d Document) Clone() Document {
	return Document{ID: d.ID, Data: CloneMap(d.Data)}
}

// CloneMap deep-copies a document-shaped value map.
func CloneMap(m bson.M) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case bson.M:
		return CloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
