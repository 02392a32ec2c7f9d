package collection

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

// Modification alters one schema field: either a drop or a new
// definition.
type Modification struct {
	Field string
	Drop  bool
	Def   schema.FieldDefinition
}

// ApplyModifications changes the collection's schema and rewrites
// existing documents to stay consistent with it. The whole batch is
// checked up front; on any error nothing changes. The ID field can be
// neither dropped nor redefined, and no new ID field can be
// introduced. A new or retyped field that would be required must
// carry a default when the collection already holds documents.
//
// Existing field values that still validate under a new definition
// are kept; everything else is replaced by the field's default. Each
// rewritten document produces one UPDATE log entry; the schema file is
// rewritten afterwards.
func (c *Collection) ApplyModifications(mods []Modification) error {
	next := c.schema.Clone()

	for _, mod := range mods {
		if mod.Field == c.idField {
			return fmt.Errorf("cannot modify the ID field %q", c.idField)
		}
		if mod.Drop {
			if !next.HasField(mod.Field) {
				return fmt.Errorf("%w: %q", ErrUnknownField, mod.Field)
			}
			delete(next.Fields, mod.Field)
			continue
		}
		if mod.Def.Type.IsID() {
			return fmt.Errorf("schema already has an ID field %q", c.idField)
		}
		if len(c.docs) > 0 && mod.Def.Required() {
			return fmt.Errorf("cannot add required field %q without a default to a non-empty collection", mod.Field)
		}
		next.Fields[mod.Field] = mod.Def
	}

	// Rewrite document bodies against the new schema.
	rewritten := make(map[document.ID]bson.M, len(c.docs))
	for _, id := range c.order {
		data := document.CloneMap(c.docs[id])
		changed := false
		for _, mod := range mods {
			if mod.Drop {
				if _, present := data[mod.Field]; present {
					delete(data, mod.Field)
					changed = true
				}
				continue
			}
			if value, present := data[mod.Field]; present {
				if schema.ValidateValue(value, mod.Def.Type) == "" {
					continue
				}
				delete(data, mod.Field)
			}
			changed = true
		}
		if next.ApplyDefaults(data) > 0 {
			changed = true
		}
		if changed {
			rewritten[id] = data
		}
	}

	for id, data := range rewritten {
		if errs := next.Validate(data); errs != nil {
			return fmt.Errorf("document %s after modification: %w", id, &ValidationError{Messages: errs})
		}
	}

	for _, id := range c.order {
		data, ok := rewritten[id]
		if !ok {
			continue
		}
		if err := c.log.Append(OpUpdate, data); err != nil {
			return err
		}
		c.docs[id] = data
	}
	if err := writeSchemaFile(c.dir, next); err != nil {
		return err
	}
	c.schema = next
	return nil
}
