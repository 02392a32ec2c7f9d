package engine

import (
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/collection"
	"github.com/TheDrone7/fhedb-sub001/internal/database"
	"github.com/TheDrone7/fhedb-sub001/internal/document"
	"github.com/TheDrone7/fhedb-sub001/internal/query"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

// refKind resolves reference value typing through the database, so
// query values targeting a ref field parse as the target's ID type.
func refKind(db *database.Database) query.RefKindFunc {
	return func(name string) (document.IDKind, bool) {
		coll, err := db.Collection(name)
		if err != nil {
			return 0, false
		}
		return coll.IDKind(), true
	}
}

func (e *Engine) insertDocument(db *database.Database, q query.InsertDocument) (Result, error) {
	coll, err := db.Collection(q.Collection)
	if err != nil {
		return Result{}, err
	}

	data, err := buildAssignments(db, coll, q.Fields, true)
	if err != nil {
		return Result{}, err
	}
	coll.Schema().ApplyDefaults(data)

	doc, err := coll.AddDocument(data)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Message:   fmt.Sprintf("Inserted document with ID %s.", doc.ID),
		Documents: []bson.M{doc.Data},
	}, nil
}

func (e *Engine) selectDocuments(db *database.Database, q query.SelectDocuments) (Result, error) {
	coll, err := db.Collection(q.Collection)
	if err != nil {
		return Result{}, err
	}

	conds, err := buildConditions(db, coll, q.Conditions)
	if err != nil {
		return Result{}, err
	}
	docs, err := coll.Filter(conds)
	if err != nil {
		return Result{}, err
	}

	out := make([]bson.M, 0, len(docs))
	for _, doc := range docs {
		visited := map[refKey]struct{}{
			{collection: coll.Name(), id: doc.ID.String()}: {},
		}
		projected, err := e.project(db, coll, doc.Data, q.Selectors, visited)
		if err != nil {
			return Result{}, err
		}
		out = append(out, projected)
	}
	return Result{Documents: out}, nil
}

func (e *Engine) updateDocuments(db *database.Database, q query.UpdateDocuments) (Result, error) {
	coll, err := db.Collection(q.Collection)
	if err != nil {
		return Result{}, err
	}

	// Parse the assignments once, against the schema.
	parsed, err := parseAssignments(db, coll, q.Assignments, false)
	if err != nil {
		return Result{}, err
	}

	conds, err := buildConditions(db, coll, q.Conditions)
	if err != nil {
		return Result{}, err
	}
	matched, err := coll.Filter(conds)
	if err != nil {
		return Result{}, err
	}

	type applied struct {
		id    document.ID
		prior bson.M
	}
	var done []applied
	for _, doc := range matched {
		prior := document.CloneMap(doc.Data)
		next := doc.Data
		for field, value := range parsed {
			next[field] = value
		}
		if _, err := coll.UpdateDocument(doc.ID, next); err != nil {
			// Restore the documents updated before the failure.
			for i := len(done) - 1; i >= 0; i-- {
				if _, rbErr := coll.UpdateDocument(done[i].id, done[i].prior); rbErr != nil {
					return Result{}, fmt.Errorf("rollback of %s failed: %w", done[i].id, rbErr)
				}
			}
			return Result{}, err
		}
		done = append(done, applied{id: doc.ID, prior: prior})
	}
	return Result{Message: fmt.Sprintf("Updated %d document(s).", len(done))}, nil
}

func (e *Engine) deleteDocuments(db *database.Database, q query.DeleteDocuments) (Result, error) {
	coll, err := db.Collection(q.Collection)
	if err != nil {
		return Result{}, err
	}

	conds, err := buildConditions(db, coll, q.Conditions)
	if err != nil {
		return Result{}, err
	}
	matched, err := coll.Filter(conds)
	if err != nil {
		return Result{}, err
	}

	for _, doc := range matched {
		if err := coll.DeleteDocument(doc.ID); err != nil {
			return Result{}, err
		}
	}
	return Result{Message: fmt.Sprintf("Deleted %d document(s).", len(matched))}, nil
}

// buildAssignments turns raw field assignments into a typed document
// body. allowID permits setting the ID field, which UPDATE forbids.
func buildAssignments(db *database.Database, coll *collection.Collection, fields []query.Assignment, allowID bool) (bson.M, error) {
	parsed, err := parseAssignments(db, coll, fields, allowID)
	if err != nil {
		return nil, err
	}
	data := bson.M{}
	for field, value := range parsed {
		data[field] = value
	}
	return data, nil
}

func parseAssignments(db *database.Database, coll *collection.Collection, fields []query.Assignment, allowID bool) (map[string]any, error) {
	kinds := refKind(db)
	out := make(map[string]any, len(fields))
	for _, a := range fields {
		def, exists := coll.Schema().Fields[a.Field]
		if !exists {
			return nil, &collection.ValidationError{
				Messages: []string{fmt.Sprintf("Unknown field: '%s'.", a.Field)},
			}
		}
		if !allowID && a.Field == coll.IDField() {
			return nil, &collection.ValidationError{
				Messages: []string{fmt.Sprintf("Field '%s': the ID field may not be reassigned", a.Field)},
			}
		}
		value, err := query.ParseValue(a.Value, def.Type, kinds)
		if err != nil {
			return nil, &collection.ValidationError{
				Messages: []string{fmt.Sprintf("Field '%s': %v", a.Field, err)},
			}
		}
		out[a.Field] = value
	}
	return out, nil
}

// buildConditions parses condition values against the schema. A
// Similar condition on an array field parses its value as the element
// type, for membership matching.
func buildConditions(db *database.Database, coll *collection.Collection, conds []query.FieldCondition) ([]collection.Condition, error) {
	kinds := refKind(db)
	out := make([]collection.Condition, 0, len(conds))
	for _, fc := range conds {
		def, exists := coll.Schema().Fields[fc.Field]
		if !exists {
			return nil, fmt.Errorf("%w: %q", collection.ErrUnknownField, fc.Field)
		}

		t := def.Type
		if fc.Operator == query.OpSimilar && t.Kind == schema.KindArray {
			t = *t.Elem
		}
		value, err := query.ParseValue(fc.Value, t, kinds)
		if err != nil {
			return nil, fmt.Errorf("condition on field %q: %w", fc.Field, err)
		}
		out = append(out, collection.Condition{
			Field: fc.Field,
			Op:    compareOps[fc.Operator],
			Value: value,
		})
	}
	return out, nil
}

var compareOps = map[query.Operator]collection.CompareOp{
	query.OpEqual:          collection.CmpEqual,
	query.OpNotEqual:       collection.CmpNotEqual,
	query.OpGreater:        collection.CmpGreater,
	query.OpGreaterOrEqual: collection.CmpGreaterOrEqual,
	query.OpLess:           collection.CmpLess,
	query.OpLessOrEqual:    collection.CmpLessOrEqual,
	query.OpSimilar:        collection.CmpSimilar,
}

// refKey identifies a document for cycle protection during recursive
// reference resolution.
type refKey struct {
	collection string
	id         string
}

// project applies selectors to one document body. data must already be
// caller-owned (the filter hands out clones).
func (e *Engine) project(db *database.Database, coll *collection.Collection, data bson.M, selectors []query.Selector, visited map[refKey]struct{}) (bson.M, error) {
	out := bson.M{}
	for _, sel := range selectors {
		switch sel.Kind {
		case query.SelectField:
			if !coll.HasField(sel.Field) {
				return nil, fmt.Errorf("%w: %q", collection.ErrUnknownField, sel.Field)
			}
			if v, present := data[sel.Field]; present {
				out[sel.Field] = v
			}

		case query.SelectAllFields:
			for field, v := range data {
				out[field] = v
			}

		case query.SelectAllFieldsRecursive:
			resolved, err := e.resolveAll(db, coll, data, visited)
			if err != nil {
				return nil, err
			}
			for field, v := range resolved {
				out[field] = v
			}

		case query.SelectSubDocument:
			if err := e.projectSubDocument(db, coll, data, sel, visited, out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func (e *Engine) projectSubDocument(db *database.Database, coll *collection.Collection, data bson.M, sel query.Selector, visited map[refKey]struct{}, out bson.M) error {
	def, exists := coll.Schema().Fields[sel.Field]
	if !exists {
		return fmt.Errorf("%w: %q", collection.ErrUnknownField, sel.Field)
	}
	target, ok := referenceTarget(def.Type)
	if !ok {
		return newError(ErrNotReference, "%s", sel.Field)
	}

	v, present := data[sel.Field]
	if !present || v == nil {
		return nil
	}
	resolved, found := db.ResolveReference(v, target)
	if !found {
		return nil
	}
	targetColl, err := db.Collection(target)
	if err != nil {
		return err
	}

	conds, err := buildConditions(db, targetColl, sel.Sub.Conditions)
	if err != nil {
		return err
	}
	matched, err := targetColl.Matches(resolved.Data, conds)
	if err != nil {
		return err
	}
	if !matched {
		return nil
	}

	key := refKey{collection: target, id: resolved.ID.String()}
	if _, seen := visited[key]; seen {
		out[sel.Field] = resolved.ID.String()
		return nil
	}
	visited[key] = struct{}{}
	projected, err := e.project(db, targetColl, resolved.Data, sel.Sub.Selectors, visited)
	delete(visited, key)
	if err != nil {
		return err
	}
	out[sel.Field] = projected
	return nil
}

// resolveAll copies every field, replacing reference values with the
// fully resolved target documents.
func (e *Engine) resolveAll(db *database.Database, coll *collection.Collection, data bson.M, visited map[refKey]struct{}) (bson.M, error) {
	out := bson.M{}
	for field, v := range data {
		def, exists := coll.Schema().Fields[field]
		if !exists {
			out[field] = v
			continue
		}
		out[field] = e.resolveDeep(db, def.Type, v, visited)
	}
	return out, nil
}

// resolveDeep replaces a reference value with its target document,
// recursing through nullable wrappers and array elements. Revisiting a
// document already on the resolution path emits its ID as a string.
func (e *Engine) resolveDeep(db *database.Database, t schema.FieldType, v any, visited map[refKey]struct{}) any {
	switch t.Kind {
	case schema.KindNullable:
		if v == nil {
			return nil
		}
		return e.resolveDeep(db, *t.Elem, v, visited)

	case schema.KindArray:
		elems, ok := v.([]any)
		if !ok {
			return v
		}
		out := make([]any, len(elems))
		for i, elem := range elems {
			out[i] = e.resolveDeep(db, *t.Elem, elem, visited)
		}
		return out

	case schema.KindReference:
		if v == nil {
			return nil
		}
		resolved, found := db.ResolveReference(v, t.Collection)
		if !found {
			return v
		}
		key := refKey{collection: t.Collection, id: resolved.ID.String()}
		if _, seen := visited[key]; seen {
			return idString(v)
		}
		targetColl, err := db.Collection(t.Collection)
		if err != nil {
			return v
		}
		visited[key] = struct{}{}
		nested, nestedErr := e.resolveAll(db, targetColl, resolved.Data, visited)
		delete(visited, key)
		if nestedErr != nil {
			return v
		}
		return nested
	}
	return v
}

func idString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprintf("%v", v)
}

// referenceTarget unwraps nullable layers and reports the collection a
// field refers to.
func referenceTarget(t schema.FieldType) (string, bool) {
	for t.Kind == schema.KindNullable {
		t = *t.Elem
	}
	if t.Kind == schema.KindReference {
		return t.Collection, true
	}
	return "", false
}
