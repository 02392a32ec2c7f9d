package engine

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/TheDrone7/fhedb-sub001/internal/collection"
	"github.com/TheDrone7/fhedb-sub001/internal/database"
	"github.com/TheDrone7/fhedb-sub001/internal/query"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

// ExecuteContextual runs a query against a named database. Mutating
// queries hold the registry write lock so collection state is owned
// exclusively for their duration; reads share the read lock.
func (e *Engine) ExecuteContextual(dbName string, q query.ContextualQuery) (Result, error) {
	if isMutating(q) {
		e.rwMutex.Lock()
		defer e.rwMutex.Unlock()
	} else {
		e.rwMutex.RLock()
		defer e.rwMutex.RUnlock()
	}

	db, exists := e.databases[dbName]
	if !exists {
		return Result{}, newError(ErrDatabaseNotFound, "%s", dbName)
	}

	switch q := q.(type) {
	case query.CreateCollection:
		return e.createCollection(db, q)
	case query.DropCollection:
		if err := db.DropCollection(q.Name); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Dropped collection '%s'.", q.Name)}, nil
	case query.ListCollections:
		return Result{Names: db.CollectionNames()}, nil
	case query.GetCollectionSchema:
		coll, err := db.Collection(q.Name)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: renderSchema(coll.Schema())}, nil
	case query.ModifyCollection:
		return e.modifyCollection(db, q)
	case query.InsertDocument:
		return e.insertDocument(db, q)
	case query.SelectDocuments:
		return e.selectDocuments(db, q)
	case query.UpdateDocuments:
		return e.updateDocuments(db, q)
	case query.DeleteDocuments:
		return e.deleteDocuments(db, q)
	}

	return Result{}, fmt.Errorf("unsupported contextual query %T", q)
}

func isMutating(q query.ContextualQuery) bool {
	switch q.(type) {
	case query.ListCollections, query.GetCollectionSchema, query.SelectDocuments:
		return false
	}
	return true
}

func (e *Engine) createCollection(db *database.Database, q query.CreateCollection) (Result, error) {
	if q.DropIfExists {
		if err := db.DropCollection(q.Name); err != nil && !errors.Is(err, database.ErrCollectionNotFound) {
			return Result{}, err
		}
	}
	if _, err := db.CreateCollection(q.Name, q.Schema); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Created collection '%s'.", q.Name)}, nil
}

func (e *Engine) modifyCollection(db *database.Database, q query.ModifyCollection) (Result, error) {
	coll, err := db.Collection(q.Name)
	if err != nil {
		return Result{}, err
	}

	mods := make([]collection.Modification, 0, len(q.Modifications))
	for _, m := range q.Modifications {
		mods = append(mods, collection.Modification{
			Field: m.Field,
			Drop:  m.Drop,
			Def:   m.Def,
		})
	}
	if err := coll.ApplyModifications(mods); err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Modified collection '%s'.", q.Name)}, nil
}

// renderSchema prints a schema in the field-definition form the query
// language uses, fields sorted by name.
func renderSchema(s *schema.Schema) string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("{\n")
	for _, name := range names {
		def := s.Fields[name]
		b.WriteString("  ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(def.Type.String())
		if def.HasDefault {
			b.WriteString(" = ")
			b.WriteString(renderValue(def.Default))
		}
		b.WriteString(",\n")
	}
	b.WriteString("}")
	return b.String()
}

// renderValue prints a stored value as a query-language literal.
func renderValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, elem := range v {
			parts = append(parts, renderValue(elem))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprintf("%v", v)
}
