// Package collection implements the storage unit of the database: a
// named, schema-typed set of documents persisted as an append-only
// operation log and indexed in memory by document ID.
package collection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/document"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

const (
	schemaFileName = "schema"
	logFileName    = "log"
)

// Collection owns a schema, an in-memory ID map rebuilt from the log
// at load time, and the log writer. Mutations validate first, append
// their log entry, and only then touch memory. Callers serialize
// mutations; concurrent reads are safe only against a quiescent
// collection.
type Collection struct {
	name    string
	dir     string
	schema  *schema.Schema
	idField string
	idKind  document.IDKind

	docs     map[document.ID]bson.M
	order    []document.ID
	maxIntID uint64

	log *logWriter
}

// New creates a fresh collection directory under basePath, writes the
// schema file and opens an empty log. A schema without an ID field
// gains an "id" field of type id_int.
func New(name string, s *schema.Schema, basePath string) (*Collection, error) {
	s = s.Clone()
	idField, idKind, err := s.EnsureID()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(basePath, name)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create collection directory %s: %w", dir, err)
	}
	if err := writeSchemaFile(dir, s); err != nil {
		return nil, err
	}

	log, err := openLog(filepath.Join(dir, logFileName))
	if err != nil {
		return nil, err
	}

	return &Collection{
		name:    name,
		dir:     dir,
		schema:  s,
		idField: idField,
		idKind:  idKind,
		docs:    make(map[document.ID]bson.M),
		log:     log,
	}, nil
}

// Load reads a collection back from disk: the schema file first, then
// a full replay of the operation log into the ID map.
func Load(basePath, name string) (*Collection, error) {
	dir := filepath.Join(basePath, name)

	raw, err := os.ReadFile(filepath.Join(dir, schemaFileName))
	if err != nil {
		return nil, fmt.Errorf("read schema for collection %s: %w", name, err)
	}
	s, err := schema.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	idField, idKind, err := s.IDField()
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}

	c := &Collection{
		name:    name,
		dir:     dir,
		schema:  s,
		idField: idField,
		idKind:  idKind,
		docs:    make(map[document.ID]bson.M),
	}

	records, err := readLog(filepath.Join(dir, logFileName))
	if err != nil {
		return nil, fmt.Errorf("collection %s: %w", name, err)
	}
	for _, rec := range records {
		if err := c.replay(rec); err != nil {
			return nil, fmt.Errorf("collection %s: %w", name, err)
		}
	}

	log, err := openLog(filepath.Join(dir, logFileName))
	if err != nil {
		return nil, err
	}
	c.log = log
	return c, nil
}

func (c *Collection) replay(rec logRecord) error {
	id, err := c.idFromValue(rec.Document[c.idField])
	if err != nil {
		return corruptLog(rec.offset, "%v", err)
	}
	switch rec.Operation {
	case OpInsert:
		if _, exists := c.docs[id]; exists {
			return corruptLog(rec.offset, "duplicate insert of ID %s", id)
		}
		c.insertInMemory(id, rec.Document)
	case OpUpdate:
		if _, exists := c.docs[id]; !exists {
			return corruptLog(rec.offset, "update of unknown ID %s", id)
		}
		c.docs[id] = rec.Document
	case OpDelete:
		if _, exists := c.docs[id]; !exists {
			return corruptLog(rec.offset, "delete of unknown ID %s", id)
		}
		c.removeInMemory(id)
	}
	return nil
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Schema returns the collection's schema.
func (c *Collection) Schema() *schema.Schema { return c.schema }

// IDField returns the name of the identity field.
func (c *Collection) IDField() string { return c.idField }

// IDKind returns the type of the identity field.
func (c *Collection) IDKind() document.IDKind { return c.idKind }

// HasField reports whether the schema defines the named field.
func (c *Collection) HasField(name string) bool { return c.schema.HasField(name) }

// Len returns the number of live documents.
func (c *Collection) Len() int { return len(c.docs) }

// AddDocument validates and inserts a document. A missing ID field is
// autogenerated: a UUID for string IDs, one past the current maximum
// for integer IDs. The INSERT log entry is flushed before the ID map
// changes.
func (c *Collection) AddDocument(data bson.M) (document.Document, error) {
	data = document.CloneMap(data)

	if _, present := data[c.idField]; !present {
		switch c.idKind {
		case document.IDString:
			data[c.idField] = document.NewID().Value()
		case document.IDInt:
			data[c.idField] = int64(c.maxIntID + 1)
		}
	}

	if errs := c.schema.Validate(data); errs != nil {
		return document.Document{}, &ValidationError{Messages: errs}
	}

	id, err := c.idFromValue(data[c.idField])
	if err != nil {
		return document.Document{}, &ValidationError{Messages: []string{err.Error()}}
	}
	if _, exists := c.docs[id]; exists {
		return document.Document{}, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	if err := c.log.Append(OpInsert, data); err != nil {
		return document.Document{}, err
	}
	c.insertInMemory(id, data)
	return document.New(id, document.CloneMap(data)), nil
}

// UpdateDocument validates and replaces the document stored under id.
// The new data must carry the same ID, or no ID field at all, in
// which case it is injected.
func (c *Collection) UpdateDocument(id document.ID, data bson.M) (document.Document, error) {
	if _, exists := c.docs[id]; !exists {
		return document.Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	data = document.CloneMap(data)
	if raw, present := data[c.idField]; present {
		got, err := c.idFromValue(raw)
		if err != nil {
			return document.Document{}, &ValidationError{Messages: []string{err.Error()}}
		}
		if got != id {
			return document.Document{}, &ValidationError{
				Messages: []string{fmt.Sprintf("Field '%s': ID does not match the target document", c.idField)},
			}
		}
	} else {
		data[c.idField] = id.Value()
	}

	if errs := c.schema.Validate(data); errs != nil {
		return document.Document{}, &ValidationError{Messages: errs}
	}

	if err := c.log.Append(OpUpdate, data); err != nil {
		return document.Document{}, err
	}
	c.docs[id] = data
	return document.New(id, document.CloneMap(data)), nil
}

// DeleteDocument removes the document stored under id, persisting a
// DELETE entry carrying the full document body.
func (c *Collection) DeleteDocument(id document.ID) error {
	data, exists := c.docs[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := c.log.Append(OpDelete, data); err != nil {
		return err
	}
	c.removeInMemory(id)
	return nil
}

// GetDocument returns a copy of the document stored under id.
func (c *Collection) GetDocument(id document.ID) (document.Document, bool) {
	data, exists := c.docs[id]
	if !exists {
		return document.Document{}, false
	}
	return document.New(id, document.CloneMap(data)), true
}

// Documents returns copies of all documents in insertion order.
func (c *Collection) Documents() []document.Document {
	out := make([]document.Document, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, document.New(id, document.CloneMap(c.docs[id])))
	}
	return out
}

// Compact rewrites the log as one INSERT per live document, dropping
// superseded history, and atomically replaces the old file.
func (c *Collection) Compact() error {
	tmpPath := filepath.Join(c.dir, logFileName+".tmp")
	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0640)
	if err != nil {
		return fmt.Errorf("compact %s: %w", c.name, err)
	}

	for _, id := range c.order {
		frame, err := encodeFrame(OpInsert, c.docs[id])
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return err
		}
		if _, err := tmp.Write(frame); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return fmt.Errorf("compact %s: %w", c.name, err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("compact %s: %w", c.name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("compact %s: %w", c.name, err)
	}

	if err := os.Rename(tmpPath, filepath.Join(c.dir, logFileName)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("compact %s: %w", c.name, err)
	}
	return c.log.reopen()
}

// FailAppendAfter makes the log append following the next n
// successful ones return err. It lets tests exercise the write
// failure paths of mutating operations.
func (c *Collection) FailAppendAfter(n int, err error) {
	c.log.failAfter(n, err)
}

// Close releases the log handle. The collection must not be used
// afterwards.
func (c *Collection) Close() error {
	return c.log.Close()
}

// Drop closes the collection and removes its directory.
func (c *Collection) Drop() error {
	if err := c.log.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("remove collection directory %s: %w", c.dir, err)
	}
	return nil
}

func (c *Collection) insertInMemory(id document.ID, data bson.M) {
	c.docs[id] = data
	c.order = append(c.order, id)
	if c.idKind == document.IDInt && id.Int() > c.maxIntID {
		c.maxIntID = id.Int()
	}
}

func (c *Collection) removeInMemory(id document.ID) {
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// idFromValue reinterprets a document field value as an ID of the
// collection's kind. A string-ID collection never coerces integers
// and vice versa.
func (c *Collection) idFromValue(v any) (document.ID, error) {
	switch c.idKind {
	case document.IDString:
		s, ok := v.(string)
		if !ok {
			return document.ID{}, errors.New("Expected ID as string")
		}
		return document.StringID(s), nil
	default:
		n, ok := v.(int64)
		if !ok || n < 0 {
			return document.ID{}, errors.New("Expected ID as integer")
		}
		return document.IntID(uint64(n)), nil
	}
}

func writeSchemaFile(dir string, s *schema.Schema) error {
	raw, err := s.Encode()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, schemaFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0640); err != nil {
		return fmt.Errorf("write schema file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write schema file %s: %w", path, err)
	}
	return nil
}
