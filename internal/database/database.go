// Package database groups collections under a single named database
// directory and resolves cross-collection references.
package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/TheDrone7/fhedb-sub001/internal/collection"
	"github.com/TheDrone7/fhedb-sub001/internal/document"
	"github.com/TheDrone7/fhedb-sub001/internal/schema"
)

var (
	// ErrCollectionExists indicates a create for a name already in use.
	ErrCollectionExists = errors.New("collection already exists")

	// ErrCollectionNotFound indicates the named collection does not
	// exist in this database.
	ErrCollectionNotFound = errors.New("collection not found")
)

// Database owns its collections exclusively. The directory layout is
// <base>/<database>/<collection>/{schema,log}.
type Database struct {
	name        string
	path        string
	collections map[string]*collection.Collection
}

// New creates (or adopts) the database directory under basePath.
func New(name, basePath string) (*Database, error) {
	path := filepath.Join(basePath, name)
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("create database directory %s: %w", path, err)
	}
	return &Database{
		name:        name,
		path:        path,
		collections: make(map[string]*collection.Collection),
	}, nil
}

// Load opens an existing database, loading every direct subdirectory
// as a collection.
func Load(name, basePath string) (*Database, error) {
	db, err := New(name, basePath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(db.path)
	if err != nil {
		return nil, fmt.Errorf("scan database directory %s: %w", db.path, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		coll, err := collection.Load(db.path, entry.Name())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("database %s: %w", name, err)
		}
		db.collections[entry.Name()] = coll
	}
	return db, nil
}

// Name returns the database name.
func (db *Database) Name() string { return db.name }

// CreateCollection creates a new collection with the given schema.
func (db *Database) CreateCollection(name string, s *schema.Schema) (*collection.Collection, error) {
	if _, exists := db.collections[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionExists, name)
	}
	coll, err := collection.New(name, s, db.path)
	if err != nil {
		return nil, err
	}
	db.collections[name] = coll
	return coll, nil
}

// DropCollection removes a collection and its directory.
func (db *Database) DropCollection(name string) error {
	coll, exists := db.collections[name]
	if !exists {
		return fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	if err := coll.Drop(); err != nil {
		return err
	}
	delete(db.collections, name)
	return nil
}

// Collection returns the named collection.
func (db *Database) Collection(name string) (*collection.Collection, error) {
	coll, exists := db.collections[name]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrCollectionNotFound, name)
	}
	return coll, nil
}

// CollectionNames returns the collection names in sorted order.
func (db *Database) CollectionNames() []string {
	names := make([]string, 0, len(db.collections))
	for name := range db.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveReference looks up a foreign document by the raw reference
// value stored in a referencing field. The value is reinterpreted
// according to the target collection's ID type. Unknown collections,
// malformed IDs and missing documents all yield no result rather than
// an error.
func (db *Database) ResolveReference(ref any, collectionName string) (document.Document, bool) {
	coll, exists := db.collections[collectionName]
	if !exists {
		return document.Document{}, false
	}

	var id document.ID
	switch coll.IDKind() {
	case document.IDString:
		s, ok := refAsString(ref)
		if !ok {
			return document.Document{}, false
		}
		id = document.StringID(s)
	case document.IDInt:
		n, ok := refAsInt(ref)
		if !ok {
			return document.Document{}, false
		}
		id = document.IntID(n)
	}
	return coll.GetDocument(id)
}

func refAsString(ref any) (string, bool) {
	s, ok := ref.(string)
	return s, ok
}

func refAsInt(ref any) (uint64, bool) {
	switch v := ref.(type) {
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

// Close releases every collection's log handle.
func (db *Database) Close() error {
	var errs []error
	for _, coll := range db.collections {
		if err := coll.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Drop closes the database and removes its directory tree.
func (db *Database) Drop() error {
	if err := db.Close(); err != nil {
		return err
	}
	if err := os.RemoveAll(db.path); err != nil {
		return fmt.Errorf("remove database directory %s: %w", db.path, err)
	}
	return nil
}
