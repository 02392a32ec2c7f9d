package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/TheDrone7/fhedb-sub001/internal/database"
	"github.com/TheDrone7/fhedb-sub001/internal/query"
)

// ExecuteBase runs a registry-level query: database create, drop and
// list. It holds the registry write lock for the mutating forms.
func (e *Engine) ExecuteBase(q query.DatabaseQuery) (Result, error) {
	switch q := q.(type) {
	case query.CreateDatabase:
		e.rwMutex.Lock()
		defer e.rwMutex.Unlock()
		if q.DropIfExists {
			if err := e.dropDatabase(q.Name); err != nil && !errors.Is(err, ErrDatabaseNotFound) {
				return Result{}, err
			}
		}
		return e.createDatabase(q.Name)

	case query.DropDatabase:
		e.rwMutex.Lock()
		defer e.rwMutex.Unlock()
		if err := e.dropDatabase(q.Name); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Dropped database '%s'.", q.Name)}, nil

	case query.ListDatabases:
		e.rwMutex.RLock()
		defer e.rwMutex.RUnlock()
		names := make([]string, 0, len(e.databases))
		for name := range e.databases {
			names = append(names, name)
		}
		sort.Strings(names)
		return Result{Names: names}, nil
	}

	return Result{}, fmt.Errorf("unsupported database query %T", q)
}

func (e *Engine) createDatabase(name string) (Result, error) {
	if _, exists := e.databases[name]; exists {
		return Result{}, newError(ErrDatabaseExists, "%s", name)
	}
	if _, err := os.Stat(filepath.Join(e.dataDir, name)); err == nil {
		return Result{}, newError(ErrDatabaseExists, "%s", name)
	}

	db, err := database.New(name, e.dataDir)
	if err != nil {
		return Result{}, err
	}
	e.databases[name] = db
	return Result{Message: fmt.Sprintf("Created database '%s'.", name)}, nil
}

func (e *Engine) dropDatabase(name string) error {
	db, existsInMemory := e.databases[name]
	path := filepath.Join(e.dataDir, name)
	_, statErr := os.Stat(path)
	existsOnDisk := statErr == nil

	if !existsInMemory && !existsOnDisk {
		return newError(ErrDatabaseNotFound, "%s", name)
	}
	if existsInMemory {
		delete(e.databases, name)
		return db.Drop()
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("remove database directory %s: %w", path, err)
	}
	return nil
}
