// Package engine evaluates parsed queries against the database
// registry: it owns the name -> Database map, the registry lock, and
// the projection and reference-resolution logic of SELECT.
package engine

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/TheDrone7/fhedb-sub001/internal/database"
)

// Engine is the main struct that provides the interface to the FheDB server.
type Engine struct {
	rwMutex       sync.RWMutex
	dataDir       string
	databases     map[string]*database.Database
	maxBufferSize int
}

type Config struct {
	// DataDir is the root directory holding one subdirectory per
	// database.
	DataDir string
}

func (c *Config) validate() error {
	var errGrp []error
	if c.DataDir == "" {
		errGrp = append(errGrp, fmt.Errorf("data directory is required"))
	}

	return errors.Join(errGrp...)
}

func New(cfg *Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		dataDir:       cfg.DataDir,
		databases:     make(map[string]*database.Database),
		maxBufferSize: 4096,
	}, nil
}

// Start loads every database found under the data directory.
func (e *Engine) Start() error {
	if err := os.MkdirAll(e.dataDir, 0750); err != nil {
		return fmt.Errorf("create data directory %s: %w", e.dataDir, err)
	}

	entries, err := os.ReadDir(e.dataDir)
	if err != nil {
		return fmt.Errorf("read data directory %s: %w", e.dataDir, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		db, err := database.Load(entry.Name(), e.dataDir)
		if err != nil {
			return fmt.Errorf("load database %s: %w", entry.Name(), err)
		}
		e.databases[db.Name()] = db
		log.Debug().Str("database", db.Name()).Msg("loaded database")
	}

	log.Info().Int("databases", len(e.databases)).Str("dataDir", e.dataDir).
		Msg("engine started")
	return nil
}

// Stop closes every open collection log handle.
func (e *Engine) Stop() error {
	e.rwMutex.Lock()
	defer e.rwMutex.Unlock()

	var errs []error
	for _, db := range e.databases {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.databases = make(map[string]*database.Database)
	return errors.Join(errs...)
}

func (e *Engine) Name() string {
	return "FheDB Engine"
}

// Result is the outcome of one executed query. Message carries the
// human-readable confirmation, Names the listing output, Documents the
// projected rows of a SELECT.
type Result struct {
	Message   string
	Names     []string
	Documents []bson.M
}
