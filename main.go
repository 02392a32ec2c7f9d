package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/TheDrone7/fhedb-sub001/internal/app"
	"github.com/TheDrone7/fhedb-sub001/internal/config"
	"github.com/TheDrone7/fhedb-sub001/internal/engine"
	"github.com/TheDrone7/fhedb-sub001/internal/server"
)

func main() {
	application, err := initialize()
	if err != nil {
		panic(err)
	}

	if err = application.Run(context.Background()); err != nil {
		panic(err)
	}
}

func initialize() (*app.App, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	var deps []app.Dependency

	// the engine owns the database registry and evaluates queries
	queryEngine, err := engine.New(&engine.Config{
		DataDir: cfg.DataDir,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, queryEngine)

	// the server feeds incoming connections to the engine
	srv, err := server.New(&server.Config{
		Address:        cfg.ServerAddress,
		Port:           cfg.ServerPort,
		Handler:        queryEngine,
		MaxConnections: cfg.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	deps = append(deps, srv)

	application, err := app.CreateApp(&app.Config{
		ServiceName: "FheDB",
		StopTimeout: 5 * time.Second,
	}, deps...)
	if err != nil {
		return nil, err
	}

	return application, nil
}
