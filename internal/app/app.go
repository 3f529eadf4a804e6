// Package app wires the catalog store, storage backend, and pipeline
// components shared by the worker daemon and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"videoflix/internal/cleanup"
	"videoflix/internal/config"
	"videoflix/internal/dispatch"
	"videoflix/internal/encoder"
	"videoflix/internal/library"
	"videoflix/internal/rendition"
	"videoflix/internal/storage"
	"videoflix/internal/store"
	"videoflix/internal/tagging"
	"videoflix/internal/transcode"
	"videoflix/internal/workflow"
)

// App holds the long-lived components for one process.
type App struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Backend storage.Backend
	Tagger  *tagging.Tagger
	Library *library.Service
	Runner  *transcode.Runner
}

// Open ensures directories exist, opens the store and storage backend, and
// builds the library service and transcode runner on top of them.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	backend, err := storage.New(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	tagger := tagging.New(cfg.Categories)
	cleaner := cleanup.NewHandler(backend, logger)
	dispatcher := dispatch.New(st, logger)
	writer := rendition.NewWriter(backend, st, logger)
	runner := transcode.NewRunner(
		cfg,
		st,
		backend,
		encoder.New(cfg, logger),
		writer,
		tagger,
		logger,
		transcode.WithStageFunc(workflow.StageRecorder(st, logger)),
	)

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   st,
		Backend: backend,
		Tagger:  tagger,
		Library: library.New(st, backend, dispatcher, cleaner, tagger, logger),
		Runner:  runner,
	}, nil
}

// NewManager builds a workflow manager whose workers share name as prefix.
func (a *App) NewManager(name string) *workflow.Manager {
	return workflow.NewManager(a.Config, a.Store, a.Runner, a.Logger, workflow.WithWorkerName(name))
}

// Close releases the storage backend and the store.
func (a *App) Close() error {
	var errs []error
	if closer, ok := a.Backend.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}
