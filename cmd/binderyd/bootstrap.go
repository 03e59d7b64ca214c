package main

import (
	"context"
	"fmt"

	"log/slog"

	"bindery/internal/blobcache"
	"bindery/internal/book"
	"bindery/internal/config"
	"bindery/internal/daemon"
	"bindery/internal/services/pdfengine"
	"bindery/internal/services/remote"
	"bindery/internal/workflow"
)

// bootstrap assembles the daemon's dependency graph: the book store, the
// blob cache, the PDF engine, the remote target, and the workflow manager.
func bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*daemon.Daemon, error) {
	store, err := book.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open book store: %w", err)
	}

	blobs, err := blobcache.New(cfg.BlobDir())
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open blob cache: %w", err)
	}

	target, err := remote.NewStore(ctx, cfg)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("configure remote target: %w", err)
	}

	gateway := pdfengine.NewEngine(blobs, logger)
	manager := workflow.NewManager(cfg, store, blobs, gateway, target, logger)

	d, err := daemon.New(cfg, store, blobs, manager, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return d, nil
}
