package remote

import (
	"context"
	"fmt"

	"bindery/internal/config"
)

// Store uploads finished bundles to remote storage. Upload replaces any
// existing object for the same folder and filename and returns a stable
// object identifier recorded in the sync ledger.
type Store interface {
	// Upload writes data under folderID/filename, overwriting a previous
	// object with the same name, and returns the object identifier.
	Upload(ctx context.Context, folderID, filename string, data []byte) (string, error)

	// Remove deletes the object with the given identifier. Removing an
	// object that does not exist is not an error.
	Remove(ctx context.Context, objectID string) error
}

// NewStore builds the Store selected by the remote configuration section.
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Remote.Backend {
	case config.RemoteBackendFolder:
		return NewFolderStore(cfg.Remote.Dir)
	case config.RemoteBackendS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown remote backend %q", cfg.Remote.Backend)
	}
}
