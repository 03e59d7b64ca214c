package remote

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"bindery/internal/services"
)

// FolderStore mirrors bundles into a local directory tree, one subdirectory
// per folder ID. The object identifier is the path relative to the root.
type FolderStore struct {
	root string
}

func NewFolderStore(root string) (*FolderStore, error) {
	if root == "" {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "folder store", "remote.dir is required for the folder backend", nil)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "remote", "folder store", "create root", err)
	}
	return &FolderStore{root: root}, nil
}

func (s *FolderStore) Upload(ctx context.Context, folderID, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := s.root
	if folderID != "" {
		dir = filepath.Join(s.root, folderID)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", services.Wrap(services.ErrTransient, "remote", "upload", "create folder", err)
		}
	}
	dest := filepath.Join(dir, filename)

	// Temp file plus rename so readers never observe a partial bundle.
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "remote", "upload", "create temp file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "remote", "upload", "write bundle", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "remote", "upload", "close temp file", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return "", services.Wrap(services.ErrTransient, "remote", "upload", "publish bundle", err)
	}

	objectID, err := filepath.Rel(s.root, dest)
	if err != nil {
		return dest, nil
	}
	return objectID, nil
}

func (s *FolderStore) Remove(ctx context.Context, objectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.root, objectID))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return services.Wrap(services.ErrTransient, "remote", "remove", "", err)
	}
	return nil
}
