// Package blobcache stores per-item compressed representations on disk.
//
// Representation bytes are zstd-compressed at rest; the recorded Size is
// always the logical (uncompressed) representation size, which is what the
// planner estimates against. Writes go through a temp file and rename so a
// crash never leaves a truncated blob behind.
package blobcache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Shared encoder/decoder, both safe for concurrent use. Construction is
// expensive, so allocate once.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Store manages the blob directory.
type Store struct {
	dir string
}

// New creates the blob directory if needed and returns a Store.
func New(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("blob cache directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create blob cache directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the blob cache root.
func (s *Store) Dir() string { return s.dir }

// Put writes the representation bytes for an item at one compression level
// and returns the blob path. Blobs are keyed by item and level, so a write
// for one level can never shadow the bytes another level's committed row
// points at. An existing blob for the same key is replaced atomically.
func (s *Store) Put(itemID, level string, data []byte) (string, error) {
	if strings.TrimSpace(itemID) == "" {
		return "", errors.New("item id must not be empty")
	}
	if strings.TrimSpace(level) == "" {
		return "", errors.New("compression level must not be empty")
	}
	path := s.blobPath(itemID, level)
	tmp, err := os.CreateTemp(s.dir, ".blob-*")
	if err != nil {
		return "", fmt.Errorf("create temp blob: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	compressed := zstdEncoder.EncodeAll(data, nil)
	if _, err := tmp.Write(compressed); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("finalize blob: %w", err)
	}
	return path, nil
}

// Get reads and decompresses the blob at path.
func (s *Store) Get(path string) ([]byte, error) {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	data, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress blob: %w", err)
	}
	return data, nil
}

// Remove deletes every blob for an item, across all compression levels.
// Missing blobs are not an error.
func (s *Store) Remove(itemID string) error {
	if strings.TrimSpace(itemID) == "" {
		return errors.New("item id must not be empty")
	}
	paths, err := filepath.Glob(filepath.Join(s.dir, itemID+"-*.zst"))
	if err != nil {
		return fmt.Errorf("list blobs: %w", err)
	}
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove blob: %w", err)
		}
	}
	return nil
}

func (s *Store) blobPath(itemID, level string) string {
	return filepath.Join(s.dir, itemID+"-"+level+".zst")
}
