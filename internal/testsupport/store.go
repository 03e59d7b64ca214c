package testsupport

import (
	"context"
	"testing"

	"bindery/internal/blobcache"
	"bindery/internal/book"
	"bindery/internal/config"
)

// MustOpenStore opens a book.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *book.Store {
	t.Helper()

	store, err := book.Open(cfg)
	if err != nil {
		t.Fatalf("book.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustOpenBlobs opens a blob cache rooted at the config's cache directory.
func MustOpenBlobs(t testing.TB, cfg *config.Config) *blobcache.Store {
	t.Helper()

	blobs, err := blobcache.New(cfg.BlobDir())
	if err != nil {
		t.Fatalf("blobcache.New: %v", err)
	}
	return blobs
}

// AddItem appends an item to the book for tests.
func AddItem(t testing.TB, store *book.Store, sourcePath string, kind book.Kind, rawSize int64) *book.Item {
	t.Helper()

	item, err := store.AddItem(context.Background(), sourcePath, kind, rawSize)
	if err != nil {
		t.Fatalf("store.AddItem: %v", err)
	}
	return item
}
