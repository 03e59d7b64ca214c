package remote

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFolderStoreUploadAndOverwrite(t *testing.T) {
	root := t.TempDir()
	store, err := NewFolderStore(root)
	if err != nil {
		t.Fatalf("NewFolderStore: %v", err)
	}

	id, err := store.Upload(context.Background(), "book-1", "part-001.pdf", []byte("first"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if id != filepath.Join("book-1", "part-001.pdf") {
		t.Fatalf("unexpected object id %q", id)
	}

	id2, err := store.Upload(context.Background(), "book-1", "part-001.pdf", []byte("second"))
	if err != nil {
		t.Fatalf("re-upload: %v", err)
	}
	if id2 != id {
		t.Fatalf("overwrite changed object id: %q vs %q", id2, id)
	}
	data, err := os.ReadFile(filepath.Join(root, id))
	if err != nil {
		t.Fatalf("read uploaded object: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwritten content, got %q", data)
	}
}

func TestFolderStoreRemoveMissingObject(t *testing.T) {
	store, err := NewFolderStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFolderStore: %v", err)
	}
	if err := store.Remove(context.Background(), "book-1/gone.pdf"); err != nil {
		t.Fatalf("Remove of missing object should succeed, got %v", err)
	}
}

func TestFolderStoreRequiresRoot(t *testing.T) {
	if _, err := NewFolderStore(""); err == nil {
		t.Fatal("expected error for empty root")
	}
}
