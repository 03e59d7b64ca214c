package inbox

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bindery/internal/book"
	"bindery/internal/logging"
	"bindery/internal/testsupport"
)

func TestWatcherIngestsSettledFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.InboxSettleSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)
	watcher := NewWatcher(cfg, store, logging.NewNop())

	// Present before the watcher starts: ingested by the startup scan.
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InboxDir, "cover.jpg"), 2_000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- watcher.Run(ctx) }()

	// Dropped in while the watcher is running.
	time.Sleep(200 * time.Millisecond)
	testsupport.WriteFile(t, filepath.Join(cfg.Paths.InboxDir, "chapter.pdf"), 5_000)

	deadline := time.Now().Add(10 * time.Second)
	var items []book.Item
	for {
		var err error
		items, err = store.Items(ctx)
		if err != nil {
			t.Fatalf("Items: %v", err)
		}
		if len(items) == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 2 ingested items, have %d", len(items))
		}
		time.Sleep(50 * time.Millisecond)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}

	byTitle := map[string]book.Item{}
	for _, item := range items {
		byTitle[item.Title] = item
	}
	cover, ok := byTitle["cover"]
	if !ok {
		t.Fatalf("cover item missing, have %+v", byTitle)
	}
	if cover.Kind != book.KindImage || cover.RawSize != 2_000 {
		t.Errorf("cover = %+v", cover)
	}
	chapter, ok := byTitle["chapter"]
	if !ok {
		t.Fatal("chapter item missing")
	}
	if chapter.Kind != book.KindPDF {
		t.Errorf("chapter kind = %s", chapter.Kind)
	}

	// Ingested files move out of the inbox into the cache.
	if _, err := os.Stat(filepath.Join(cfg.Paths.InboxDir, "cover.jpg")); !os.IsNotExist(err) {
		t.Error("cover.jpg still in inbox")
	}
	for _, item := range items {
		if _, err := os.Stat(item.SourcePath); err != nil {
			t.Errorf("cached copy missing for %s: %v", item.Title, err)
		}
	}
}

func TestWatcherLeavesUnsupportedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.InboxSettleSeconds = 1
	store := testsupport.MustOpenStore(t, cfg)
	watcher := NewWatcher(cfg, store, logging.NewNop())

	path := filepath.Join(cfg.Paths.InboxDir, "archive.zip")
	testsupport.WriteFile(t, path, 1_000)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = watcher.Run(ctx) }()

	time.Sleep(2 * time.Second)
	items, err := store.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("unsupported file was ingested: %+v", items)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("unsupported file should remain in the inbox")
	}
}
