package book_test

import (
	"context"
	"testing"

	"bindery/internal/book"
	"bindery/internal/testsupport"
)

func orderedIDs(t *testing.T, store *book.Store) []string {
	t.Helper()
	items, err := store.Items(context.Background())
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	ids := make([]string, 0, len(items))
	for i, item := range items {
		if item.Position != i+1 {
			t.Fatalf("item %s has position %d, want %d", item.ID, item.Position, i+1)
		}
		ids = append(ids, item.ID)
	}
	return ids
}

func TestAddItemAssignsPositions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	a := testsupport.AddItem(t, store, "/media/a.jpg", book.KindImage, 1_000)
	b := testsupport.AddItem(t, store, "/media/b.jpg", book.KindImage, 2_000)
	c := testsupport.AddItem(t, store, "/media/c.pdf", book.KindPDF, 3_000)

	ids := orderedIDs(t, store)
	if ids[0] != a.ID || ids[1] != b.ID || ids[2] != c.ID {
		t.Errorf("unexpected order %v", ids)
	}
	if a.Position != 1 || b.Position != 2 || c.Position != 3 {
		t.Errorf("positions = %d, %d, %d", a.Position, b.Position, c.Position)
	}
	if a.Title != "a" {
		t.Errorf("inferred title = %q, want %q", a.Title, "a")
	}
}

func TestAddItemTitledKeepsExplicitTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item, err := store.AddItemTitled(ctx, "/cache/items/3f2a.jpg", "holiday scan", book.KindImage, 500)
	if err != nil {
		t.Fatalf("AddItemTitled: %v", err)
	}
	if item.Title != "holiday scan" {
		t.Errorf("title = %q", item.Title)
	}

	if _, err := store.AddItemTitled(ctx, "   ", "x", book.KindImage, 1); err == nil {
		t.Error("expected error for empty source path")
	}
	if _, err := store.AddItemTitled(ctx, "/a.jpg", "x", book.KindImage, -1); err == nil {
		t.Error("expected error for negative raw size")
	}
}

func TestRemoveItemCompactsPositions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.AddItem(t, store, "/media/a.jpg", book.KindImage, 1_000)
	b := testsupport.AddItem(t, store, "/media/b.jpg", book.KindImage, 2_000)
	c := testsupport.AddItem(t, store, "/media/c.jpg", book.KindImage, 3_000)

	removed, err := store.RemoveItem(ctx, b.ID)
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}

	ids := orderedIDs(t, store)
	if len(ids) != 2 || ids[0] != a.ID || ids[1] != c.ID {
		t.Errorf("unexpected order after remove: %v", ids)
	}

	removed, err = store.RemoveItem(ctx, "missing")
	if err != nil {
		t.Fatalf("RemoveItem missing: %v", err)
	}
	if removed {
		t.Error("expected no removal for unknown id")
	}
}

func TestMoveItemShiftsNeighbours(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.AddItem(t, store, "/media/a.jpg", book.KindImage, 1_000)
	b := testsupport.AddItem(t, store, "/media/b.jpg", book.KindImage, 2_000)
	c := testsupport.AddItem(t, store, "/media/c.jpg", book.KindImage, 3_000)
	d := testsupport.AddItem(t, store, "/media/d.jpg", book.KindImage, 4_000)

	if err := store.MoveItem(ctx, d.ID, 1); err != nil {
		t.Fatalf("MoveItem to front: %v", err)
	}
	ids := orderedIDs(t, store)
	want := []string{d.ID, a.ID, b.ID, c.ID}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("after move to front: %v", ids)
		}
	}

	if err := store.MoveItem(ctx, d.ID, 3); err != nil {
		t.Fatalf("MoveItem to middle: %v", err)
	}
	ids = orderedIDs(t, store)
	want = []string{a.ID, b.ID, d.ID, c.ID}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("after move to middle: %v", ids)
		}
	}

	// Out-of-range targets clamp to the ends.
	if err := store.MoveItem(ctx, a.ID, 99); err != nil {
		t.Fatalf("MoveItem past end: %v", err)
	}
	ids = orderedIDs(t, store)
	if ids[len(ids)-1] != a.ID {
		t.Errorf("expected %s last, got %v", a.ID, ids)
	}

	if err := store.MoveItem(ctx, "missing", 1); err == nil {
		t.Error("expected error moving unknown item")
	}
}

func TestMoveItemBumpsRevision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.AddItem(t, store, "/media/a.jpg", book.KindImage, 1_000)
	testsupport.AddItem(t, store, "/media/b.jpg", book.KindImage, 2_000)

	before, err := store.Revision(ctx)
	if err != nil {
		t.Fatalf("Revision: %v", err)
	}
	if err := store.MoveItem(ctx, a.ID, 2); err != nil {
		t.Fatalf("MoveItem: %v", err)
	}
	after, err := store.Revision(ctx)
	if err != nil {
		t.Fatalf("Revision: %v", err)
	}
	if after <= before {
		t.Errorf("revision did not advance: %d -> %d", before, after)
	}
}

func TestCommitRepresentationDiscardsStaleResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.AddItem(t, store, "/media/a.jpg", book.KindImage, 1_000)

	// Level moved on since the refresh started.
	committed, err := store.CommitRepresentation(ctx, item.ID, book.Representation{
		Size: 300, Level: book.CompressionHigh, Path: "blobs/a",
	})
	if err != nil {
		t.Fatalf("CommitRepresentation: %v", err)
	}
	if committed {
		t.Error("expected stale-level commit to be discarded")
	}

	// Item removed mid-flight.
	if _, err := store.RemoveItem(ctx, item.ID); err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	committed, err = store.CommitRepresentation(ctx, item.ID, book.Representation{
		Size: 300, Level: book.CompressionMedium, Path: "blobs/a",
	})
	if err != nil {
		t.Fatalf("CommitRepresentation: %v", err)
	}
	if committed {
		t.Error("expected commit for removed item to be discarded")
	}
}

func TestCommitRepresentationRoundTrips(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.AddItem(t, store, "/media/a.jpg", book.KindImage, 1_000)

	committed, err := store.CommitRepresentation(ctx, item.ID, book.Representation{
		Size: 420, Level: book.CompressionMedium, Path: "blobs/a.zst",
	})
	if err != nil {
		t.Fatalf("CommitRepresentation: %v", err)
	}
	if !committed {
		t.Fatal("expected commit to apply")
	}

	loaded, err := store.ItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemByID: %v", err)
	}
	if loaded.Cached == nil {
		t.Fatal("expected cached representation")
	}
	if loaded.Cached.Size != 420 || loaded.Cached.Level != book.CompressionMedium || loaded.Cached.Path != "blobs/a.zst" {
		t.Errorf("cached = %+v", loaded.Cached)
	}
	if !loaded.NeedsProcessing(book.Settings{CompressionLevel: book.CompressionHigh}) {
		t.Error("representation at medium should need processing under high")
	}
	if loaded.NeedsProcessing(book.Settings{CompressionLevel: book.CompressionMedium}) {
		t.Error("representation at medium should be current under medium")
	}
}

func TestSetPageCount(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	item := testsupport.AddItem(t, store, "/media/a.pdf", book.KindPDF, 1_000)
	if err := store.SetPageCount(ctx, item.ID, 12); err != nil {
		t.Fatalf("SetPageCount: %v", err)
	}
	loaded, err := store.ItemByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("ItemByID: %v", err)
	}
	if loaded.PageCount != 12 {
		t.Errorf("page count = %d, want 12", loaded.PageCount)
	}

	if err := store.SetPageCount(ctx, "missing", 1); err == nil {
		t.Error("expected error for unknown item")
	}
	if err := store.SetPageCount(ctx, item.ID, -1); err == nil {
		t.Error("expected error for negative page count")
	}
}
