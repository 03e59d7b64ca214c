package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bindery/internal/book"
	"bindery/internal/testsupport"
)

func TestStatusCommandShowsBook(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Test Book")
	requireContains(t, out, "running")
	requireContains(t, out, "No plan computed yet")
}

func TestItemsListAndMove(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "items", "list")
	if err != nil {
		t.Fatalf("items list: %v", err)
	}
	requireContains(t, out, "no items")

	store := env.store
	first := testsupport.AddItem(t, store, "/media/alpha.jpg", book.KindImage, 9_000)
	second := testsupport.AddItem(t, store, "/media/beta.jpg", book.KindImage, 9_000)

	out, err = runCLI(t, env, "items", "list")
	if err != nil {
		t.Fatalf("items list: %v", err)
	}
	requireContains(t, out, "alpha")
	requireContains(t, out, "beta")

	if _, err := runCLI(t, env, "items", "move", second.ID, "1"); err != nil {
		t.Fatalf("items move: %v", err)
	}
	items, err := store.Items(context.Background())
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if items[0].ID != second.ID {
		t.Errorf("expected %s first after move, got %s", second.ID, items[0].ID)
	}

	if _, err := runCLI(t, env, "items", "remove", first.ID); err != nil {
		t.Fatalf("items remove: %v", err)
	}
	items, err = store.Items(context.Background())
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item after remove, got %d", len(items))
	}
}

func TestSettingsSet(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, env, "settings", "set", "--max-chunk-size", "8MiB", "--level", "high")
	if err != nil {
		t.Fatalf("settings set: %v", err)
	}
	requireContains(t, out, "Settings updated")

	settings, err := env.store.Settings(context.Background())
	if err != nil {
		t.Fatalf("Settings: %v", err)
	}
	if settings.MaxChunkSizeBytes != 8*1024*1024 {
		t.Errorf("max chunk size = %d, want %d", settings.MaxChunkSizeBytes, 8*1024*1024)
	}
	if settings.CompressionLevel != book.CompressionHigh {
		t.Errorf("compression level = %q, want high", settings.CompressionLevel)
	}

	if _, err := runCLI(t, env, "settings", "set"); err == nil {
		t.Error("expected error when no flags are passed")
	}
}

func TestAddCommandCopiesIntoInbox(t *testing.T) {
	base := t.TempDir()
	inbox := filepath.Join(base, "inbox")
	configPath := filepath.Join(base, "config.toml")
	contents := "[paths]\n" +
		"inbox_dir = \"" + inbox + "\"\n" +
		"cache_dir = \"" + filepath.Join(base, "cache") + "\"\n" +
		"log_dir = \"" + filepath.Join(base, "logs") + "\"\n"
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	src := filepath.Join(base, "holiday-photos.jpg")
	testsupport.WriteFile(t, src, 4_000)

	out, err := runCLIStandalone(t, "--config", configPath, "add", src)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Holiday Photos")

	if _, err := os.Stat(filepath.Join(inbox, "holiday-photos.jpg")); err != nil {
		t.Fatalf("expected file in inbox: %v", err)
	}

	if _, err := runCLIStandalone(t, "--config", configPath, "add", filepath.Join(base, "nope.xyz")); err == nil {
		t.Error("expected error for missing file")
	}
	unsupported := filepath.Join(base, "track.mp3")
	testsupport.WriteFile(t, unsupported, 1_000)
	if _, err := runCLIStandalone(t, "--config", configPath, "add", unsupported); err == nil {
		t.Error("expected error for unsupported file type")
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmdOut, err := runCLIStandalone(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, cmdOut, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLIStandalone(t, "config", "init", "--path", target); err == nil {
		t.Error("expected error without --overwrite")
	}
	if _, err := runCLIStandalone(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Errorf("config init --overwrite: %v", err)
	}
}

func TestDisplayTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"my-summer_trip.jpg":  "My Summer Trip",
		"scan.001.pdf":        "Scan 001",
		"REPORT.pdf":          "Report",
		"...":                 "Untitled",
		"/tmp/notes_2024.odt": "Notes 2024",
	}
	for input, want := range cases {
		if got := displayTitleFromFilename(input); got != want {
			t.Errorf("displayTitleFromFilename(%q) = %q, want %q", input, got, want)
		}
	}
}
