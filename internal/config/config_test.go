package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultPassesValidation(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatalf("expected missing file, got exists for %s", path)
	}
	if cfg.Book.CompressionLevel != defaultCompressionLevel {
		t.Fatalf("expected default compression level, got %q", cfg.Book.CompressionLevel)
	}
	if cfg.Book.MaxChunkSizeBytes != defaultMaxChunkSizeBytes {
		t.Fatalf("expected default chunk ceiling, got %d", cfg.Book.MaxChunkSizeBytes)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := strings.Join([]string{
		"[book]",
		`title = "  Field Notes  "`,
		`compression_level = "HIGH"`,
		"safety_margin_percent = 10",
		"",
		"[remote]",
		`backend = "folder"`,
		`dir = "` + filepath.Join(dir, "remote") + `"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Book.Title != "Field Notes" {
		t.Fatalf("expected trimmed title, got %q", cfg.Book.Title)
	}
	if cfg.Book.CompressionLevel != "high" {
		t.Fatalf("expected lowercased level, got %q", cfg.Book.CompressionLevel)
	}
	if cfg.Book.SafetyMarginPercent != 10 {
		t.Fatalf("expected margin 10, got %d", cfg.Book.SafetyMarginPercent)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad level", func(c *Config) { c.Book.CompressionLevel = "extreme" }},
		{"negative margin", func(c *Config) { c.Book.SafetyMarginPercent = -1 }},
		{"margin too large", func(c *Config) { c.Book.SafetyMarginPercent = 21 }},
		{"tiny ceiling", func(c *Config) { c.Book.MaxChunkSizeBytes = 1024 }},
		{"unknown backend", func(c *Config) { c.Remote.Backend = "ftp" }},
		{"s3 without bucket", func(c *Config) { c.Remote.Backend = RemoteBackendS3; c.S3.Bucket = "" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if err := cfg.normalize(); err != nil {
				t.Fatalf("normalize failed: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	expanded, err := expandPath("~/bindery-test")
	if err != nil {
		t.Fatalf("expandPath failed: %v", err)
	}
	if expanded != filepath.Join(home, "bindery-test") {
		t.Fatalf("unexpected expansion: %s", expanded)
	}
}

func TestSampleConfigEmbedded(t *testing.T) {
	if !strings.Contains(SampleConfig(), "[book]") {
		t.Fatal("expected sample config to include book section")
	}
}
