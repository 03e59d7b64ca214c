package testsupport

import (
	"path/filepath"
	"testing"

	"bindery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.InboxDir = filepath.Join(base, "inbox")
	cfg.Paths.CacheDir = filepath.Join(base, "cache")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.Remote.Dir = filepath.Join(base, "remote")
	cfg.Book.Title = "Test Book"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMaxChunkSize overrides the bundle size ceiling on the test config.
func WithMaxChunkSize(bytes int64) ConfigOption {
	return func(c *config.Config) {
		c.Book.MaxChunkSizeBytes = bytes
	}
}

// WithCompressionLevel overrides the initial compression level.
func WithCompressionLevel(level string) ConfigOption {
	return func(c *config.Config) {
		c.Book.CompressionLevel = level
	}
}

// WithSafetyMargin overrides the safety margin percentage.
func WithSafetyMargin(percent int) ConfigOption {
	return func(c *config.Config) {
		c.Book.SafetyMarginPercent = percent
	}
}
