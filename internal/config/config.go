package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	InboxDir string `toml:"inbox_dir"`
	CacheDir string `toml:"cache_dir"`
	LogDir   string `toml:"log_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Book contains the initial bundle settings for a fresh book database.
// Once the database exists, settings changes go through the daemon API so
// running loops observe them atomically.
type Book struct {
	Title               string `toml:"title"`
	MaxChunkSizeBytes   int64  `toml:"max_chunk_size_bytes"`
	CompressionLevel    string `toml:"compression_level"`
	SafetyMarginPercent int    `toml:"safety_margin_percent"`
}

// Remote selects and configures the upload target for finalized bundles.
type Remote struct {
	Backend  string `toml:"backend"` // "folder" or "s3"
	FolderID string `toml:"folder_id"`
	Dir      string `toml:"dir"` // folder backend root
}

// S3 contains settings for the S3-compatible remote backend.
type S3 struct {
	Bucket       string `toml:"bucket"`
	Prefix       string `toml:"prefix"`
	Region       string `toml:"region"`
	Endpoint     string `toml:"endpoint"`
	UsePathStyle bool   `toml:"use_path_style"`
}

// Workflow contains configuration for loop timing and retry cadence.
type Workflow struct {
	OptimizerTickMS    int `toml:"optimizer_tick_ms"`
	PlannerTickMS      int `toml:"planner_tick_ms"`
	SyncTickMS         int `toml:"sync_tick_ms"`
	ErrorRetrySeconds  int `toml:"error_retry_seconds"`
	UploadAttempts     int `toml:"upload_attempts"`
	InboxSettleSeconds int `toml:"inbox_settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bindery.
//
// Configuration sections by subsystem:
//   - Paths: inbox/cache/log directories and API bind address
//   - Book: bundle title and size ceiling seeds
//   - Remote: upload backend selection (local folder or S3)
//   - S3: S3-compatible backend connection settings
//   - Workflow: loop tick intervals and retry cadence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Book     Book     `toml:"book"`
	Remote   Remote   `toml:"remote"`
	S3       S3       `toml:"s3"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration
// file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bindery/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bindery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// SampleConfig returns the embedded sample configuration with comments.
func SampleConfig() string {
	return sampleConfig
}

// EnsureDirectories creates required directories for daemon operation.
// The remote folder target is created on a best-effort basis so the daemon
// can run when external storage is temporarily unavailable.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.InboxDir, c.Paths.CacheDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if c.Remote.Backend == RemoteBackendFolder && strings.TrimSpace(c.Remote.Dir) != "" {
		_ = os.MkdirAll(c.Remote.Dir, 0o755)
	}
	return nil
}

// LogDir returns the normalized log directory path.
func (c *Config) LogDir() string { return c.Paths.LogDir }

// LogLevel returns the configured log level.
func (c *Config) LogLevel() string { return c.Logging.Level }

// LogFormat returns the configured log format.
func (c *Config) LogFormat() string { return c.Logging.Format }

// DatabasePath returns the location of the book database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.CacheDir, "book.db")
}

// BlobDir returns the directory holding cached compressed representations.
func (c *Config) BlobDir() string {
	return filepath.Join(c.Paths.CacheDir, "blobs")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
