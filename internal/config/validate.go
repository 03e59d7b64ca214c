package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateBook(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateBook() error {
	switch c.Book.CompressionLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("book.compression_level must be low, medium, or high (got %q)", c.Book.CompressionLevel)
	}
	if c.Book.SafetyMarginPercent < 0 || c.Book.SafetyMarginPercent > 20 {
		return errors.New("book.safety_margin_percent must be between 0 and 20")
	}
	if c.Book.MaxChunkSizeBytes < 1024*1024 {
		return errors.New("book.max_chunk_size_bytes must be at least 1 MiB")
	}
	return nil
}

func (c *Config) validateRemote() error {
	switch c.Remote.Backend {
	case RemoteBackendFolder:
		if c.Remote.Dir == "" {
			return errors.New("remote.dir must be set for the folder backend")
		}
	case RemoteBackendS3:
		if c.S3.Bucket == "" {
			return errors.New("s3.bucket must be set for the s3 backend")
		}
	default:
		return fmt.Errorf("remote.backend must be %q or %q (got %q)", RemoteBackendFolder, RemoteBackendS3, c.Remote.Backend)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}
