package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeRemote(); err != nil {
		return err
	}
	c.normalizeBook()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeRemote() error {
	c.Remote.Backend = strings.ToLower(strings.TrimSpace(c.Remote.Backend))
	if c.Remote.Backend == "" {
		c.Remote.Backend = defaultRemoteBackend
	}
	if c.Remote.Backend == RemoteBackendFolder {
		var err error
		if c.Remote.Dir, err = expandPath(c.Remote.Dir); err != nil {
			return fmt.Errorf("remote.dir: %w", err)
		}
	}
	c.Remote.FolderID = strings.TrimSpace(c.Remote.FolderID)
	c.S3.Bucket = strings.TrimSpace(c.S3.Bucket)
	c.S3.Prefix = strings.Trim(strings.TrimSpace(c.S3.Prefix), "/")
	return nil
}

func (c *Config) normalizeBook() {
	c.Book.Title = strings.TrimSpace(c.Book.Title)
	if c.Book.Title == "" {
		c.Book.Title = defaultBookTitle
	}
	c.Book.CompressionLevel = strings.ToLower(strings.TrimSpace(c.Book.CompressionLevel))
	if c.Book.CompressionLevel == "" {
		c.Book.CompressionLevel = defaultCompressionLevel
	}
	if c.Book.MaxChunkSizeBytes <= 0 {
		c.Book.MaxChunkSizeBytes = defaultMaxChunkSizeBytes
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.OptimizerTickMS <= 0 {
		c.Workflow.OptimizerTickMS = defaultOptimizerTickMS
	}
	if c.Workflow.PlannerTickMS <= 0 {
		c.Workflow.PlannerTickMS = defaultPlannerTickMS
	}
	if c.Workflow.SyncTickMS <= 0 {
		c.Workflow.SyncTickMS = defaultSyncTickMS
	}
	if c.Workflow.ErrorRetrySeconds <= 0 {
		c.Workflow.ErrorRetrySeconds = defaultErrorRetrySeconds
	}
	if c.Workflow.UploadAttempts <= 0 {
		c.Workflow.UploadAttempts = defaultUploadAttempts
	}
	if c.Workflow.InboxSettleSeconds <= 0 {
		c.Workflow.InboxSettleSeconds = defaultInboxSettleSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
