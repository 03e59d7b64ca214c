package preflight

import (
	"bindery/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// minFreeBytes is the cache-dir headroom required before the daemon starts:
// the engine materializes whole bundles on disk while encoding, so a nearly
// full volume fails mid-bundle otherwise.
const minFreeBytes = 512 * 1024 * 1024

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Inbox directory", cfg.Paths.InboxDir),
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckFreeSpace("Cache free space", cfg.Paths.CacheDir, minFreeBytes),
	}

	switch cfg.Remote.Backend {
	case config.RemoteBackendFolder:
		results = append(results, CheckDirectoryAccess("Remote folder", cfg.Remote.Dir))
	case config.RemoteBackendS3:
		results = append(results, CheckS3Config(cfg.S3))
	}

	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}
