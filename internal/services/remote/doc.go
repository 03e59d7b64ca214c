// Package remote holds the storage backends the syncer mirrors bundles to.
// Two implementations exist: a local folder tree for offline setups and an
// S3 client for bucket-backed storage.
package remote
