// Package workflow runs bindery's background engine: three tick-driven
// loops that refresh item representations, recompute the chunk plan, and
// mirror planned chunks to remote storage. Shared state moves between the
// loops by whole-value replacement guarded by revision checks, never by
// in-place patches, so a stale async result is dropped instead of merged.
package workflow
