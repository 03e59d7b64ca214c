// Package book persists the ordered item sequence, bundle settings, and
// per-chunk sync records in SQLite.
//
// The Store is the single source of truth for book state. Every mutation of
// items or settings bumps a revision counter inside the same transaction;
// loops capture a Snapshot (items + settings + revision) and treat the
// revision as a generation marker, discarding any async result computed from
// a superseded snapshot. Cached compressed representations are committed
// conditionally: CommitRepresentation re-checks item existence and the
// current compression level so a stale refresh is dropped rather than merged.
//
// Chunks are deliberately not persisted — they are derived state, fully
// recomputable from items and settings by the planner. Sync records are
// persisted per part number so unchanged chunks survive daemon restarts
// without re-upload.
package book
