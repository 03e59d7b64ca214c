// Package syncer mirrors planned chunks to remote storage. A per-slot sync
// record keyed by part number carries the last synced fingerprint across
// planning passes, so an unchanged chunk is never uploaded twice. Uploads
// are single-flight: one slot advances per tick, lowest part number first.
package syncer
