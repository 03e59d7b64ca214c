// Package optimizer runs the background refresh loop that keeps per-item
// compressed representations aligned with the book's compression level. It
// is level-triggered: each tick handles the first stale item in book order,
// then the loop goes idle until an edit or a settings change invalidates
// the cache again.
package optimizer
