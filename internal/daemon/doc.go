// Package daemon runs the long-lived bindery process: it wires the engine,
// the inbox watcher, and the HTTP API together, guards against concurrent
// instances with a file lock, and refuses to start when preflight checks
// fail.
package daemon
