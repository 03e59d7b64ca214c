// Package services defines shared utilities consumed by the workflow loops
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, component names, and correlation
//     identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper that separate transient
//     failures (retried on the next tick) from validation failures that need
//     a human decision.
//
// Use these helpers when wiring new loop logic so operational behaviour
// (error handling, observability, retries) stays uniform across components.
package services
