// Package logging configures slog output for the daemon and CLI.
//
// It provides console and JSON handlers, typed attribute helpers, and
// standardized field keys so every component logs item IDs, part numbers,
// and correlation IDs under the same names.
package logging
