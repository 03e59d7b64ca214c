// Package config loads, normalizes, and validates bindery configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need: inbox/cache directories, the bundle size ceiling,
// remote backend selection, and loop tick cadence.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
