// Package preflight provides readiness checks for the filesystem paths and
// remote storage configuration bindery depends on.
//
// The daemon runs RunAll once at startup and refuses to start on failure;
// the CLI "bindery status" command reuses the individual check functions to
// display environment health.
package preflight
