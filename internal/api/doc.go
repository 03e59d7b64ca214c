// Package api defines the wire types shared between the daemon's HTTP
// endpoints and the CLI, plus the client the CLI uses to reach a running
// daemon.
package api
