// Command bindery is the CLI companion to binderyd. It talks to the
// daemon's HTTP API to inspect status, manage items, and change settings,
// and handles local concerns like dropping files into the inbox and
// writing sample configuration.
package main
