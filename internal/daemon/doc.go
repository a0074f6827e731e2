// Package daemon runs the background service: a worker pool draining the
// job queue, a lease reclaimer, and the HTTP API. A lock file enforces a
// single instance per data directory.
package daemon
