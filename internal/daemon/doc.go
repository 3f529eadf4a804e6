// Package daemon coordinates the long-running transcode worker process.
//
// It wires configuration, the catalog store, the workflow manager, and the
// Prometheus endpoint into a single lifecycle with flock-based locking so
// two workers never run under the same name. Preflight checks gate startup.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and status.
package daemon
