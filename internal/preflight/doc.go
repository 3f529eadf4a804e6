// Package preflight provides readiness checks for the filesystem paths,
// storage backend, and encoder binary a worker depends on.
//
// The daemon runs RunAll before starting workers and refuses to start when a
// check fails. The CLI "check" command prints the same results.
package preflight
