// Package library is the application service around the asset catalog. It
// owns the explicit triggers of the pipeline: Create stores the uploaded
// files and dispatches a transcode job, UpdateMetadata edits descriptive
// fields without dispatching, and Delete removes the record and then runs
// cleanup on a snapshot of it. Bulk import, re-tagging and manual requeue
// are layered on the same primitives.
package library
