// Package store persists the asset catalog and the transcode job queue in a
// single SQLite database.
//
// Assets carry the typed rendition slots, category, and processing status
// that the transcode pipeline mutates. Jobs form a durable at-least-once
// queue: workers claim the oldest queued job, keep it alive with heartbeats,
// and stale claims are returned to the queue for redelivery.
//
// Schema changes bump schemaVersion in schema.go; the database is rejected
// with ErrSchemaMismatch until it is recreated.
package store
