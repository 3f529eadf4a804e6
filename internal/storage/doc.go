// Package storage persists media artifacts (originals, renditions, thumbnails)
// under namespaced keys such as "originals/a.mp4" or "720p/a_720p.mp4".
//
// Two backends are provided: a local filesystem tree and a Google Cloud
// Storage bucket. Pipeline code depends only on the Backend interface and uses
// Materialize to obtain a local path for the encoder regardless of where the
// original lives.
package storage
