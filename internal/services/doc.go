// Package services defines shared utilities consumed by the transcode pipeline
// and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp asset IDs, job IDs, profiles, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that classify failures so
//     the worker can persist a consistent job error and asset status.
//
// Use these helpers when wiring new pipeline logic so operational behaviour
// (error handling, observability) stays uniform.
package services
