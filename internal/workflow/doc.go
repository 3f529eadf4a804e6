// Package workflow runs the transcode worker pool.
//
// The Manager starts a fixed number of workers. Each worker reclaims stale
// running jobs, claims the oldest queued job, keeps its heartbeat fresh while
// the transcode pipeline runs, and records the outcome on the job row. Jobs
// interrupted by shutdown are left running and requeued the next time a
// worker with the same name starts, which gives the queue its at-least-once
// delivery.
package workflow
