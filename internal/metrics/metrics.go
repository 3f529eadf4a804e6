// Package metrics holds the Prometheus collectors recorded by the transcode
// pipeline and exposed by the worker daemon.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
	OutcomeMissing = "missing"
	OutcomePartial = "partial"
	OutcomeTimeout = "timeout"
)

var (
	// JobsTotal counts finished transcode jobs by outcome.
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoflix_jobs_total",
		Help: "Total number of transcode jobs processed, by outcome",
	}, []string{"outcome"})

	// EncodesTotal counts encoder invocations by profile and outcome.
	EncodesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoflix_encodes_total",
		Help: "Total number of encoder invocations, by profile and outcome",
	}, []string{"profile", "outcome"})

	// EncodeDuration measures wall time of each encoder invocation.
	EncodeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "videoflix_encode_duration_seconds",
		Help:    "Encoder invocation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~2.3h
	}, []string{"profile"})

	// RenditionsAttached counts renditions written to storage.
	RenditionsAttached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoflix_renditions_attached_total",
		Help: "Total number of renditions attached to assets, by profile",
	}, []string{"profile"})

	// CleanupRemovals counts per-file removal attempts on asset deletion.
	CleanupRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "videoflix_cleanup_removals_total",
		Help: "Total number of file removal attempts during asset cleanup, by outcome",
	}, []string{"outcome"})

	// DispatchFailures counts enqueue failures swallowed on asset creation.
	DispatchFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoflix_dispatch_failures_total",
		Help: "Total number of transcode jobs that could not be enqueued",
	})

	// ActiveJobs tracks jobs currently held by workers in this process.
	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "videoflix_active_jobs",
		Help: "Number of transcode jobs currently running in this process",
	})

	// StaleJobsReclaimed counts running jobs returned to the queue.
	StaleJobsReclaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "videoflix_stale_jobs_reclaimed_total",
		Help: "Total number of stale running jobs returned to the queue",
	})
)

// RecordEncode records one encoder invocation.
func RecordEncode(profile, outcome string, duration time.Duration) {
	EncodesTotal.WithLabelValues(profile, outcome).Inc()
	if outcome == OutcomeSuccess {
		EncodeDuration.WithLabelValues(profile).Observe(duration.Seconds())
	}
}

// RecordJob records a finished job.
func RecordJob(outcome string) {
	JobsTotal.WithLabelValues(outcome).Inc()
}

// RecordRendition records an attached rendition.
func RecordRendition(profile string) {
	RenditionsAttached.WithLabelValues(profile).Inc()
}

// RecordCleanup records one cleanup removal attempt.
func RecordCleanup(outcome string) {
	CleanupRemovals.WithLabelValues(outcome).Inc()
}

// TrackActiveJob adjusts the active job gauge.
func TrackActiveJob(inc bool) {
	if inc {
		ActiveJobs.Inc()
	} else {
		ActiveJobs.Dec()
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}
