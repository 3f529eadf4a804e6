// Package dispatch enqueues a transcode job when an asset is created.
package dispatch

import (
	"context"
	"log/slog"

	"videoflix/internal/logging"
	"videoflix/internal/metrics"
	"videoflix/internal/services"
	"videoflix/internal/store"
)

// Enqueuer appends a job to the durable work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, assetID int64, originalPath string) (*store.Job, error)
}

// Dispatcher reacts to asset creation. Metadata edits must not be routed
// through it.
type Dispatcher struct {
	queue  Enqueuer
	logger *slog.Logger
}

// New constructs a Dispatcher.
func New(queue Enqueuer, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{queue: queue, logger: logging.NewComponentLogger(logger, "dispatch")}
}

// AssetCreated enqueues exactly one job for a newly created asset and returns
// it. Enqueue failures are logged and swallowed: the asset stays in place
// without a job and nil is returned.
func (d *Dispatcher) AssetCreated(ctx context.Context, asset *store.Asset) *store.Job {
	if asset == nil {
		return nil
	}
	logger := d.logger.With(logging.Int64(logging.FieldAssetID, asset.ID))
	if asset.OriginalPath == "" {
		logging.WarnWithContext(logger, "asset has no original; nothing to transcode", "dispatch_skipped",
			logging.String(logging.FieldErrorHint, "re-ingest the asset with a source file"),
		)
		return nil
	}

	job, err := d.queue.Enqueue(ctx, asset.ID, asset.OriginalPath)
	if err != nil {
		metrics.DispatchFailures.Inc()
		details := services.Details(err)
		logging.ErrorWithContext(logger, "failed to enqueue transcode job", "dispatch_failed",
			logging.String("original", asset.OriginalPath),
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run videoflix requeue once the queue is available"),
		)
		return nil
	}
	logger.Info("transcode job enqueued", logging.Int64(logging.FieldJobID, job.ID))
	return job
}
