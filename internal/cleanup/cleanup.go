// Package cleanup removes every stored file belonging to a deleted asset.
//
// Removal works from a Snapshot taken before the asset row is deleted, since
// the record no longer exists when cleanup runs. Each file is an isolated
// best-effort step: a missing file is skipped and a failed removal is logged
// without stopping the remaining ones.
package cleanup

import (
	"context"
	"errors"
	"log/slog"

	"videoflix/internal/logging"
	"videoflix/internal/metrics"
	"videoflix/internal/storage"
	"videoflix/internal/store"
)

// Snapshot carries the file references of a deleted asset.
type Snapshot struct {
	AssetID    int64
	Original   string
	Renditions store.Renditions
	Thumbnail  string
}

// SnapshotOf copies the file references from asset.
func SnapshotOf(asset *store.Asset) Snapshot {
	if asset == nil {
		return Snapshot{}
	}
	return Snapshot{
		AssetID:    asset.ID,
		Original:   asset.OriginalPath,
		Renditions: asset.Renditions,
		Thumbnail:  asset.Thumbnail,
	}
}

// Keys lists every populated reference: original, renditions, thumbnail.
func (s Snapshot) Keys() []string {
	var keys []string
	if s.Original != "" {
		keys = append(keys, s.Original)
	}
	keys = append(keys, s.Renditions.Keys()...)
	if s.Thumbnail != "" {
		keys = append(keys, s.Thumbnail)
	}
	return keys
}

// Result reports what happened to each key.
type Result struct {
	Removed []string
	Missing []string
	Failed  []string
}

// Handler deletes snapshot files from storage.
type Handler struct {
	storage storage.Backend
	logger  *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(backend storage.Backend, logger *slog.Logger) *Handler {
	return &Handler{storage: backend, logger: logging.NewComponentLogger(logger, "cleanup")}
}

// Run attempts removal of every file in snap. It never fails; problems are
// reported in the Result and the log.
func (h *Handler) Run(ctx context.Context, snap Snapshot) Result {
	logger := h.logger.With(logging.Int64(logging.FieldAssetID, snap.AssetID))
	var result Result
	for _, key := range snap.Keys() {
		switch outcome := h.remove(ctx, logger, key); outcome {
		case metrics.OutcomeSuccess:
			result.Removed = append(result.Removed, key)
		case metrics.OutcomeMissing:
			result.Missing = append(result.Missing, key)
		default:
			result.Failed = append(result.Failed, key)
		}
	}
	logger.Info("asset files cleaned up",
		logging.Int("removed", len(result.Removed)),
		logging.Int("missing", len(result.Missing)),
		logging.Int("failed", len(result.Failed)),
	)
	return result
}

func (h *Handler) remove(ctx context.Context, logger *slog.Logger, key string) (outcome string) {
	defer func() { metrics.RecordCleanup(outcome) }()

	exists, err := h.storage.Exists(ctx, key)
	if err != nil {
		h.warn(logger, key, "check", err)
		return metrics.OutcomeFailure
	}
	if !exists {
		logger.Debug("asset file already absent", logging.String("key", key))
		return metrics.OutcomeMissing
	}
	if err := h.storage.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return metrics.OutcomeMissing
		}
		h.warn(logger, key, "delete", err)
		return metrics.OutcomeFailure
	}
	logger.Debug("asset file removed", logging.String("key", key))
	return metrics.OutcomeSuccess
}

func (h *Handler) warn(logger *slog.Logger, key, op string, err error) {
	logging.WarnWithContext(logger, "failed to remove asset file", "cleanup_remove_failed",
		logging.String("key", key),
		logging.String("operation", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "delete the object from storage manually"),
	)
}
