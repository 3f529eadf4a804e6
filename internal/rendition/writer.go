// Package rendition attaches encoder output to an asset: it uploads the file
// under the profile namespace, records the key on the asset, and removes the
// local temporary file.
package rendition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"videoflix/internal/logging"
	"videoflix/internal/metrics"
	"videoflix/internal/services"
	"videoflix/internal/storage"
	"videoflix/internal/store"
)

const stageName = "rendition"

// ErrAttachFailed marks a rendition that could not be stored or recorded.
var ErrAttachFailed = errors.New("attach rendition failed")

// AssetUpdater persists a full asset record.
type AssetUpdater interface {
	UpdateAsset(ctx context.Context, asset *store.Asset) error
}

// Writer stores renditions. Calls for the same asset must be serialized by
// the caller.
type Writer struct {
	storage storage.Backend
	assets  AssetUpdater
	logger  *slog.Logger
}

// NewWriter constructs a Writer.
func NewWriter(backend storage.Backend, assets AssetUpdater, logger *slog.Logger) *Writer {
	return &Writer{
		storage: backend,
		assets:  assets,
		logger:  logging.NewComponentLogger(logger, "rendition"),
	}
}

// Attach uploads localPath as the profile rendition of asset and persists the
// record. The local file is removed whether or not the attach succeeds. On
// failure the asset's slot is restored and any uploaded object is removed.
func (w *Writer) Attach(ctx context.Context, asset *store.Asset, profile, localPath string) (string, error) {
	logger := logging.WithContext(ctx, w.logger).With(logging.String(logging.FieldProfile, profile))
	defer w.removeLocal(logger, localPath)

	slot, ok := asset.Renditions.Slot(profile)
	if !ok {
		return "", services.Wrap(
			services.ErrValidation,
			stageName,
			"resolve slot",
			fmt.Sprintf("Unknown rendition profile %q", profile),
			ErrAttachFailed,
		)
	}

	key := Key(asset.ID, profile, localPath)
	if err := storage.PutFile(ctx, w.storage, key, localPath); err != nil {
		return "", services.Wrap(
			services.ErrStorage,
			stageName,
			"put object",
			fmt.Sprintf("Failed to store %s", key),
			errors.Join(ErrAttachFailed, err),
		)
	}

	previous := *slot
	*slot = key
	if err := w.assets.UpdateAsset(ctx, asset); err != nil {
		*slot = previous
		w.discard(ctx, logger, key)
		marker := services.ErrStorage
		message := "Failed to record rendition on asset"
		if errors.Is(err, store.ErrNotFound) {
			marker = services.ErrNotFound
			message = "Asset was deleted while its rendition was being attached"
		}
		return "", services.Wrap(marker, stageName, "update asset", message, errors.Join(ErrAttachFailed, err))
	}

	metrics.RecordRendition(profile)
	logger.Info("rendition attached", logging.String("key", key))
	return key, nil
}

// Key names the stored object for a rendition. The asset id prefix keeps keys
// unique when different assets share a file stem.
func Key(assetID int64, profile, localPath string) string {
	return storage.Key(profile, strconv.FormatInt(assetID, 10)+"_"+filepath.Base(localPath))
}

func (w *Writer) removeLocal(logger *slog.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove local rendition",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldEventType, "rendition_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the file manually from the work area"),
		)
	}
}

func (w *Writer) discard(ctx context.Context, logger *slog.Logger, key string) {
	if err := w.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("failed to remove unattached rendition",
			logging.String("key", key),
			logging.Error(err),
			logging.String(logging.FieldEventType, "rendition_discard_failed"),
			logging.String(logging.FieldErrorHint, "delete the object from storage manually"),
		)
	}
}
