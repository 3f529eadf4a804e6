package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"videoflix/internal/cleanup"
	"videoflix/internal/logging"
	"videoflix/internal/services"
	"videoflix/internal/storage"
	"videoflix/internal/store"
	"videoflix/internal/tagging"
	"videoflix/internal/textutil"
)

const stageName = "library"

// SupportedContainers lists the source extensions accepted at ingestion.
var SupportedContainers = []string{".mp4", ".mkv", ".mov", ".avi", ".webm"}

// Store is the persistence surface used by the service.
type Store interface {
	CreateAsset(ctx context.Context, in store.NewAsset) (*store.Asset, error)
	GetAsset(ctx context.Context, id int64) (*store.Asset, error)
	UpdateMetadata(ctx context.Context, id int64, title, description string) (*store.Asset, error)
	DeleteAsset(ctx context.Context, id int64) (*store.Asset, error)
	ListAssets(ctx context.Context, filter store.AssetFilter) ([]*store.Asset, error)
	SetCategory(ctx context.Context, id int64, category string) error
	Enqueue(ctx context.Context, assetID int64, originalPath string) (*store.Job, error)
	JobsForAsset(ctx context.Context, assetID int64) ([]*store.Job, error)
}

// Dispatcher is notified once per created asset.
type Dispatcher interface {
	AssetCreated(ctx context.Context, asset *store.Asset) *store.Job
}

// Cleaner removes the files of a deleted asset.
type Cleaner interface {
	Run(ctx context.Context, snap cleanup.Snapshot) cleanup.Result
}

// Service coordinates asset lifecycle operations.
type Service struct {
	store      Store
	storage    storage.Backend
	dispatcher Dispatcher
	cleaner    Cleaner
	tagger     *tagging.Tagger
	logger     *slog.Logger
	suffix     func() string
}

// New constructs a Service.
func New(st Store, backend storage.Backend, dispatcher Dispatcher, cleaner Cleaner, tagger *tagging.Tagger, logger *slog.Logger) *Service {
	return &Service{
		store:      st,
		storage:    backend,
		dispatcher: dispatcher,
		cleaner:    cleaner,
		tagger:     tagger,
		logger:     logging.NewComponentLogger(logger, "library"),
		suffix:     func() string { return uuid.NewString()[:8] },
	}
}

// CreateInput describes a new upload.
type CreateInput struct {
	Title         string
	Description   string
	SourcePath    string
	ThumbnailPath string
}

// Created reports the stored asset and the dispatched job, which is nil when
// enqueueing failed.
type Created struct {
	Asset *store.Asset
	Job   *store.Job
}

// Create stores the upload, records the asset, and dispatches one job.
func (s *Service) Create(ctx context.Context, in CreateInput) (Created, error) {
	source := strings.TrimSpace(in.SourcePath)
	if err := ValidateContainer(source); err != nil {
		return Created{}, err
	}
	if info, err := os.Stat(source); err != nil || info.IsDir() {
		return Created{}, services.Wrap(services.ErrValidation, stageName, "stat source", fmt.Sprintf("Source %q is not a readable file", source), err)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = TitleFromFilename(source)
	}

	originalKey, err := s.putUnique(ctx, storage.NamespaceOriginals, source)
	if err != nil {
		return Created{}, err
	}
	stored := []string{originalKey}

	thumbnailKey := ""
	if thumb := strings.TrimSpace(in.ThumbnailPath); thumb != "" {
		thumbnailKey, err = s.putUnique(ctx, storage.NamespaceThumbnails, thumb)
		if err != nil {
			s.discard(ctx, stored...)
			return Created{}, err
		}
		stored = append(stored, thumbnailKey)
	}

	asset, err := s.store.CreateAsset(ctx, store.NewAsset{
		Title:        title,
		Description:  in.Description,
		OriginalPath: originalKey,
		Thumbnail:    thumbnailKey,
	})
	if err != nil {
		s.discard(ctx, stored...)
		return Created{}, services.Wrap(services.ErrStorage, stageName, "create asset", "Unable to record asset", err)
	}

	s.logger.Info("asset created",
		logging.Int64(logging.FieldAssetID, asset.ID),
		logging.String("title", asset.Title),
		logging.String("original", originalKey),
		logging.String("thumbnail", thumbnailKey),
	)
	job := s.dispatcher.AssetCreated(ctx, asset)
	return Created{Asset: asset, Job: job}, nil
}

// UpdateMetadata edits title and description. It never dispatches a job.
func (s *Service) UpdateMetadata(ctx context.Context, id int64, title, description string) (*store.Asset, error) {
	asset, err := s.store.UpdateMetadata(ctx, id, title, description)
	if err != nil {
		return nil, wrapStoreErr("update metadata", id, err)
	}
	s.logger.Info("asset metadata updated", logging.Int64(logging.FieldAssetID, id))
	return asset, nil
}

// Delete removes the asset row and then every file it referenced.
func (s *Service) Delete(ctx context.Context, id int64) (cleanup.Result, error) {
	snapshot, err := s.store.DeleteAsset(ctx, id)
	if err != nil {
		return cleanup.Result{}, wrapStoreErr("delete asset", id, err)
	}
	s.logger.Info("asset deleted", logging.Int64(logging.FieldAssetID, id))
	return s.cleaner.Run(ctx, cleanup.SnapshotOf(snapshot)), nil
}

// RetagSummary counts the outcome of a re-tagging pass.
type RetagSummary struct {
	Total     int
	Tagged    int
	Unmatched int
	Changed   int
}

// RetagAll runs the category tagger over every asset. Assets without a match
// keep their current category.
func (s *Service) RetagAll(ctx context.Context) (RetagSummary, error) {
	assets, err := s.store.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return RetagSummary{}, services.Wrap(services.ErrStorage, stageName, "list assets", "Unable to list assets", err)
	}
	summary := RetagSummary{Total: len(assets)}
	for _, asset := range assets {
		category, ok := s.tagger.Match(asset.Thumbnail)
		if !ok {
			summary.Unmatched++
			s.logger.Info("no category matched thumbnail",
				logging.Int64(logging.FieldAssetID, asset.ID),
				logging.String("thumbnail", asset.Thumbnail),
			)
			continue
		}
		summary.Tagged++
		if category == asset.Category {
			continue
		}
		if err := s.store.SetCategory(ctx, asset.ID, category); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return summary, wrapStoreErr("set category", asset.ID, err)
		}
		summary.Changed++
	}
	return summary, nil
}

// Requeue enqueues a fresh job for assets that still hold an original and
// have not finished. With no ids every eligible asset is considered. Assets
// that already have a queued or running job are left alone.
func (s *Service) Requeue(ctx context.Context, ids ...int64) ([]*store.Job, error) {
	var candidates []*store.Asset
	if len(ids) == 0 {
		assets, err := s.store.ListAssets(ctx, store.AssetFilter{
			Statuses: []store.AssetStatus{store.AssetPending, store.AssetFailed, store.AssetPartial},
		})
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, stageName, "list assets", "Unable to list assets", err)
		}
		candidates = assets
	} else {
		for _, id := range ids {
			asset, err := s.store.GetAsset(ctx, id)
			if err != nil {
				return nil, wrapStoreErr("get asset", id, err)
			}
			candidates = append(candidates, asset)
		}
	}

	var jobs []*store.Job
	for _, asset := range candidates {
		logger := s.logger.With(logging.Int64(logging.FieldAssetID, asset.ID))
		if !requeueable(asset) {
			logger.Info("asset not eligible for requeue", logging.String("status", string(asset.Status)))
			continue
		}
		active, err := s.hasActiveJob(ctx, asset.ID)
		if err != nil {
			return jobs, err
		}
		if active {
			logger.Info("asset already has an active job")
			continue
		}
		job, err := s.store.Enqueue(ctx, asset.ID, asset.OriginalPath)
		if err != nil {
			return jobs, services.Wrap(services.ErrStorage, stageName, "enqueue", "Unable to enqueue job", err)
		}
		logger.Info("transcode job requeued", logging.Int64(logging.FieldJobID, job.ID))
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func requeueable(asset *store.Asset) bool {
	if asset.OriginalPath == "" {
		return false
	}
	switch asset.Status {
	case store.AssetPending, store.AssetFailed, store.AssetPartial:
		return true
	default:
		return false
	}
}

func (s *Service) hasActiveJob(ctx context.Context, assetID int64) (bool, error) {
	jobs, err := s.store.JobsForAsset(ctx, assetID)
	if err != nil {
		return false, services.Wrap(services.ErrStorage, stageName, "list jobs", "Unable to list jobs", err)
	}
	for _, job := range jobs {
		if job.Status == store.JobQueued || job.Status == store.JobRunning {
			return true, nil
		}
	}
	return false, nil
}

// ValidateContainer rejects sources that are not a recognised media
// container.
func ValidateContainer(path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, stageName, "validate source", "Source path is required", nil)
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(SupportedContainers, ext) {
		return services.Wrap(
			services.ErrValidation,
			stageName,
			"validate source",
			fmt.Sprintf("Unsupported container %q (supported: %s)", ext, strings.Join(SupportedContainers, " ")),
			nil,
		)
	}
	return nil
}

// TitleFromFilename derives a display title from a file name:
// "majestic_whales.mp4" becomes "Majestic Whales".
func TitleFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(stem))
	if len(words) == 0 {
		return base
	}
	return cases.Title(language.English).String(strings.Join(words, " "))
}

// putUnique uploads src under namespace, adding a short random suffix when
// the plain key is taken.
func (s *Service) putUnique(ctx context.Context, namespace, src string) (string, error) {
	name := textutil.SanitizeFileName(filepath.Base(src))
	key := storage.Key(namespace, name)
	for attempt := 0; ; attempt++ {
		exists, err := s.storage.Exists(ctx, key)
		if err != nil {
			return "", services.Wrap(services.ErrStorage, stageName, "check key", "Unable to check storage", err)
		}
		if !exists {
			break
		}
		if attempt >= 5 {
			return "", services.Wrap(services.ErrStorage, stageName, "allocate key", fmt.Sprintf("No free key for %s", src), nil)
		}
		ext := filepath.Ext(name)
		key = storage.Key(namespace, strings.TrimSuffix(name, ext)+"_"+s.suffix()+ext)
	}
	if err := storage.PutFile(ctx, s.storage, key, src); err != nil {
		return "", services.Wrap(services.ErrStorage, stageName, "put object", fmt.Sprintf("Unable to store %s", src), err)
	}
	return key, nil
}

func (s *Service) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to remove stored upload",
				logging.String("key", key),
				logging.Error(err),
				logging.String(logging.FieldEventType, "upload_discard_failed"),
				logging.String(logging.FieldErrorHint, "delete the object from storage manually"),
			)
		}
	}
}

func wrapStoreErr(operation string, id int64, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return services.Wrap(services.ErrNotFound, stageName, operation, fmt.Sprintf("Asset %d not found", id), err)
	}
	return services.Wrap(services.ErrStorage, stageName, operation, fmt.Sprintf("Asset %d", id), err)
}
