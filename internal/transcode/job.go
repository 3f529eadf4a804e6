package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"videoflix/internal/config"
	"videoflix/internal/encoder"
	"videoflix/internal/fileutil"
	"videoflix/internal/logging"
	"videoflix/internal/metrics"
	"videoflix/internal/services"
	"videoflix/internal/storage"
	"videoflix/internal/store"
	"videoflix/internal/tagging"
)

// AssetStore loads and persists asset records.
type AssetStore interface {
	GetAsset(ctx context.Context, id int64) (*store.Asset, error)
	UpdateAsset(ctx context.Context, asset *store.Asset) error
}

// Encoder produces one rendition file from a local source.
type Encoder interface {
	Encode(ctx context.Context, source, outDir string, profile config.Profile) (string, error)
	OutputPath(outDir, source, profile string) string
}

// Attacher stores an encoded file as the profile rendition of an asset.
type Attacher interface {
	Attach(ctx context.Context, asset *store.Asset, profile, localPath string) (string, error)
}

// StageFunc is notified on every state transition.
type StageFunc func(ctx context.Context, state State, profile string)

// Request identifies the asset a queued job refers to.
type Request struct {
	JobID        int64
	AssetID      int64
	OriginalPath string
}

// Result summarises a finished run.
type Result struct {
	State         State
	FailedProfile string
	Attached      []string
	Skipped       []string
	Category      string
	NoOp          bool
	AssetStatus   store.AssetStatus
	Err           error
}

// Runner executes transcode jobs. It is safe for concurrent use across
// different assets.
type Runner struct {
	profiles []config.Profile
	parallel bool
	workDir  string
	assets   AssetStore
	storage  storage.Backend
	encoder  Encoder
	writer   Attacher
	tagger   *tagging.Tagger
	logger   *slog.Logger
	onStage  StageFunc
}

// Option configures optional Runner behavior.
type Option func(*Runner)

// WithStageFunc registers a transition observer.
func WithStageFunc(fn StageFunc) Option {
	return func(r *Runner) { r.onStage = fn }
}

// NewRunner wires a Runner from its collaborators.
func NewRunner(cfg *config.Config, assets AssetStore, backend storage.Backend, enc Encoder, writer Attacher, tagger *tagging.Tagger, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		profiles: append([]config.Profile(nil), cfg.Profiles...),
		parallel: cfg.Workflow.ParallelProfiles,
		workDir:  cfg.Paths.WorkDir,
		assets:   assets,
		storage:  backend,
		encoder:  enc,
		writer:   writer,
		tagger:   tagger,
		logger:   logging.NewComponentLogger(logger, "transcode"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Token builds the idempotency token for an asset and original digest.
func Token(assetID int64, digest string) string {
	return strconv.FormatInt(assetID, 10) + ":" + digest
}

// Run executes the pipeline for req and never returns an error directly.
func (r *Runner) Run(ctx context.Context, req Request) (result Result) {
	ctx = services.WithAssetID(ctx, req.AssetID)
	if req.JobID != 0 {
		ctx = services.WithJobID(ctx, req.JobID)
	}
	logger := logging.WithContext(ctx, r.logger)

	defer func() {
		if rec := recover(); rec != nil {
			result = Result{
				State: StateFailed,
				Err:   services.Wrap(services.ErrTransient, "transcode", "run", "Pipeline panicked", fmt.Errorf("%v", rec)),
			}
			logging.ErrorWithContext(logger, "transcode job panicked", "transcode_panic", logging.Any("panic", rec))
		}
	}()

	r.transition(ctx, StatePending, "")
	result = r.run(ctx, logger, req)
	if result.Err != nil {
		details := services.Details(result.Err)
		logging.ErrorWithContext(logger, "transcode job failed", "transcode_failed",
			logging.String(logging.FieldProfile, result.FailedProfile),
			logging.String(logging.FieldErrorKind, string(details.Kind)),
			logging.String("reason", details.Message),
			logging.String(logging.FieldErrorHint, "inspect the asset and run videoflix requeue"),
		)
	}
	return result
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, req Request) Result {
	asset, err := r.assets.GetAsset(ctx, req.AssetID)
	if err != nil {
		return failed(services.Wrap(services.ErrNotFound, "transcode", "load asset", "Asset is no longer available", err))
	}
	if asset.Status == store.AssetDone {
		logger.Info("asset already transcoded; ignoring redelivered job")
		return Result{State: StateDone, NoOp: true, AssetStatus: asset.Status, Category: asset.Category}
	}
	if asset.OriginalPath == "" {
		return failed(services.Wrap(services.ErrValidation, "transcode", "load asset", "Asset has no original to transcode", nil))
	}
	if req.OriginalPath != "" && req.OriginalPath != asset.OriginalPath {
		logger.Warn("job original differs from asset; using asset record",
			logging.String("job_original", req.OriginalPath),
			logging.String("asset_original", asset.OriginalPath),
		)
	}

	source, release, err := storage.Materialize(ctx, r.storage, asset.OriginalPath, r.workDir)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			err = errors.Join(encoder.ErrSourceMissing, err)
		}
		return r.fail(ctx, logger, asset, "", services.Wrap(services.ErrStorage, "transcode", "fetch original", "Unable to read original", err))
	}
	defer release()

	scratch, err := r.scratchDir(asset.ID)
	if err != nil {
		return r.fail(ctx, logger, asset, "", services.Wrap(services.ErrStorage, "transcode", "create scratch", "Unable to create encoder scratch directory", err))
	}
	defer r.removeScratch(logger, scratch)

	digest, err := fileutil.HashFile(source)
	if err != nil {
		return r.fail(ctx, logger, asset, "", services.Wrap(services.ErrStorage, "transcode", "hash original", "Unable to hash original", err))
	}
	token := Token(asset.ID, digest)
	resume := asset.ProcessingToken == token
	if !resume && asset.Renditions.Count() > 0 {
		logger.Warn("original changed since renditions were written; re-encoding all profiles",
			logging.String("previous_token", asset.ProcessingToken),
		)
	}
	asset.ProcessingToken = token
	asset.Status = store.AssetProcessing
	asset.ErrorMessage = ""
	if err := r.assets.UpdateAsset(ctx, asset); err != nil {
		return failed(services.Wrap(services.ErrStorage, "transcode", "mark processing", "Unable to update asset", err))
	}

	var (
		pending []config.Profile
		skipped []string
	)
	for _, profile := range r.profiles {
		if resume && asset.Renditions.Get(profile.Name) != "" {
			skipped = append(skipped, profile.Name)
			metrics.RecordEncode(profile.Name, metrics.OutcomeSkipped, 0)
			continue
		}
		pending = append(pending, profile)
	}
	if len(skipped) > 0 {
		logger.Info("skipping renditions already attached", logging.Strings("profiles", skipped))
	}

	attached, failedProfile, err := r.encodeAll(ctx, asset, source, scratch, pending)
	if err != nil {
		res := r.fail(ctx, logger, asset, failedProfile, err)
		res.Attached = attached
		res.Skipped = skipped
		return res
	}

	r.transition(ctx, StateTagging, "")
	category := r.tag(logger, asset)

	r.transition(ctx, StateFinalizing, "")
	if err := r.storage.Delete(ctx, asset.OriginalPath); err != nil && !errors.Is(err, storage.ErrNotFound) {
		res := r.fail(ctx, logger, asset, "", services.Wrap(services.ErrStorage, "transcode", "delete original", "Unable to delete original", err))
		res.Attached = attached
		res.Skipped = skipped
		return res
	}
	asset.OriginalPath = ""
	asset.Status = store.AssetDone
	asset.ErrorMessage = ""
	if err := r.assets.UpdateAsset(ctx, asset); err != nil {
		return Result{
			State:    StateFailed,
			Attached: attached,
			Skipped:  skipped,
			Err:      services.Wrap(services.ErrStorage, "transcode", "persist asset", "Unable to persist finished asset", err),
		}
	}

	r.transition(ctx, StateDone, "")
	logger.Info("transcode job completed",
		logging.Strings("attached", attached),
		logging.Int("skipped", len(skipped)),
		logging.String("category", category),
	)
	return Result{
		State:       StateDone,
		Attached:    attached,
		Skipped:     skipped,
		Category:    category,
		AssetStatus: store.AssetDone,
	}
}

// encodeAll encodes pending profiles in order, or concurrently when parallel
// encoding is enabled. Attaches are serialized because they share asset.
func (r *Runner) encodeAll(ctx context.Context, asset *store.Asset, source, scratch string, pending []config.Profile) ([]string, string, error) {
	var (
		mu            sync.Mutex
		attached      []string
		failedProfile string
	)
	render := func(ctx context.Context, profile config.Profile) error {
		key, err := r.renderProfile(ctx, asset, &mu, source, scratch, profile)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			if failedProfile == "" {
				failedProfile = profile.Name
			}
			return err
		}
		attached = append(attached, key)
		return nil
	}

	if !r.parallel || len(pending) < 2 {
		for _, profile := range pending {
			if err := render(ctx, profile); err != nil {
				return attached, failedProfile, err
			}
		}
		return attached, "", nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, profile := range pending {
		g.Go(func() error { return render(gctx, profile) })
	}
	err := g.Wait()
	return attached, failedProfile, err
}

func (r *Runner) renderProfile(ctx context.Context, asset *store.Asset, mu *sync.Mutex, source, scratch string, profile config.Profile) (string, error) {
	ctx = services.WithProfile(ctx, profile.Name)
	r.transition(ctx, StateEncoding, profile.Name)

	start := time.Now()
	output, err := r.encoder.Encode(ctx, source, scratch, profile)
	if err != nil {
		outcome := metrics.OutcomeFailure
		if services.Kind(err) == services.KindTimeout {
			outcome = metrics.OutcomeTimeout
		}
		metrics.RecordEncode(profile.Name, outcome, time.Since(start))
		r.discardPartial(ctx, r.encoder.OutputPath(scratch, source, profile.Name))
		return "", err
	}
	metrics.RecordEncode(profile.Name, metrics.OutcomeSuccess, time.Since(start))

	mu.Lock()
	defer mu.Unlock()
	return r.writer.Attach(ctx, asset, profile.Name, output)
}

func (r *Runner) tag(logger *slog.Logger, asset *store.Asset) string {
	category, ok := r.tagger.Match(asset.Thumbnail)
	if !ok {
		logger.Info("no category matched thumbnail", logging.String("thumbnail", asset.Thumbnail))
		return ""
	}
	asset.Category = category
	logger.Info("category assigned", logging.String("category", category))
	return category
}

// fail records the terminal failure on the asset. Renditions already attached
// stay in place. An interrupted run leaves the asset processing, matching the
// running job that is requeued on the next start.
func (r *Runner) fail(ctx context.Context, logger *slog.Logger, asset *store.Asset, profile string, cause error) Result {
	r.transition(ctx, StateFailed, profile)
	if ctx.Err() != nil {
		logger.Info("transcode interrupted; leaving asset for redelivery",
			logging.String(logging.FieldProfile, profile),
			logging.String("reason", services.Details(cause).Message),
		)
		return Result{State: StateFailed, FailedProfile: profile, AssetStatus: asset.Status, Err: cause}
	}
	status := store.AssetFailed
	if asset.Renditions.Count() > 0 {
		status = store.AssetPartial
	}
	asset.Status = status
	asset.ErrorMessage = services.Details(cause).Message
	if err := r.assets.UpdateAsset(ctx, asset); err != nil {
		logger.Warn("failed to record asset failure",
			logging.Error(err),
			logging.String(logging.FieldEventType, "asset_status_update_failed"),
			logging.String(logging.FieldErrorHint, "the asset may have been deleted"),
		)
	}
	return Result{State: StateFailed, FailedProfile: profile, AssetStatus: status, Err: cause}
}

// scratchDir creates the per-job directory under the work dir that receives
// encoder output.
func (r *Runner) scratchDir(assetID int64) (string, error) {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(r.workDir, fmt.Sprintf("asset-%d-encode-*", assetID))
}

func (r *Runner) removeScratch(logger *slog.Logger, dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("failed to remove encoder scratch directory",
			logging.String("path", dir),
			logging.Error(err),
			logging.String(logging.FieldEventType, "scratch_cleanup_failed"),
			logging.String(logging.FieldErrorHint, "remove the directory from the work dir manually"),
		)
	}
}

func (r *Runner) discardPartial(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.WithContext(ctx, r.logger).Debug("failed to remove partial encoder output",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

func (r *Runner) transition(ctx context.Context, state State, profile string) {
	if r.onStage != nil {
		r.onStage(ctx, state, profile)
	}
}

func failed(err error) Result {
	return Result{State: StateFailed, Err: err}
}
