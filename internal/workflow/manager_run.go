package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"videoflix/internal/logging"
	"videoflix/internal/metrics"
	"videoflix/internal/services"
	"videoflix/internal/store"
	"videoflix/internal/transcode"
)

// Start requeues jobs abandoned by a previous run of these workers and begins
// background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	m.running = true
	m.mu.Unlock()

	names := m.WorkerNames()
	for _, name := range names {
		reclaimed, err := m.queue.ReclaimWorkerJobs(ctx, name)
		if err != nil {
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return err
		}
		if reclaimed > 0 {
			m.logger.Info("requeued jobs abandoned by previous run",
				logging.String(logging.FieldWorker, name),
				logging.Int64("count", reclaimed),
			)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	for _, name := range names {
		g.Go(func() error {
			m.runWorker(gctx, name)
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	m.mu.Lock()
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.logger.Info("workflow started", logging.Int("workers", len(names)))
	return nil
}

// Stop terminates background processing and waits for completion.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.done
	m.running = false
	m.cancel = nil
	m.done = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("workflow stopped")
}

func (m *Manager) runWorker(ctx context.Context, name string) {
	logger := m.logger.With(logging.String(logging.FieldWorker, name))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := m.heartbeat.ReclaimStale(ctx, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("reclaim stale jobs failed; stuck jobs may remain",
				logging.Error(err),
				logging.String(logging.FieldEventType, "heartbeat_reclaim_failed"),
				logging.String(logging.FieldErrorHint, "check database access"),
			)
		}

		job, err := m.queue.Claim(ctx, name)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleClaimError(ctx, logger, err)
			continue
		}
		if job == nil {
			m.wait(ctx, m.pollInterval)
			continue
		}

		m.processJob(ctx, logger, name, job)
	}
}

func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, worker string, job *store.Job) {
	metrics.TrackActiveJob(true)
	defer metrics.TrackActiveJob(false)

	jobCtx := services.WithWorker(ctx, worker)
	jobCtx = services.WithAssetID(jobCtx, job.AssetID)
	jobCtx = services.WithJobID(jobCtx, job.ID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	jobLogger := logging.WithContext(jobCtx, m.logger)

	jobLogger.Info("job claimed",
		logging.Int("attempt", job.Attempts),
		logging.String("original", job.OriginalPath),
		logging.String(logging.FieldEventType, "job_start"),
	)

	hbCtx, hbCancel := context.WithCancel(jobCtx)
	var wg sync.WaitGroup
	wg.Add(1)
	go m.heartbeat.StartLoop(hbCtx, &wg, job.ID)

	start := time.Now()
	result := m.runner.Run(jobCtx, transcode.Request{
		JobID:        job.ID,
		AssetID:      job.AssetID,
		OriginalPath: job.OriginalPath,
	})
	hbCancel()
	wg.Wait()

	if ctx.Err() != nil && result.State != transcode.StateDone {
		// Left running; the next Start requeues it.
		jobLogger.Info("shutdown interrupted job; it will be requeued on restart")
		return
	}
	m.recordOutcome(context.WithoutCancel(jobCtx), jobLogger, job, result, time.Since(start))
}

func (m *Manager) recordOutcome(ctx context.Context, logger *slog.Logger, job *store.Job, result transcode.Result, elapsed time.Duration) {
	if result.State == transcode.StateDone {
		outcome := metrics.OutcomeSuccess
		if result.NoOp {
			outcome = metrics.OutcomeSkipped
		}
		metrics.RecordJob(outcome)
		if err := m.queue.CompleteJob(ctx, job.ID); err != nil {
			logger.Error("failed to mark job succeeded", logging.Error(err))
			m.setLastError(err)
		}
		logger.Info("job succeeded",
			logging.Duration("elapsed", elapsed),
			logging.Bool("redelivery", result.NoOp),
			logging.String(logging.FieldEventType, "job_complete"),
		)
		m.finish(job, false, nil)
		return
	}

	outcome := metrics.OutcomeFailure
	if result.AssetStatus == store.AssetPartial {
		outcome = metrics.OutcomePartial
	}
	metrics.RecordJob(outcome)

	message := services.Details(result.Err).Message
	if message == "" {
		message = "transcode job failed"
	}
	if err := m.queue.FailJob(ctx, job.ID, message); err != nil && !errors.Is(err, store.ErrNotFound) {
		logger.Error("failed to mark job failed", logging.Error(err))
	}
	logger.Warn("job failed",
		logging.Duration("elapsed", elapsed),
		logging.String("asset_status", string(result.AssetStatus)),
		logging.String("reason", message),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String(logging.FieldErrorHint, "run videoflix requeue after fixing the cause"),
	)
	m.finish(job, true, result.Err)
}

func (m *Manager) handleClaimError(ctx context.Context, logger *slog.Logger, err error) {
	m.setLastError(err)
	logger.Error("failed to claim next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check database access"),
	)
	m.wait(ctx, m.retryInterval)
}

func (m *Manager) wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = 10 * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
