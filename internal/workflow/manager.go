package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"videoflix/internal/config"
	"videoflix/internal/logging"
	"videoflix/internal/services"
	"videoflix/internal/store"
	"videoflix/internal/transcode"
)

// Queue is the job table surface used by workers.
type Queue interface {
	Claim(ctx context.Context, worker string) (*store.Job, error)
	UpdateHeartbeat(ctx context.Context, id int64) error
	SetJobStage(ctx context.Context, id int64, stage string) error
	CompleteJob(ctx context.Context, id int64) error
	FailJob(ctx context.Context, id int64, message string) error
	ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error)
	ReclaimWorkerJobs(ctx context.Context, worker string) (int64, error)
	JobStats(ctx context.Context) (map[store.JobStatus]int, error)
}

// JobRunner executes one transcode job.
type JobRunner interface {
	Run(ctx context.Context, req transcode.Request) transcode.Result
}

// Manager coordinates the worker pool.
type Manager struct {
	cfg           *config.Config
	queue         Queue
	runner        JobRunner
	logger        *slog.Logger
	name          string
	workers       int
	pollInterval  time.Duration
	retryInterval time.Duration

	heartbeat *HeartbeatMonitor

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
	lastJob   *store.Job
	processed int
	failed    int
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithPollInterval overrides the idle wait between queue polls.
func WithPollInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.pollInterval = d }
}

// WithWorkerName sets the prefix used for worker names.
func WithWorkerName(name string) ManagerOption {
	return func(m *Manager) { m.name = name }
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, queue Queue, runner JobRunner, logger *slog.Logger, opts ...ManagerOption) *Manager {
	logger = logging.NewComponentLogger(logger, "workflow")
	m := &Manager{
		cfg:           cfg,
		queue:         queue,
		runner:        runner,
		logger:        logger,
		name:          "worker",
		workers:       max(cfg.Workflow.Workers, 1),
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeat: NewHeartbeatMonitor(
			queue,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name returns the worker name prefix.
func (m *Manager) Name() string {
	return m.name
}

// WorkerNames lists the names claimed jobs are recorded under.
func (m *Manager) WorkerNames() []string {
	names := make([]string, 0, m.workers)
	for i := 1; i <= m.workers; i++ {
		names = append(names, fmt.Sprintf("%s-%d", m.name, i))
	}
	return names
}

// StageRecorder returns a transcode.StageFunc that writes each transition to
// the job row identified by the context.
func StageRecorder(queue Queue, logger *slog.Logger) transcode.StageFunc {
	return func(ctx context.Context, state transcode.State, profile string) {
		jobID, ok := services.JobIDFromContext(ctx)
		if !ok {
			return
		}
		if err := queue.SetJobStage(ctx, jobID, transcode.StageLabel(state, profile)); err != nil {
			logging.WithContext(ctx, logger).Debug("failed to record job stage", logging.Error(err))
		}
	}
}
