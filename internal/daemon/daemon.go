package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"videoflix/internal/config"
	"videoflix/internal/logging"
	"videoflix/internal/metrics"
	"videoflix/internal/preflight"
	"videoflix/internal/staging"
	"videoflix/internal/storage"
	"videoflix/internal/textutil"
	"videoflix/internal/workflow"
)

// Daemon coordinates the background workers and enforces single-instance
// execution per worker name.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	backend  storage.Backend
	workflow *workflow.Manager

	lockPath string
	lock     *flock.Flock

	metricsServer *http.Server
	metricsAddr   string

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	DatabasePath string
	LockFilePath string
	MetricsAddr  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, backend storage.Backend, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, fmt.Sprintf("worker-%s.lock", textutil.SanitizeToken(wf.Name())))
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		backend:  backend,
		workflow: wf,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the worker lock, runs preflight checks, exposes metrics, and
// launches the workflow manager.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another worker named %q is already running", d.workflow.Name())
	}

	if failed := preflight.Failed(preflight.RunAll(ctx, d.cfg, d.backend)); len(failed) > 0 {
		_ = d.lock.Unlock()
		details := make([]string, 0, len(failed))
		for _, result := range failed {
			details = append(details, fmt.Sprintf("%s: %s", result.Name, result.Detail))
		}
		return fmt.Errorf("preflight failed: %s", strings.Join(details, "; "))
	}

	staging.CleanStale(ctx, d.cfg.Paths.WorkDir, scratchMaxAge(d.cfg), d.logger)

	if err := d.startMetrics(); err != nil {
		_ = d.lock.Unlock()
		return err
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		d.stopMetrics()
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("videoflix worker started",
		logging.String("lock", d.lockPath),
		logging.String("storage", d.describeBackend()),
		logging.String("metrics", d.metricsAddr),
	)
	return nil
}

// Stop stops background processing and releases the worker lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	d.stopMetrics()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release worker lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("videoflix worker stopped")
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	return Status{
		Running:      d.running.Load(),
		Workflow:     d.workflow.Status(ctx),
		DatabasePath: d.cfg.DatabasePath(),
		LockFilePath: d.lockPath,
		MetricsAddr:  d.metricsAddr,
	}
}

// MetricsAddr returns the bound metrics address, or empty when disabled.
func (d *Daemon) MetricsAddr() string {
	return d.metricsAddr
}

func (d *Daemon) startMetrics() error {
	if !d.cfg.Metrics.Enabled {
		return nil
	}
	listener, err := net.Listen("tcp", d.cfg.Metrics.Bind)
	if err != nil {
		return fmt.Errorf("listen for metrics on %s: %w", d.cfg.Metrics.Bind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	d.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	d.metricsAddr = listener.Addr().String()

	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error("metrics server failed", logging.Error(err))
		}
	}(d.metricsServer)
	return nil
}

func (d *Daemon) stopMetrics() {
	if d.metricsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.metricsServer.Shutdown(ctx); err != nil {
		d.logger.Warn("metrics server shutdown failed", logging.Error(err))
	}
	d.metricsServer = nil
	d.metricsAddr = ""
}

// scratchMaxAge outlives any encode that could still be using its scratch dir.
func scratchMaxAge(cfg *config.Config) time.Duration {
	return max(2*cfg.EncodeTimeout(), time.Hour)
}

func (d *Daemon) describeBackend() string {
	if d.backend == nil {
		return ""
	}
	return d.backend.Describe()
}
