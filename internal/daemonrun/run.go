package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"videoflix/internal/app"
	"videoflix/internal/config"
	"videoflix/internal/daemon"
	"videoflix/internal/deps"
	"videoflix/internal/logging"
	"videoflix/internal/textutil"
)

// Options configures worker process runtime behavior.
type Options struct {
	LogLevel    string
	Development bool
	Name        string
}

// Run starts the transcode worker and blocks until the context is cancelled
// or the process receives SIGINT or SIGTERM.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	name := WorkerName(opts.Name)
	fileToken := textutil.SanitizeToken(name)
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Paths.LogDir, fmt.Sprintf("videoflix-%s-%s.log", fileToken, runID))
	level := opts.LogLevel
	if strings.TrimSpace(level) == "" {
		level = cfg.Logging.Level
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
		Development: opts.Development,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger = logger.With(logging.String(logging.FieldWorker, name))

	logDependencySnapshot(signalCtx, logger, cfg)
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, logPath); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update videoflix.log link: %v\n", err)
	}
	pidPath := filepath.Join(cfg.Paths.DataDir, fmt.Sprintf("worker-%s.pid", fileToken))
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	components, err := app.Open(signalCtx, cfg, logger)
	if err != nil {
		logger.Error("open worker components", logging.Error(err))
		return err
	}
	defer components.Close()

	d, err := daemon.New(cfg, components.Backend, logger, components.NewManager(name))
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	if err := d.Start(signalCtx); err != nil {
		logger.Error("worker start failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "daemon_start_failed"),
			logging.String(logging.FieldErrorHint, "run videoflix check to diagnose configuration"),
		)
		return err
	}
	defer d.Stop()

	<-signalCtx.Done()
	logger.Info("videoflix worker shutting down")
	return nil
}

// WorkerName returns name, or the host name when name is empty.
func WorkerName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker"
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "videoflix-worker.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}

func logDependencySnapshot(ctx context.Context, logger *slog.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		return
	}
	encoderStatus := deps.CheckEncoder(ctx, cfg.Encoder.Binary)
	logger.Info("dependency snapshot",
		logging.String(logging.FieldEventType, "dependency_snapshot"),
		logging.Bool("encoder_available", encoderStatus.Available),
		logging.String("encoder_binary", encoderStatus.Resolved),
		logging.String("encoder_version", encoderStatus.Detail),
		logging.String("storage_backend", cfg.Storage.Backend),
		logging.Strings("profiles", cfg.ProfileNames()),
		logging.Strings("categories", cfg.Categories),
		logging.Int("workers", cfg.Workflow.Workers),
		logging.Bool("parallel_profiles", cfg.Workflow.ParallelProfiles),
	)
}
