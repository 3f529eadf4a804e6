package workflow

import (
	"context"

	"videoflix/internal/logging"
	"videoflix/internal/store"
)

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Running   bool
	Workers   []string
	Processed int
	Failed    int
	LastError string
	LastJob   *store.Job
	JobStats  map[store.JobStatus]int
}

// Status returns the latest workflow information.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:   m.running,
		Workers:   m.WorkerNames(),
		Processed: m.processed,
		Failed:    m.failed,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastJob != nil {
		last := *m.lastJob
		summary.LastJob = &last
	}
	m.mu.RUnlock()

	stats, err := m.queue.JobStats(ctx)
	if err != nil {
		m.logger.Warn("failed to read job stats", logging.Error(err))
	}
	summary.JobStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) finish(job *store.Job, failed bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	last := *job
	m.lastJob = &last
	m.processed++
	if failed {
		m.failed++
		m.lastErr = err
	}
}
