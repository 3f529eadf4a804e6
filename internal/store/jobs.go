package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Enqueue records a queued transcode job for assetID.
func (s *Store) Enqueue(ctx context.Context, assetID int64, originalPath string) (*Job, error) {
	if strings.TrimSpace(originalPath) == "" {
		return nil, errors.New("job original path is required")
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (asset_id, original_path, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		assetID,
		originalPath,
		JobQueued,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetJob(ctx, id)
}

// GetJob fetches a job by identifier. Missing rows return ErrNotFound.
func (s *Store) GetJob(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Claim atomically moves the oldest queued job to running and assigns it to
// worker. It returns nil when nothing is queued.
func (s *Store) Claim(ctx context.Context, worker string) (*Job, error) {
	now := formatTime(time.Now())
	var job *Job
	err := retryOnBusy(ctx, func() error {
		row := s.db.QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, worker = ?, attempts = attempts + 1, stage = NULL,
                 error_message = NULL, last_heartbeat = ?, started_at = ?,
                 finished_at = NULL, updated_at = ?
             WHERE id = (SELECT id FROM jobs WHERE status = ? ORDER BY id LIMIT 1)
             RETURNING `+jobColumns,
			JobRunning,
			nullableString(worker),
			now,
			now,
			now,
			JobQueued,
		)
		claimed, scanErr := scanJob(row)
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// UpdateHeartbeat refreshes the liveness timestamp of a running job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := formatTime(time.Now())
	err := s.execAffectingOne(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		id,
		JobRunning,
	)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("running job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// SetJobStage records the pipeline stage a running job has reached.
func (s *Store) SetJobStage(ctx context.Context, id int64, stage string) error {
	err := s.execAffectingOne(
		ctx,
		`UPDATE jobs SET stage = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		formatTime(time.Now()),
		id,
	)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("set job stage: %w", err)
	}
	return nil
}

// CompleteJob marks a job succeeded.
func (s *Store) CompleteJob(ctx context.Context, id int64) error {
	return s.finishJob(ctx, id, JobSucceeded, "")
}

// FailJob marks a job failed with message.
func (s *Store) FailJob(ctx context.Context, id int64, message string) error {
	return s.finishJob(ctx, id, JobFailed, message)
}

func (s *Store) finishJob(ctx context.Context, id int64, status JobStatus, message string) error {
	now := formatTime(time.Now())
	err := s.execAffectingOne(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, finished_at = ?, updated_at = ? WHERE id = ?`,
		status,
		nullableString(message),
		now,
		now,
		id,
	)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	return nil
}

// ReclaimStaleJobs returns running jobs whose heartbeat is older than cutoff
// to the queue. Jobs that never heartbeat are judged by their start time.
func (s *Store) ReclaimStaleJobs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, worker = NULL, stage = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND COALESCE(last_heartbeat, started_at, updated_at) < ?`,
		JobQueued,
		formatTime(time.Now()),
		JobRunning,
		formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// ReclaimWorkerJobs requeues every running job owned by worker. It is used on
// startup so a crashed worker's claims are not stranded until the heartbeat
// timeout expires.
func (s *Store) ReclaimWorkerJobs(ctx context.Context, worker string) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, worker = NULL, stage = NULL, last_heartbeat = NULL, updated_at = ?
         WHERE status = ? AND worker = ?`,
		JobQueued,
		formatTime(time.Now()),
		JobRunning,
		worker,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim worker jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailedJobs moves failed jobs back to queued. With no ids, every failed
// job is retried.
func (s *Store) RetryFailedJobs(ctx context.Context, ids ...int64) (int64, error) {
	query := `UPDATE jobs
         SET status = ?, error_message = NULL, stage = NULL, worker = NULL,
             finished_at = NULL, updated_at = ?
         WHERE status = ?`
	args := []any{JobQueued, formatTime(time.Now()), JobFailed}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed jobs: %w", err)
	}
	return res.RowsAffected()
}

// ListJobs returns jobs ordered by id, optionally filtered by status.
func (s *Store) ListJobs(ctx context.Context, statuses ...JobStatus) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	var args []any
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY id`
	return s.queryJobs(ctx, query, args...)
}

// JobsForAsset returns every job recorded for assetID, oldest first.
func (s *Store) JobsForAsset(ctx context.Context, assetID int64) ([]*Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE asset_id = ? ORDER BY id`, assetID)
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
