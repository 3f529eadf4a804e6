package store

import (
	"database/sql"
	"errors"
	"time"
)

const assetColumns = "id, title, description, original_path, thumbnail, video_480p, video_720p, video_1080p, category, status, processing_token, error_message, created_at, updated_at"

const jobColumns = "id, asset_id, original_path, status, stage, attempts, worker, error_message, last_heartbeat, created_at, updated_at, started_at, finished_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(scanner rowScanner) (*Asset, error) {
	var (
		asset                   Asset
		original, thumbnail     sql.NullString
		v480, v720, v1080       sql.NullString
		category, token, errMsg sql.NullString
		status                  string
		createdRaw, updatedRaw  string
	)
	if err := scanner.Scan(
		&asset.ID,
		&asset.Title,
		&asset.Description,
		&original,
		&thumbnail,
		&v480,
		&v720,
		&v1080,
		&category,
		&status,
		&token,
		&errMsg,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	asset.OriginalPath = original.String
	asset.Thumbnail = thumbnail.String
	asset.Renditions = Renditions{P480: v480.String, P720: v720.String, P1080: v1080.String}
	asset.Category = category.String
	asset.Status = AssetStatus(status)
	asset.ProcessingToken = token.String
	asset.ErrorMessage = errMsg.String
	if t, err := parseTimeString(createdRaw); err == nil {
		asset.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		asset.UpdatedAt = t
	}
	return &asset, nil
}

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		job                          Job
		status                       string
		stage, worker, errMsg        sql.NullString
		heartbeat, started, finished sql.NullString
		createdRaw, updatedRaw       string
	)
	if err := scanner.Scan(
		&job.ID,
		&job.AssetID,
		&job.OriginalPath,
		&status,
		&stage,
		&job.Attempts,
		&worker,
		&errMsg,
		&heartbeat,
		&createdRaw,
		&updatedRaw,
		&started,
		&finished,
	); err != nil {
		return nil, err
	}
	job.Status = JobStatus(status)
	job.Stage = stage.String
	job.Worker = worker.String
	job.ErrorMessage = errMsg.String
	job.LastHeartbeat = parseNullableTime(heartbeat)
	job.StartedAt = parseNullableTime(started)
	job.FinishedAt = parseNullableTime(finished)
	if t, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = t
	}
	if t, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = t
	}
	return &job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// timestampLayout is fixed width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseNullableTime(value sql.NullString) *time.Time {
	if !value.Valid {
		return nil
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return nil
	}
	return &t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
