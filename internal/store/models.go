package store

import (
	"fmt"
	"strings"
	"time"
)

// AssetStatus tracks where an asset is in the transcode pipeline.
type AssetStatus string

const (
	AssetPending    AssetStatus = "pending"
	AssetProcessing AssetStatus = "processing"
	AssetPartial    AssetStatus = "partial"
	AssetDone       AssetStatus = "done"
	AssetFailed     AssetStatus = "failed"
)

var assetStatuses = []AssetStatus{AssetPending, AssetProcessing, AssetPartial, AssetDone, AssetFailed}

// ParseAssetStatus validates a user supplied status name.
func ParseAssetStatus(value string) (AssetStatus, error) {
	normalized := AssetStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range assetStatuses {
		if s == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown asset status %q", value)
}

// Renditions holds one optional storage key per known profile.
type Renditions struct {
	P480  string
	P720  string
	P1080 string
}

// Slot returns the field backing profile. Unknown profiles report false.
func (r *Renditions) Slot(profile string) (*string, bool) {
	switch profile {
	case "480p":
		return &r.P480, true
	case "720p":
		return &r.P720, true
	case "1080p":
		return &r.P1080, true
	default:
		return nil, false
	}
}

// Get returns the stored key for profile, or "" when absent.
func (r Renditions) Get(profile string) string {
	if slot, ok := r.Slot(profile); ok {
		return *slot
	}
	return ""
}

// Set records key for profile.
func (r *Renditions) Set(profile, key string) error {
	slot, ok := r.Slot(profile)
	if !ok {
		return fmt.Errorf("unknown rendition profile %q", profile)
	}
	*slot = key
	return nil
}

// Keys returns every populated rendition key in canonical profile order.
func (r Renditions) Keys() []string {
	keys := make([]string, 0, 3)
	for _, key := range []string{r.P480, r.P720, r.P1080} {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

// Count returns the number of populated slots.
func (r Renditions) Count() int {
	return len(r.Keys())
}

// Asset is one media item: an uploaded original plus its derived renditions.
type Asset struct {
	ID              int64
	Title           string
	Description     string
	OriginalPath    string
	Thumbnail       string
	Renditions      Renditions
	Category        string
	Status          AssetStatus
	ProcessingToken string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// JobStatus tracks a queued transcode request.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// ParseJobStatus validates a user supplied job status name.
func ParseJobStatus(value string) (JobStatus, error) {
	switch s := JobStatus(strings.ToLower(strings.TrimSpace(value))); s {
	case JobQueued, JobRunning, JobSucceeded, JobFailed:
		return s, nil
	default:
		return "", fmt.Errorf("unknown job status %q", value)
	}
}

// Job is one at-least-once request to transcode an asset.
type Job struct {
	ID            int64
	AssetID       int64
	OriginalPath  string
	Status        JobStatus
	Stage         string
	Attempts      int
	Worker        string
	ErrorMessage  string
	LastHeartbeat *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	StartedAt     *time.Time
	FinishedAt    *time.Time
}

// AssetFilter narrows ListAssets.
type AssetFilter struct {
	Statuses []AssetStatus
	Category string
}

// HealthSummary aggregates job counts for diagnostics.
type HealthSummary struct {
	Total     int
	Queued    int
	Running   int
	Succeeded int
	Failed    int
}
