package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NewAsset describes the fields supplied at ingestion time.
type NewAsset struct {
	Title        string
	Description  string
	OriginalPath string
	Thumbnail    string
}

// CreateAsset inserts a pending asset with no renditions and no category.
func (s *Store) CreateAsset(ctx context.Context, in NewAsset) (*Asset, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, errors.New("asset title is required")
	}
	if strings.TrimSpace(in.OriginalPath) == "" {
		return nil, errors.New("asset original path is required")
	}
	now := formatTime(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO assets (title, description, original_path, thumbnail, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(in.Title),
		strings.TrimSpace(in.Description),
		in.OriginalPath,
		nullableString(in.Thumbnail),
		AssetPending,
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetAsset(ctx, id)
}

// GetAsset fetches an asset by identifier. Missing rows return ErrNotFound.
func (s *Store) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset: %w", err)
	}
	return asset, nil
}

// UpdateAsset persists every mutable field of asset in one statement.
func (s *Store) UpdateAsset(ctx context.Context, asset *Asset) error {
	if asset == nil {
		return errors.New("asset is nil")
	}
	asset.UpdatedAt = time.Now().UTC()
	err := s.execAffectingOne(
		ctx,
		`UPDATE assets
         SET title = ?, description = ?, original_path = ?, thumbnail = ?,
             video_480p = ?, video_720p = ?, video_1080p = ?, category = ?,
             status = ?, processing_token = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		asset.Title,
		asset.Description,
		nullableString(asset.OriginalPath),
		nullableString(asset.Thumbnail),
		nullableString(asset.Renditions.P480),
		nullableString(asset.Renditions.P720),
		nullableString(asset.Renditions.P1080),
		nullableString(asset.Category),
		asset.Status,
		nullableString(asset.ProcessingToken),
		nullableString(asset.ErrorMessage),
		formatTime(asset.UpdatedAt),
		asset.ID,
	)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("asset %d: %w", asset.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// UpdateMetadata edits the descriptive fields only. It never touches pipeline
// state.
func (s *Store) UpdateMetadata(ctx context.Context, id int64, title, description string) (*Asset, error) {
	if strings.TrimSpace(title) == "" {
		return nil, errors.New("asset title is required")
	}
	err := s.execAffectingOne(
		ctx,
		`UPDATE assets SET title = ?, description = ?, updated_at = ? WHERE id = ?`,
		strings.TrimSpace(title),
		strings.TrimSpace(description),
		formatTime(time.Now()),
		id,
	)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update asset metadata: %w", err)
	}
	return s.GetAsset(ctx, id)
}

// SetCategory overwrites the category column of a single asset.
func (s *Store) SetCategory(ctx context.Context, id int64, category string) error {
	err := s.execAffectingOne(
		ctx,
		`UPDATE assets SET category = ?, updated_at = ? WHERE id = ?`,
		nullableString(category),
		formatTime(time.Now()),
		id,
	)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("set asset category: %w", err)
	}
	return nil
}

// DeleteAsset removes the asset row (and, by cascade, its jobs). It returns
// the row as it was before deletion so callers can clean up its files.
func (s *Store) DeleteAsset(ctx context.Context, id int64) (*Asset, error) {
	snapshot, err := s.GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.execAffectingOne(ctx, `DELETE FROM assets WHERE id = ?`, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("delete asset: %w", err)
	}
	return snapshot, nil
}

// ListAssets returns assets ordered by creation, optionally filtered.
func (s *Store) ListAssets(ctx context.Context, filter AssetFilter) ([]*Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets`
	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		clauses = append(clauses, `status IN (`+makePlaceholders(len(filter.Statuses))+`)`)
		for _, status := range filter.Statuses {
			args = append(args, status)
		}
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		clauses = append(clauses, `category = ?`)
		args = append(args, strings.ToLower(category))
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []*Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// AssetStats returns a count of assets grouped by status.
func (s *Store) AssetStats(ctx context.Context) (map[AssetStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM assets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("asset stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[AssetStatus]int)
	for rows.Next() {
		var (
			status AssetStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
