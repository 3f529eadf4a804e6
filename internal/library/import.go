package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"videoflix/internal/logging"
	"videoflix/internal/services"
)

// Metadata is the descriptive text supplied for one imported file.
type Metadata struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// LoadMetadata reads a JSON object keyed by file name.
func LoadMetadata(path string) (map[string]Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "read metadata", fmt.Sprintf("Unable to read %s", path), err)
	}
	var metadata map[string]Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "parse metadata", fmt.Sprintf("Invalid metadata in %s", path), err)
	}
	return metadata, nil
}

// Skipped names a file the import passed over and why.
type Skipped struct {
	File   string
	Reason string
}

// ImportReport lists what an import did.
type ImportReport struct {
	Created []Created
	Skipped []Skipped
	Failed  []Skipped
}

var thumbnailExtensions = []string{".jpg", ".jpeg", ".png"}

// Import ingests every .mp4 file in dir. When metadata is non-nil only files
// it names are imported; otherwise every .mp4 is imported under a title
// derived from its name. A sibling image sharing the file stem becomes the
// thumbnail.
func (s *Service) Import(ctx context.Context, dir string, metadata map[string]Metadata) (ImportReport, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ImportReport{}, services.Wrap(services.ErrValidation, stageName, "read import dir", fmt.Sprintf("Unable to read %s", dir), err)
	}

	images := make(map[string]string)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if !isThumbnail(strings.ToLower(filepath.Ext(name))) {
			continue
		}
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		if _, taken := images[stem]; !taken {
			images[stem] = filepath.Join(dir, name)
		}
	}

	var report ImportReport
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if isThumbnail(ext) {
			continue
		}

		meta, listed := metadata[name]
		if metadata != nil && !listed {
			report.Skipped = append(report.Skipped, Skipped{File: name, Reason: "no metadata"})
			s.logger.Warn("no metadata found for file", logging.String("file", name))
			continue
		}
		if ext != ".mp4" {
			report.Skipped = append(report.Skipped, Skipped{File: name, Reason: "not an mp4 file"})
			s.logger.Warn("skipping non-mp4 file", logging.String("file", name))
			continue
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		created, err := s.Create(ctx, CreateInput{
			Title:         meta.Title,
			Description:   meta.Description,
			SourcePath:    filepath.Join(dir, name),
			ThumbnailPath: images[stem],
		})
		if err != nil {
			report.Failed = append(report.Failed, Skipped{File: name, Reason: services.Details(err).Message})
			s.logger.Warn("import failed",
				logging.String("file", name),
				logging.Error(err),
				logging.String(logging.FieldEventType, "import_failed"),
				logging.String(logging.FieldErrorHint, "check the file and storage backend"),
			)
			continue
		}
		report.Created = append(report.Created, created)
	}
	return report, nil
}

func isThumbnail(ext string) bool {
	for _, candidate := range thumbnailExtensions {
		if ext == candidate {
			return true
		}
	}
	return false
}
