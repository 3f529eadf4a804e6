package preflight

import (
	"context"

	"videoflix/internal/config"
	"videoflix/internal/storage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config. The
// backend may be nil, in which case the storage probe is skipped.
func RunAll(ctx context.Context, cfg *config.Config, backend storage.Backend) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
	}
	if cfg.Storage.Backend == config.StorageLocal {
		results = append(results, CheckDirectoryAccess("Storage directory", cfg.Paths.StorageDir))
	}
	if backend != nil {
		results = append(results, CheckStorage(ctx, backend))
	}
	results = append(results, CheckEncoder(ctx, cfg))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
