package preflight

import (
	"context"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"videoflix/internal/config"
	"videoflix/internal/deps"
	"videoflix/internal/storage"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// probeKey never exists; asking for it proves the backend answers.
const probeKey = "originals/.videoflix-preflight"

// CheckStorage verifies that the storage backend answers an existence query.
func CheckStorage(ctx context.Context, backend storage.Backend) Result {
	const name = "Storage"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := backend.Exists(checkCtx, probeKey); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", backend.Describe(), err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", backend.Describe())}
}

// CheckEncoder verifies that the configured encoder binary runs.
func CheckEncoder(ctx context.Context, cfg *config.Config) Result {
	status := deps.CheckEncoder(ctx, cfg.Encoder.Binary)
	return Result{Name: status.Name, Passed: status.Available, Detail: status.Detail}
}
