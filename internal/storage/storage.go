package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"videoflix/internal/config"
	"videoflix/internal/fileutil"
)

// Key namespaces. Rendition namespaces are the profile names themselves.
const (
	NamespaceOriginals  = "originals"
	NamespaceThumbnails = "thumbnails"
)

// ErrNotFound is returned when a key does not exist in the backend.
var ErrNotFound = errors.New("storage object not found")

// Backend is a file store addressed by slash separated keys.
type Backend interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Describe() string
}

// LocalResolver is implemented by backends whose keys map directly onto
// local filesystem paths.
type LocalResolver interface {
	LocalPath(key string) (string, error)
}

// New builds the backend selected in cfg.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	if cfg == nil {
		return nil, errors.New("storage: config is required")
	}
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		return NewLocal(cfg.Paths.StorageDir)
	case config.StorageGCS:
		return NewGCS(ctx, GCSOptions{
			Bucket:   cfg.Storage.GCSBucket,
			Prefix:   cfg.Storage.GCSPrefix,
			Endpoint: cfg.Storage.GCSEndpoint,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Storage.Backend)
	}
}

// Key joins a namespace and a file name into a storage key. Only the base
// name of name is kept.
func Key(namespace, name string) string {
	base := path.Base(filepath.ToSlash(strings.TrimSpace(name)))
	return strings.Trim(namespace, "/") + "/" + base
}

// Base returns the file name portion of a key.
func Base(key string) string {
	return path.Base(key)
}

// ValidateKey rejects keys that could escape the backend root.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("storage: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return fmt.Errorf("storage: invalid key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("storage: invalid key %q", key)
		}
	}
	return nil
}

// PutFile uploads the local file at src under key.
func PutFile(ctx context.Context, b Backend, key, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return b.Put(ctx, key, f)
}

// Materialize returns a local path holding the content of key. Backends that
// resolve keys locally return the stored file itself and a no-op release;
// others download into a fresh directory under workDir which release removes.
func Materialize(ctx context.Context, b Backend, key, workDir string) (string, func(), error) {
	noop := func() {}
	if resolver, ok := b.(LocalResolver); ok {
		p, err := resolver.LocalPath(key)
		if err != nil {
			return "", noop, err
		}
		if ok, err := fileutil.Exists(p); err != nil {
			return "", noop, err
		} else if !ok {
			return "", noop, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return p, noop, nil
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", noop, fmt.Errorf("create work dir: %w", err)
	}
	dir, err := os.MkdirTemp(workDir, "asset-*")
	if err != nil {
		return "", noop, fmt.Errorf("create scratch dir: %w", err)
	}
	release := func() { _ = os.RemoveAll(dir) }

	rc, err := b.Open(ctx, key)
	if err != nil {
		release()
		return "", noop, err
	}
	defer rc.Close()

	local := filepath.Join(dir, Base(key))
	if err := fileutil.WriteFile(local, rc); err != nil {
		release()
		return "", noop, fmt.Errorf("download %s: %w", key, err)
	}
	return local, release, nil
}
