package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"videoflix/internal/fileutil"
)

// Local stores artifacts in a directory tree rooted at Root.
type Local struct {
	root string
}

// NewLocal returns a filesystem backend rooted at root.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, errors.New("storage: local root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create root: %w", err)
	}
	return &Local{root: abs}, nil
}

// Root returns the backing directory.
func (l *Local) Root() string { return l.root }

func (l *Local) Describe() string { return "local:" + l.root }

// LocalPath maps key onto the backing directory.
func (l *Local) LocalPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *Local) Put(_ context.Context, key string, r io.Reader) error {
	p, err := l.LocalPath(key)
	if err != nil {
		return err
	}
	return fileutil.WriteFile(p, r)
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := l.LocalPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return f, err
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.LocalPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return err
	}
	return nil
}

func (l *Local) Exists(_ context.Context, key string) (bool, error) {
	p, err := l.LocalPath(key)
	if err != nil {
		return false, err
	}
	return fileutil.Exists(p)
}
