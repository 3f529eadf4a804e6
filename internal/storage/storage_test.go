package storage_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"videoflix/internal/storage"
)

func TestKeyKeepsBaseName(t *testing.T) {
	cases := map[string]string{
		"a.mp4":               "originals/a.mp4",
		"/tmp/upload/a.mp4":   "originals/a.mp4",
		"nested/dir/b.mov":    "originals/b.mov",
		"  spaced name.mp4  ": "originals/spaced name.mp4",
	}
	for in, want := range cases {
		if got := storage.Key(storage.NamespaceOriginals, in); got != want {
			t.Fatalf("Key(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateKeyRejectsEscapes(t *testing.T) {
	for _, key := range []string{"", "/abs/a.mp4", "../a.mp4", "480p/../../etc", "a//b", `a\b`} {
		if err := storage.ValidateKey(key); err == nil {
			t.Fatalf("expected %q to be rejected", key)
		}
	}
	if err := storage.ValidateKey("720p/a_720p.mp4"); err != nil {
		t.Fatalf("valid key rejected: %v", err)
	}
}

func TestLocalBackendLifecycle(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	key := "thumbnails/a_sports.jpg"
	if ok, err := backend.Exists(ctx, key); err != nil || ok {
		t.Fatalf("expected missing key, ok=%v err=%v", ok, err)
	}
	if err := backend.Put(ctx, key, strings.NewReader("jpeg")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := backend.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("expected key to exist, ok=%v err=%v", ok, err)
	}

	rc, err := backend.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "jpeg" {
		t.Fatalf("unexpected content %q", data)
	}

	p, err := backend.LocalPath(key)
	if err != nil {
		t.Fatalf("LocalPath: %v", err)
	}
	if p != filepath.Join(backend.Root(), "thumbnails", "a_sports.jpg") {
		t.Fatalf("unexpected local path %q", p)
	}

	if err := backend.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := backend.Delete(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := backend.Open(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on open, got %v", err)
	}
}

func TestMaterializeLocalReturnsStoredFile(t *testing.T) {
	ctx := context.Background()
	backend, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if err := backend.Put(ctx, "originals/a.mp4", strings.NewReader("video")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	local, release, err := storage.Materialize(ctx, backend, "originals/a.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	release()
	want, _ := backend.LocalPath("originals/a.mp4")
	if local != want {
		t.Fatalf("expected stored path %q, got %q", want, local)
	}
	if _, err := os.Stat(local); err != nil {
		t.Fatalf("release must not remove stored original: %v", err)
	}

	if _, _, err := storage.Materialize(ctx, backend, "originals/missing.mp4", t.TempDir()); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMaterializeRemoteDownloadsIntoWorkDir(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryBackend()
	if err := backend.Put(ctx, "originals/a.mp4", strings.NewReader("remote video")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	workDir := t.TempDir()
	local, release, err := storage.Materialize(ctx, backend, "originals/a.mp4", workDir)
	if err != nil {
		t.Fatalf("Materialize: %v", err)
	}
	if !strings.HasPrefix(local, workDir) || filepath.Base(local) != "a.mp4" {
		t.Fatalf("unexpected local path %q", local)
	}
	data, err := os.ReadFile(local)
	if err != nil || string(data) != "remote video" {
		t.Fatalf("unexpected download: %q %v", data, err)
	}
	release()
	if _, err := os.Stat(filepath.Dir(local)); !os.IsNotExist(err) {
		t.Fatalf("expected scratch dir removed, stat err=%v", err)
	}
}

type memoryBackend struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{objects: make(map[string][]byte)}
}

func (m *memoryBackend) Describe() string { return "memory" }

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}
