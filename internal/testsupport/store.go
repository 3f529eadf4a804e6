package testsupport

import (
	"context"
	"testing"

	"videoflix/internal/config"
	"videoflix/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewAsset inserts a pending asset for tests using the provided store.
func NewAsset(t testing.TB, st *store.Store, title, originalKey, thumbnailKey string) *store.Asset {
	t.Helper()

	asset, err := st.CreateAsset(context.Background(), store.NewAsset{
		Title:        title,
		OriginalPath: originalKey,
		Thumbnail:    thumbnailKey,
	})
	if err != nil {
		t.Fatalf("store.CreateAsset: %v", err)
	}
	return asset
}
