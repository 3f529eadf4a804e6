package library

import (
	"context"

	"github.com/stretchr/testify/mock"

	"videoflix/internal/cleanup"
	"videoflix/internal/store"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) CreateAsset(ctx context.Context, in store.NewAsset) (*store.Asset, error) {
	args := m.Called(ctx, in)
	if v := args.Get(0); v != nil {
		return v.(*store.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) GetAsset(ctx context.Context, id int64) (*store.Asset, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*store.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) UpdateMetadata(ctx context.Context, id int64, title, description string) (*store.Asset, error) {
	args := m.Called(ctx, id, title, description)
	if v := args.Get(0); v != nil {
		return v.(*store.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) DeleteAsset(ctx context.Context, id int64) (*store.Asset, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*store.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) ListAssets(ctx context.Context, filter store.AssetFilter) ([]*store.Asset, error) {
	args := m.Called(ctx, filter)
	if v := args.Get(0); v != nil {
		return v.([]*store.Asset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) SetCategory(ctx context.Context, id int64, category string) error {
	args := m.Called(ctx, id, category)
	return args.Error(0)
}

func (m *StoreMock) Enqueue(ctx context.Context, assetID int64, originalPath string) (*store.Job, error) {
	args := m.Called(ctx, assetID, originalPath)
	if v := args.Get(0); v != nil {
		return v.(*store.Job), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoreMock) JobsForAsset(ctx context.Context, assetID int64) ([]*store.Job, error) {
	args := m.Called(ctx, assetID)
	if v := args.Get(0); v != nil {
		return v.([]*store.Job), args.Error(1)
	}
	return nil, args.Error(1)
}

type DispatcherMock struct {
	mock.Mock
}

func (m *DispatcherMock) AssetCreated(ctx context.Context, asset *store.Asset) *store.Job {
	args := m.Called(ctx, asset)
	if v := args.Get(0); v != nil {
		return v.(*store.Job)
	}
	return nil
}

type CleanerMock struct {
	mock.Mock
}

func (m *CleanerMock) Run(ctx context.Context, snap cleanup.Snapshot) cleanup.Result {
	args := m.Called(ctx, snap)
	return args.Get(0).(cleanup.Result)
}
