package dispatch

import (
	"context"

	"github.com/stretchr/testify/mock"

	"videoflix/internal/store"
)

type EnqueuerMock struct {
	mock.Mock
}

func (m *EnqueuerMock) Enqueue(ctx context.Context, assetID int64, originalPath string) (*store.Job, error) {
	args := m.Called(ctx, assetID, originalPath)
	if v := args.Get(0); v != nil {
		return v.(*store.Job), args.Error(1)
	}
	return nil, args.Error(1)
}
