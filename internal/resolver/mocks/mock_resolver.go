package mocks

import (
	"context"

	"prentma/internal/model"
	"prentma/internal/resolver"

	"github.com/stretchr/testify/mock"
)

type MockFileResolver struct {
	mock.Mock
}

func (m *MockFileResolver) Resolve(ctx context.Context, doc *model.Document) (*resolver.File, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resolver.File), args.Error(1)
}

func (m *MockFileResolver) ResolveBlob(ctx context.Context, doc *model.Document) (*resolver.File, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resolver.File), args.Error(1)
}
