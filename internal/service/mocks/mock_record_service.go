package mocks

import (
	"context"

	"prentma/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockRecordService[T any] struct {
	mock.Mock
}

func (m *MockRecordService[T]) Create(ctx context.Context, data T) (*model.Record[T], error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[T]), args.Error(1)
}

func (m *MockRecordService[T]) List(ctx context.Context, filter map[string]string) ([]model.Record[T], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record[T]), args.Error(1)
}

func (m *MockRecordService[T]) Get(ctx context.Context, id string) (*model.Record[T], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[T]), args.Error(1)
}

func (m *MockRecordService[T]) Update(ctx context.Context, id string, patch []byte) (*model.Record[T], error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[T]), args.Error(1)
}

func (m *MockRecordService[T]) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
