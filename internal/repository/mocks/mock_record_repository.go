package mocks

import (
	"context"

	"prentma/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockRecordRepository[T any] struct {
	mock.Mock
}

func (m *MockRecordRepository[T]) Create(ctx context.Context, data T) (*model.Record[T], error) {
	args := m.Called(ctx, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[T]), args.Error(1)
}

func (m *MockRecordRepository[T]) FindByID(ctx context.Context, id string) (*model.Record[T], error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[T]), args.Error(1)
}

func (m *MockRecordRepository[T]) List(ctx context.Context, filter map[string]string) ([]model.Record[T], error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record[T]), args.Error(1)
}

func (m *MockRecordRepository[T]) Update(ctx context.Context, id string, data T) (*model.Record[T], error) {
	args := m.Called(ctx, id, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[T]), args.Error(1)
}

func (m *MockRecordRepository[T]) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
