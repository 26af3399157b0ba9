package mocks

import (
	"context"

	"prentma/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockSupportService struct {
	mock.Mock
}

func (m *MockSupportService) Submit(ctx context.Context, msg model.SupportMessage) (*model.Record[model.SupportMessage], error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Record[model.SupportMessage]), args.Error(1)
}
