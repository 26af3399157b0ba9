package mocks

import (
	"context"

	"prentma/internal/model"
	"prentma/internal/resolver"
	"prentma/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockApplicationService struct {
	mock.Mock
}

func (m *MockApplicationService) Submit(ctx context.Context, in service.ApplicationInput, attachments []service.Attachment) (string, error) {
	args := m.Called(ctx, in, attachments)
	return args.String(0), args.Error(1)
}

func (m *MockApplicationService) List(ctx context.Context, limit int) ([]model.Application, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Application), args.Error(1)
}

func (m *MockApplicationService) Documents(ctx context.Context, applicationID string) ([]model.DocumentSummary, error) {
	args := m.Called(ctx, applicationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentSummary), args.Error(1)
}

func (m *MockApplicationService) Download(ctx context.Context, applicationID, documentID string) (*resolver.File, error) {
	args := m.Called(ctx, applicationID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*resolver.File), args.Error(1)
}
