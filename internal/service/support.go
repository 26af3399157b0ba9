package service

import (
	"context"

	"prentma/internal/model"
	"prentma/internal/repository"
)

// SupportService stores messages sent through the support form.
type SupportService interface {
	Submit(ctx context.Context, msg model.SupportMessage) (*model.Record[model.SupportMessage], error)
}

type supportService struct {
	repo repository.RecordRepository[model.SupportMessage]
}

func NewSupportService(repo repository.RecordRepository[model.SupportMessage]) SupportService {
	return &supportService{repo: repo}
}

// Submit stores msg as-is; the record's created_at is the server timestamp.
func (s *supportService) Submit(ctx context.Context, msg model.SupportMessage) (*model.Record[model.SupportMessage], error) {
	if len(msg) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"body": "is required"}}
	}
	// server-set fields win over client-sent ones
	delete(msg, "id")
	delete(msg, "created_at")
	delete(msg, "updated_at")
	return s.repo.Create(ctx, msg)
}
