package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"prentma/internal/model"
	"prentma/internal/repository"
)

// RecordService is the create/list/get/patch/delete use case set shared by the flat entities.
type RecordService[T any] interface {
	Create(ctx context.Context, data T) (*model.Record[T], error)

	// List returns records newest first. Filter values are record ids.
	List(ctx context.Context, filter map[string]string) ([]model.Record[T], error)

	Get(ctx context.Context, id string) (*model.Record[T], error)

	// Update merges the JSON fields of patch onto the stored entity and saves the result.
	Update(ctx context.Context, id string, patch []byte) (*model.Record[T], error)

	Delete(ctx context.Context, id string) error
}

// defaulter is implemented by entities that fill server-side defaults on create.
type defaulter interface {
	SetDefaults(now time.Time)
}

type recordService[T any] struct {
	repo repository.RecordRepository[T]
	now  func() time.Time
}

// NewRecordService constructs a RecordService over repo.
func NewRecordService[T any](repo repository.RecordRepository[T]) RecordService[T] {
	return &recordService[T]{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (s *recordService[T]) Create(ctx context.Context, data T) (*model.Record[T], error) {
	if d, ok := any(&data).(defaulter); ok {
		d.SetDefaults(s.now())
	}
	if err := validateStruct(data); err != nil {
		return nil, err
	}
	rec, err := s.repo.Create(ctx, data)
	if err != nil {
		return nil, conflict(err)
	}
	return rec, nil
}

func (s *recordService[T]) List(ctx context.Context, filter map[string]string) ([]model.Record[T], error) {
	clean := make(map[string]string, len(filter))
	for k, v := range filter {
		if v == "" {
			continue
		}
		id, err := parseID(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		clean[k] = id
	}
	return s.repo.List(ctx, clean)
}

func (s *recordService[T]) Get(ctx context.Context, id string) (*model.Record[T], error) {
	recID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.FindByID(ctx, recID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *recordService[T]) Update(ctx context.Context, id string, patch []byte) (*model.Record[T], error) {
	if len(bytes.TrimSpace(patch)) == 0 {
		return nil, &ValidationError{Fields: map[string]string{"body": "is required"}}
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	data := current.Data
	if err := json.Unmarshal(patch, &data); err != nil {
		return nil, &ValidationError{Fields: map[string]string{"body": "must be a JSON object"}}
	}
	if err := validateStruct(data); err != nil {
		return nil, err
	}

	rec, err := s.repo.Update(ctx, current.ID, data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, conflict(err)
	}
	return rec, nil
}

func (s *recordService[T]) Delete(ctx context.Context, id string) error {
	recID, err := parseID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, recID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func conflict(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return fmt.Errorf("%w: %w", ErrConflict, err)
	}
	return err
}
