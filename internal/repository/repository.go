package repository

import (
	"context"
	"errors"

	"prentma/internal/model"
)

// Package repository contains data access abstractions.
// Implementations live in subpackages (postgres) and contain no business logic.
// Missing rows are reported as sql.ErrNoRows.

// ErrDuplicate is returned when an insert or update violates a unique index.
var ErrDuplicate = errors.New("duplicate key")

// DocumentRepository gives access to one document-bearing collection.
type DocumentRepository interface {
	// Collection is the name of the backing collection.
	Collection() string

	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByOwner returns a document only if it belongs to ownerID.
	FindByOwner(ctx context.Context, id, ownerID string) (*model.Document, error)

	// List returns documents newest first, optionally restricted to one owner.
	List(ctx context.Context, f DocumentFilter) ([]model.Document, error)

	// ListWithInline returns every record that still carries an inline payload.
	ListWithInline(ctx context.Context) ([]model.Document, error)

	// SetFilePath sets the disk locator and clears the inline payload in one statement.
	SetFilePath(ctx context.Context, id, path string) error

	// SetBlobRef sets the blob locator and content type and clears the inline payload in one statement.
	SetBlobRef(ctx context.Context, id, ref, contentType string) error
}

// DocumentFilter narrows a document listing. Empty fields match everything.
type DocumentFilter struct {
	OwnerID string
}

// ApplicationRepository persists candidacy submissions.
type ApplicationRepository interface {
	// Create inserts the application with its current summary list.
	Create(ctx context.Context, app *model.Application) (*model.Application, error)

	FindByID(ctx context.Context, id string) (*model.Application, error)

	// List returns the most recent applications first.
	List(ctx context.Context, limit int) ([]model.Application, error)

	Delete(ctx context.Context, id string) error

	// AttachDocuments inserts the application document records and rewrites the summary list
	// in a single transaction.
	AttachDocuments(ctx context.Context, applicationID string, docs []model.Document, summary []model.DocumentSummary) error
}

// RecordRepository stores flat entities of type T.
type RecordRepository[T any] interface {
	Create(ctx context.Context, data T) (*model.Record[T], error)
	FindByID(ctx context.Context, id string) (*model.Record[T], error)
	// List returns records newest first; filter keys are entity JSON field names.
	List(ctx context.Context, filter map[string]string) ([]model.Record[T], error)
	// Update replaces the stored entity and bumps updated_at.
	Update(ctx context.Context, id string, data T) (*model.Record[T], error)
	Delete(ctx context.Context, id string) error
}
