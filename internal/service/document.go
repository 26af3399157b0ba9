package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"prentma/internal/model"
	"prentma/internal/repository"
	"prentma/internal/resolver"
	"prentma/internal/storage"
)

// sniffLen is how much of an upload is read ahead to detect emptiness and content type.
const sniffLen = 3072

// FileResolver serves document content from whichever backend holds it.
type FileResolver interface {
	Resolve(ctx context.Context, doc *model.Document) (*resolver.File, error)
	ResolveBlob(ctx context.Context, doc *model.Document) (*resolver.File, error)
}

// UploadInput is one candidate document upload.
type UploadInput struct {
	CandidateID string
	Type        string
	Description string
	Filename    string
	ContentType string
	// Size is the declared length, or -1 when unknown.
	Size int64
	Body io.Reader
}

// DocumentService defines the use cases for candidate documents.
type DocumentService interface {
	// Upload stores the content in the blob store, then saves the record. The object is
	// deleted again when the record cannot be saved.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns a candidate's documents newest first; an empty candidateID lists all.
	List(ctx context.Context, candidateID string) ([]model.Document, error)

	// Download opens the blob of a candidate document.
	Download(ctx context.Context, id string) (*resolver.File, error)
}

type documentService struct {
	store    storage.Storage
	repo     repository.DocumentRepository
	resolver FileResolver
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, res FileResolver) DocumentService {
	return &documentService{store: store, repo: repo, resolver: res}
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.Body == nil {
		return nil, ErrReaderNil
	}
	candidateID, err := parseID(in.CandidateID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Type) == "" {
		return nil, &ValidationError{Fields: map[string]string{"type": "is required"}}
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(in.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 {
		return nil, ErrFileRequired
	}
	head = head[:n]
	contentType := storage.ContentTypeOf(in.ContentType, head)
	body := io.MultiReader(bytes.NewReader(head), in.Body)

	size := in.Size
	if size <= 0 {
		size = -1
	}
	name := storage.SafeFilename(in.Filename, "document")
	key := storage.DocumentKey(name)

	objInfo, err := s.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": name,
			"candidate-id":      candidateID,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	stored := objInfo.Size
	if stored <= 0 {
		stored = in.Size
	}
	now := time.Now().UTC()
	doc := &model.Document{
		ID:          uuid.NewString(),
		OwnerID:     candidateID,
		Type:        in.Type,
		Name:        name,
		ContentType: contentType,
		Size:        stored,
		Status:      model.DefaultDocumentStatus,
		BlobRef:     key,
		UploadedAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if d := strings.TrimSpace(in.Description); d != "" {
		doc.Description = &d
	}

	saved, err := s.repo.Create(ctx, doc)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	saved.DownloadURL = DocumentDownloadURL(saved.ID)
	return saved, nil
}

// DocumentDownloadURL is the route serving one candidate document.
func DocumentDownloadURL(id string) string {
	return "/documents/" + id + "/download"
}

func (s *documentService) List(ctx context.Context, candidateID string) ([]model.Document, error) {
	var f repository.DocumentFilter
	if candidateID != "" {
		id, err := parseID(candidateID)
		if err != nil {
			return nil, err
		}
		f.OwnerID = id
	}
	docs, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range docs {
		docs[i].DownloadURL = DocumentDownloadURL(docs[i].ID)
	}
	return docs, nil
}

func (s *documentService) Download(ctx context.Context, id string) (*resolver.File, error) {
	docID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	doc, err := s.repo.FindByID(ctx, docID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	f, err := s.resolver.ResolveBlob(ctx, doc)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}

// notFound folds resolver misses into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, resolver.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
