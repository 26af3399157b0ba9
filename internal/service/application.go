package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"prentma/internal/model"
	"prentma/internal/repository"
	"prentma/internal/resolver"
	"prentma/internal/storage"
)

const (
	DefaultApplicationsLimit = 50
	MaxApplicationsLimit     = 500

	// DefaultAttachmentType is used for attachments submitted without a type.
	DefaultAttachmentType = "other"
)

// ApplicationInput carries the candidate fields of a submission.
type ApplicationInput struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"omitempty,email"`
	Phone           string `json:"phone"`
	City            string `json:"city"`
	Address         string `json:"address"`
	Category        string `json:"category"`
	YearsExperience *int   `json:"years_experience" validate:"omitempty,gte=0"`
	Municipality    string `json:"municipality"`
	AcceptedTerms   bool   `json:"accepted_terms"`
}

// Attachment is one file of a submission.
type Attachment struct {
	Type        string
	Name        string
	ContentType string
	Body        io.Reader
}

// ApplicationService defines the candidacy use cases.
type ApplicationService interface {
	// Submit stores the application and its attachments. It is all-or-nothing: when any
	// attachment fails, files and records written so far are removed and the application is deleted.
	Submit(ctx context.Context, in ApplicationInput, attachments []Attachment) (string, error)

	// List returns recent applications; limit is clamped to [1, MaxApplicationsLimit], 0 means default.
	List(ctx context.Context, limit int) ([]model.Application, error)

	// Documents returns the attachment summary of one application.
	Documents(ctx context.Context, applicationID string) ([]model.DocumentSummary, error)

	// Download resolves one attachment across disk, blob and inline storage.
	Download(ctx context.Context, applicationID, documentID string) (*resolver.File, error)
}

type applicationService struct {
	apps     repository.ApplicationRepository
	docs     repository.DocumentRepository
	disk     *storage.Disk
	resolver FileResolver
	log      zerolog.Logger
}

// NewApplicationService constructs a new ApplicationService. docs must be the application documents collection.
func NewApplicationService(apps repository.ApplicationRepository, docs repository.DocumentRepository, disk *storage.Disk, res FileResolver, log zerolog.Logger) ApplicationService {
	return &applicationService{apps: apps, docs: docs, disk: disk, resolver: res, log: log}
}

func (s *applicationService) Submit(ctx context.Context, in ApplicationInput, attachments []Attachment) (string, error) {
	if err := validateStruct(in); err != nil {
		return "", err
	}
	for _, a := range attachments {
		if a.Body == nil {
			return "", ErrReaderNil
		}
	}

	now := time.Now().UTC()
	app, err := s.apps.Create(ctx, &model.Application{
		ID:              uuid.NewString(),
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		Phone:           in.Phone,
		City:            in.City,
		Address:         in.Address,
		Category:        in.Category,
		YearsExperience: in.YearsExperience,
		Municipality:    in.Municipality,
		AcceptedTerms:   in.AcceptedTerms,
		Documents:       []model.DocumentSummary{},
		CreatedAt:       now,
	})
	if err != nil {
		return "", fmt.Errorf("create application: %w", err)
	}
	if len(attachments) == 0 {
		return app.ID, nil
	}

	if err := s.attach(ctx, app, attachments, now); err != nil {
		if delErr := s.apps.Delete(context.WithoutCancel(ctx), app.ID); delErr != nil {
			s.log.Error().Err(delErr).Str("application_id", app.ID).Msg("rollback delete application failed")
		}
		return "", err
	}
	return app.ID, nil
}

// attach stages every attachment, moves them into the candidate folder, then links
// records and summary in one transaction.
func (s *applicationService) attach(ctx context.Context, app *model.Application, attachments []Attachment, now time.Time) error {
	staging := s.disk.StagingDir(app.ID)
	defer func() {
		if err := s.disk.RemoveAll(staging); err != nil {
			s.log.Warn().Err(err).Str("dir", staging).Msg("remove staging dir failed")
		}
	}()

	docs := make([]model.Document, 0, len(attachments))
	staged := make([]string, 0, len(attachments))
	for i, a := range attachments {
		id := uuid.NewString()
		name := storage.SafeFilename(a.Name, id)
		path, n, err := s.disk.Stage(app.ID, fmt.Sprintf("%03d_%s", i, name), a.Body)
		if err != nil {
			return fmt.Errorf("stage attachment %q: %w", name, err)
		}
		staged = append(staged, path)

		typ := a.Type
		if typ == "" {
			typ = DefaultAttachmentType
		}
		contentType := a.ContentType
		if contentType == "" {
			contentType = model.DefaultContentType
		}
		docs = append(docs, model.Document{
			ID:            id,
			OwnerID:       app.ID,
			Type:          typ,
			Name:          name,
			Category:      app.Category,
			CandidateName: app.CandidateName(),
			ContentType:   contentType,
			Size:          n,
			Status:        model.DefaultDocumentStatus,
			UploadedAt:    now,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	folder := storage.CandidateFolder(app.Category, app.FirstName, app.LastName)
	committed := make([]string, 0, len(docs))
	undo := func() {
		for _, p := range committed {
			if err := s.disk.Remove(p); err != nil {
				s.log.Warn().Err(err).Str("path", p).Msg("remove committed file failed")
			}
		}
	}
	for i := range docs {
		final, err := s.disk.Commit(staged[i], folder, docs[i].Name)
		if err != nil {
			undo()
			return fmt.Errorf("commit attachment %q: %w", docs[i].Name, err)
		}
		committed = append(committed, final)
		docs[i].FilePath = final
	}

	summary := make([]model.DocumentSummary, 0, len(docs))
	for _, d := range docs {
		summary = append(summary, model.DocumentSummary{
			ID:            d.ID,
			Type:          d.Type,
			Name:          d.Name,
			Category:      d.Category,
			CandidateName: d.CandidateName,
			ContentType:   d.ContentType,
			Size:          d.Size,
			DownloadURL:   DownloadURL(app.ID, d.ID),
		})
	}

	if err := s.apps.AttachDocuments(ctx, app.ID, docs, summary); err != nil {
		undo()
		return fmt.Errorf("attach documents: %w", err)
	}
	return nil
}

// DownloadURL is the route serving one application document.
func DownloadURL(applicationID, documentID string) string {
	return "/api/applications/" + applicationID + "/documents/" + documentID
}

func (s *applicationService) List(ctx context.Context, limit int) ([]model.Application, error) {
	switch {
	case limit <= 0:
		limit = DefaultApplicationsLimit
	case limit > MaxApplicationsLimit:
		limit = MaxApplicationsLimit
	}
	return s.apps.List(ctx, limit)
}

func (s *applicationService) Documents(ctx context.Context, applicationID string) ([]model.DocumentSummary, error) {
	id, err := parseID(applicationID)
	if err != nil {
		return nil, err
	}
	app, err := s.apps.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return app.Documents, nil
}

func (s *applicationService) Download(ctx context.Context, applicationID, documentID string) (*resolver.File, error) {
	appID, err := parseID(applicationID)
	if err != nil {
		return nil, err
	}
	docID, err := parseID(documentID)
	if err != nil {
		return nil, err
	}
	doc, err := s.docs.FindByOwner(ctx, docID, appID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	f, err := s.resolver.Resolve(ctx, doc)
	if err != nil {
		return nil, notFound(err)
	}
	return f, nil
}
