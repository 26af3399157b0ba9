package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prentma/internal/model"
	repoMocks "prentma/internal/repository/mocks"
	"prentma/internal/resolver"
	resolverMocks "prentma/internal/resolver/mocks"
	"prentma/internal/storage"
	storeMocks "prentma/internal/storage/mocks"
)

type applicationFixture struct {
	apps *repoMocks.MockApplicationRepository
	docs *repoMocks.MockDocumentRepository
	disk *storage.Disk
	svc  ApplicationService
}

func newApplicationFixture(t *testing.T, res FileResolver) *applicationFixture {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	f := &applicationFixture{
		apps: new(repoMocks.MockApplicationRepository),
		docs: new(repoMocks.MockDocumentRepository),
		disk: disk,
	}
	f.svc = NewApplicationService(f.apps, f.docs, disk, res, zerolog.Nop())
	return f
}

// expectCreate echoes the application passed to Create.
func (f *applicationFixture) expectCreate() {
	f.apps.On("Create", mock.Anything, mock.AnythingOfType("*model.Application")).
		Return(func(_ context.Context, app *model.Application) *model.Application { return app }, nil)
}

func TestApplicationService_Submit_NAttachments(t *testing.T) {
	ctx := context.Background()
	f := newApplicationFixture(t, nil)

	var created *model.Application
	f.apps.On("Create", ctx, mock.AnythingOfType("*model.Application")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*model.Application) }).
		Return(&model.Application{ID: "7b1f0e9c-1111-4222-8333-944455556666", FirstName: "Ana", LastName: "Silva", Category: "Pintura"}, nil)

	var (
		gotDocs    []model.Document
		gotSummary []model.DocumentSummary
	)
	f.apps.On("AttachDocuments", ctx, "7b1f0e9c-1111-4222-8333-944455556666", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotDocs = args.Get(2).([]model.Document)
			gotSummary = args.Get(3).([]model.DocumentSummary)
		}).Return(nil)

	attachments := []Attachment{
		{Type: "id", Name: "id.pdf", ContentType: "application/pdf", Body: strings.NewReader("pdf-bytes")},
		{Type: "", Name: `C:\fotos\retrato.png`, Body: strings.NewReader("png")},
		{Type: "portfolio", Name: "obra.jpg", ContentType: "image/jpeg", Body: strings.NewReader("jpeg!")},
	}

	id, err := f.svc.Submit(ctx, ApplicationInput{FirstName: "Ana", LastName: "Silva", Category: "Pintura", AcceptedTerms: true}, attachments)

	require.NoError(t, err)
	assert.Equal(t, "7b1f0e9c-1111-4222-8333-944455556666", id)
	require.NotNil(t, created)
	assert.NotNil(t, created.Documents)
	assert.Empty(t, created.Documents)

	require.Len(t, gotDocs, 3)
	require.Len(t, gotSummary, 3)
	for i, d := range gotDocs {
		assert.Equal(t, d.ID, gotSummary[i].ID)
		assert.Equal(t, id, d.OwnerID)
		assert.NotEmpty(t, d.FilePath)
		assert.Empty(t, d.BlobRef)
		assert.Nil(t, d.Inline)
		assert.False(t, d.UploadedAt.IsZero())
		assert.Equal(t, "Ana Silva", d.CandidateName)
		assert.Equal(t, DownloadURL(id, d.ID), gotSummary[i].DownloadURL)
		_, statErr := os.Stat(d.FilePath)
		assert.NoError(t, statErr)
	}
	assert.Equal(t, DefaultAttachmentType, gotDocs[1].Type)
	assert.Equal(t, "retrato.png", gotDocs[1].Name)
	assert.Equal(t, model.DefaultContentType, gotDocs[1].ContentType)
	assert.EqualValues(t, 5, gotDocs[2].Size)

	_, err = os.Stat(f.disk.StagingDir(id))
	assert.True(t, errors.Is(err, os.ErrNotExist), "staging dir removed")
	f.apps.AssertExpectations(t)
}

func TestApplicationService_Submit_PinturaScenario(t *testing.T) {
	ctx := context.Background()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	res, err := resolver.New(disk, new(storeMocks.MockStorage), zerolog.Nop(), nil)
	require.NoError(t, err)

	apps := new(repoMocks.MockApplicationRepository)
	docs := new(repoMocks.MockDocumentRepository)
	svc := NewApplicationService(apps, docs, disk, res, zerolog.Nop())

	appID := "0d9c8b7a-6f5e-4d3c-8b2a-190817263544"
	stored := &model.Application{ID: appID, FirstName: "Ana", LastName: "Costa", Category: "Pintura"}
	apps.On("Create", ctx, mock.Anything).Return(stored, nil)
	apps.On("AttachDocuments", ctx, appID, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			stored.Documents = args.Get(3).([]model.DocumentSummary)
			d := args.Get(2).([]model.Document)[0]
			docs.On("FindByOwner", ctx, d.ID, appID).Return(&d, nil)
		}).Return(nil)
	apps.On("FindByID", ctx, appID).Return(stored, nil)

	id, err := svc.Submit(ctx, ApplicationInput{FirstName: "Ana", LastName: "Costa", Category: "Pintura"},
		[]Attachment{{Type: "id", Name: "id.pdf", ContentType: "application/pdf", Body: strings.NewReader("%PDF-1.4")}})
	require.NoError(t, err)

	summary, err := svc.Documents(ctx, id)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, "id.pdf", summary[0].Name)

	file, err := svc.Download(ctx, id, summary[0].ID)
	require.NoError(t, err)
	defer file.Body.Close()
	assert.Equal(t, model.LocatorDisk, file.Locator)
	assert.Equal(t, "application/pdf", file.ContentType)
	b, err := io.ReadAll(file.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(b))

	d, err := docs.FindByOwner(ctx, summary[0].ID, appID)
	require.NoError(t, err)
	assert.Contains(t, filepath.ToSlash(d.FilePath), "Pintura/Ana_Costa/id.pdf")
}

func TestApplicationService_Submit_NoAttachments(t *testing.T) {
	f := newApplicationFixture(t, nil)
	f.expectCreate()

	id, err := f.svc.Submit(context.Background(), ApplicationInput{FirstName: "Rui", LastName: "Neto"}, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	f.apps.AssertNotCalled(t, "AttachDocuments", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestApplicationService_Submit_Validation(t *testing.T) {
	f := newApplicationFixture(t, nil)
	years := -2

	_, err := f.svc.Submit(context.Background(), ApplicationInput{Email: "not-an-email", YearsExperience: &years}, nil)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"first_name":       "is required",
		"last_name":        "is required",
		"email":            "must be a valid e-mail",
		"years_experience": "must be >= 0",
	}, verr.Fields)
	f.apps.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	_, err = f.svc.Submit(context.Background(), ApplicationInput{FirstName: "A", LastName: "B"}, []Attachment{{Name: "x"}})
	assert.ErrorIs(t, err, ErrReaderNil)
}

func TestApplicationService_Submit_RollsBackOnAttachFailure(t *testing.T) {
	ctx := context.Background()
	f := newApplicationFixture(t, nil)
	f.expectCreate()

	var paths []string
	f.apps.On("AttachDocuments", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			for _, d := range args.Get(2).([]model.Document) {
				paths = append(paths, d.FilePath)
			}
		}).Return(errors.New("tx aborted"))
	f.apps.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	_, err := f.svc.Submit(ctx, ApplicationInput{FirstName: "Ana", LastName: "Silva", Category: "Pintura"}, []Attachment{
		{Name: "a.pdf", Body: strings.NewReader("a")},
		{Name: "b.pdf", Body: strings.NewReader("b")},
	})

	assert.ErrorContains(t, err, "attach documents: tx aborted")
	require.Len(t, paths, 2)
	for _, p := range paths {
		_, statErr := os.Stat(p)
		assert.True(t, errors.Is(statErr, os.ErrNotExist), "committed file %s removed", p)
	}
	f.apps.AssertCalled(t, "Delete", mock.Anything, mock.AnythingOfType("string"))
}

func TestApplicationService_Submit_RollbackKeepsEarlierApplicationFiles(t *testing.T) {
	ctx := context.Background()
	f := newApplicationFixture(t, nil)
	f.expectCreate()
	f.apps.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	var first, second []model.Document
	f.apps.On("AttachDocuments", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { first = args.Get(2).([]model.Document) }).Return(nil).Once()
	f.apps.On("AttachDocuments", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { second = args.Get(2).([]model.Document) }).Return(errors.New("tx aborted")).Once()

	in := ApplicationInput{FirstName: "Ana", LastName: "Silva", Category: "Pintura"}
	_, err := f.svc.Submit(ctx, in, []Attachment{{Name: "id.pdf", Body: strings.NewReader("first")}})
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, in, []Attachment{{Name: "id.pdf", Body: strings.NewReader("second")}})
	require.Error(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEqual(t, first[0].FilePath, second[0].FilePath)
	b, err := os.ReadFile(first[0].FilePath)
	require.NoError(t, err)
	assert.Equal(t, "first", string(b))
	_, err = os.Stat(second[0].FilePath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "failed submission's file removed")
}

func TestApplicationService_Submit_SameNameAttachments(t *testing.T) {
	ctx := context.Background()
	f := newApplicationFixture(t, nil)
	f.expectCreate()

	var docs []model.Document
	f.apps.On("AttachDocuments", ctx, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { docs = args.Get(2).([]model.Document) }).Return(nil)

	_, err := f.svc.Submit(ctx, ApplicationInput{FirstName: "Ana", LastName: "Silva", Category: "Pintura"}, []Attachment{
		{Type: "portfolio", Name: "foto.jpg", Body: strings.NewReader("ONE")},
		{Type: "portfolio", Name: "foto.jpg", Body: strings.NewReader("TWO")},
	})
	require.NoError(t, err)

	require.Len(t, docs, 2)
	assert.Equal(t, "foto.jpg", docs[0].Name)
	assert.Equal(t, "foto.jpg", docs[1].Name)
	assert.Equal(t, "foto.jpg", filepath.Base(docs[0].FilePath))
	assert.Equal(t, "foto (1).jpg", filepath.Base(docs[1].FilePath))
	for i, want := range []string{"ONE", "TWO"} {
		b, err := os.ReadFile(docs[i].FilePath)
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("client went away") }

func TestApplicationService_Submit_RollsBackOnStageFailure(t *testing.T) {
	ctx := context.Background()
	f := newApplicationFixture(t, nil)
	f.expectCreate()
	f.apps.On("Delete", mock.Anything, mock.AnythingOfType("string")).Return(nil)

	_, err := f.svc.Submit(ctx, ApplicationInput{FirstName: "Ana", LastName: "Silva"}, []Attachment{
		{Name: "ok.pdf", Body: strings.NewReader("ok")},
		{Name: "broken.pdf", Body: failingReader{}},
	})

	assert.ErrorContains(t, err, `stage attachment "broken.pdf"`)
	f.apps.AssertNotCalled(t, "AttachDocuments", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.apps.AssertCalled(t, "Delete", mock.Anything, mock.AnythingOfType("string"))

	entries, err := os.ReadDir(f.disk.Root())
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, ".staging", e.Name(), "nothing committed outside staging")
	}
}

func TestApplicationService_List(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		in, want int
	}{
		{0, DefaultApplicationsLimit},
		{-3, DefaultApplicationsLimit},
		{10, 10},
		{10000, MaxApplicationsLimit},
	}
	for _, tt := range tests {
		f := newApplicationFixture(t, nil)
		f.apps.On("List", ctx, tt.want).Return([]model.Application{}, nil)

		_, err := f.svc.List(ctx, tt.in)

		require.NoError(t, err)
		f.apps.AssertExpectations(t)
	}
}

func TestApplicationService_Documents(t *testing.T) {
	ctx := context.Background()
	f := newApplicationFixture(t, nil)
	appID := "0d9c8b7a-6f5e-4d3c-8b2a-190817263544"

	f.apps.On("FindByID", ctx, appID).Return(nil, sql.ErrNoRows)

	_, err := f.svc.Documents(ctx, appID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Documents(ctx, "65f1c0ffee")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestApplicationService_Download(t *testing.T) {
	ctx := context.Background()
	appID := "0d9c8b7a-6f5e-4d3c-8b2a-190817263544"
	docID := "9a7c1e2f-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

	t.Run("document of another application", func(t *testing.T) {
		f := newApplicationFixture(t, nil)
		f.docs.On("FindByOwner", ctx, docID, appID).Return(nil, sql.ErrNoRows)

		_, err := f.svc.Download(ctx, appID, docID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("legacy base64 only record", func(t *testing.T) {
		res, err := resolver.New(nil, nil, zerolog.Nop(), nil)
		require.NoError(t, err)
		f := newApplicationFixture(t, res)
		f.docs.On("FindByOwner", ctx, docID, appID).
			Return(&model.Document{ID: docID, Name: "cv.txt", Inline: &model.InlineLocator{Text: "b2bDoWNpbw=="}}, nil)

		file, err := f.svc.Download(ctx, appID, docID)

		require.NoError(t, err)
		b, _ := io.ReadAll(file.Body)
		assert.Equal(t, "ofácio", string(b))
	})

	t.Run("nothing resolvable", func(t *testing.T) {
		mRes := new(resolverMocks.MockFileResolver)
		f := newApplicationFixture(t, mRes)
		doc := &model.Document{ID: docID}
		f.docs.On("FindByOwner", ctx, docID, appID).Return(doc, nil)
		mRes.On("Resolve", ctx, doc).Return(nil, resolver.ErrNotFound)

		_, err := f.svc.Download(ctx, appID, docID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("bad document id", func(t *testing.T) {
		f := newApplicationFixture(t, nil)
		_, err := f.svc.Download(ctx, appID, "x")
		assert.ErrorIs(t, err, ErrInvalidID)
	})
}
