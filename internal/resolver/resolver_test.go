package resolver

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"prentma/internal/model"
	"prentma/internal/storage"
	"prentma/internal/storage/mocks"
)

func newResolver(t *testing.T, blob storage.Storage) (*Resolver, *storage.Disk) {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	r, err := New(disk, blob, zerolog.Nop(), reg)
	require.NoError(t, err)
	return r, disk
}

func readAll(t *testing.T, f *File) string {
	t.Helper()
	defer f.Body.Close()
	b, err := io.ReadAll(f.Body)
	require.NoError(t, err)
	return string(b)
}

func TestResolve_InlineRawBytes(t *testing.T) {
	r, _ := newResolver(t, new(mocks.MockStorage))
	pdf := []byte{0x25, 0x50, 0x44, 0x46}
	doc := &model.Document{ID: "d1", Name: "id.pdf", ContentType: "application/pdf", Inline: &model.InlineLocator{Raw: pdf}}

	f, err := r.Resolve(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, model.LocatorInline, f.Locator)
	assert.Equal(t, "application/pdf", f.ContentType)
	assert.Equal(t, "id.pdf", f.Filename)
	assert.EqualValues(t, 4, f.Size)
	assert.Equal(t, string(pdf), readAll(t, f))
}

func TestResolve_InlineBase64(t *testing.T) {
	r, _ := newResolver(t, new(mocks.MockStorage))

	tests := []struct {
		name string
		text string
	}{
		{"standard", "aGVsbG8="},
		{"unpadded", "aGVsbG8"},
		{"url safe", base64.URLEncoding.EncodeToString([]byte("hello"))},
		{"surrounding whitespace", "  aGVs\nbG8=\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &model.Document{ID: "d2", Inline: &model.InlineLocator{Text: tt.text}}

			f, err := r.Resolve(context.Background(), doc)

			require.NoError(t, err)
			assert.Equal(t, "hello", readAll(t, f))
			assert.Equal(t, model.DefaultContentType, f.ContentType)
			assert.Equal(t, "d2", f.Filename)
		})
	}
}

func TestResolve_InlineUndecodable(t *testing.T) {
	r, _ := newResolver(t, new(mocks.MockStorage))
	doc := &model.Document{ID: "d3", Inline: &model.InlineLocator{Text: "%%not base64%%"}}

	_, err := r.Resolve(context.Background(), doc)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("inline", OutcomeInvalid)))
}

func TestResolve_DiskBeatsBlob(t *testing.T) {
	blob := new(mocks.MockStorage)
	r, disk := newResolver(t, blob)
	path, _, err := disk.Write(storage.CandidateFolder("Pintura", "Ana", "Silva"), "id.pdf", strings.NewReader("disk bytes"))
	require.NoError(t, err)
	doc := &model.Document{ID: "d4", FilePath: path, BlobRef: "documents/x.pdf"}

	f, err := r.Resolve(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, model.LocatorDisk, f.Locator)
	assert.Equal(t, "id.pdf", f.Filename, "disk base name when the record has no name")
	assert.Equal(t, "disk bytes", readAll(t, f))
	blob.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestResolve_MissingDiskFallsThroughToBlob(t *testing.T) {
	blob := new(mocks.MockStorage)
	r, disk := newResolver(t, blob)
	doc := &model.Document{ID: "d5", Name: "cv.pdf", Size: 9, FilePath: filepath.Join(disk.Root(), "gone.pdf"), BlobRef: "documents/cv.pdf"}

	blob.On("Get", mock.Anything, "documents/cv.pdf").
		Return(io.NopCloser(strings.NewReader("blob data")), storage.ObjectInfo{Key: "documents/cv.pdf"}, nil)

	f, err := r.Resolve(context.Background(), doc)

	require.NoError(t, err)
	assert.Equal(t, model.LocatorBlob, f.Locator)
	assert.EqualValues(t, 9, f.Size)
	assert.Equal(t, "blob data", readAll(t, f))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("disk", OutcomeMissing)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolutions.WithLabelValues("blob", OutcomeServed)))
}

func TestResolve_DanglingBlobStops(t *testing.T) {
	blob := new(mocks.MockStorage)
	r, _ := newResolver(t, blob)
	doc := &model.Document{ID: "d6", BlobRef: "documents/gone.pdf", Inline: &model.InlineLocator{Text: "aGVsbG8="}}

	blob.On("Get", mock.Anything, "documents/gone.pdf").Return(nil, storage.ObjectInfo{}, storage.ErrObjectNotFound)

	_, err := r.Resolve(context.Background(), doc)

	assert.ErrorIs(t, err, ErrNotFound)
	blob.AssertExpectations(t)
}

func TestResolve_BackendErrorIsNotLeaked(t *testing.T) {
	blob := new(mocks.MockStorage)
	r, _ := newResolver(t, blob)
	doc := &model.Document{ID: "d7", BlobRef: "documents/a.pdf"}

	blob.On("Get", mock.Anything, "documents/a.pdf").Return(nil, storage.ObjectInfo{}, errors.New("dial tcp: connection refused"))

	_, err := r.Resolve(context.Background(), doc)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestResolve_NoLocators(t *testing.T) {
	r, disk := newResolver(t, new(mocks.MockStorage))

	_, err := r.Resolve(context.Background(), &model.Document{ID: "d8"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Resolve(context.Background(), &model.Document{ID: "d9", FilePath: filepath.Join(disk.Root(), "nope")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveBlob(t *testing.T) {
	blob := new(mocks.MockStorage)
	r, _ := newResolver(t, blob)

	t.Run("inline only is not served", func(t *testing.T) {
		_, err := r.ResolveBlob(context.Background(), &model.Document{ID: "d1", Inline: &model.InlineLocator{Text: "aGVsbG8="}})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blob served with stored size", func(t *testing.T) {
		blob.On("Get", mock.Anything, "documents/p.png").
			Return(io.NopCloser(strings.NewReader("png")), storage.ObjectInfo{Size: 3}, nil).Once()

		f, err := r.ResolveBlob(context.Background(), &model.Document{ID: "d2", Name: "p.png", ContentType: "image/png", BlobRef: "documents/p.png"})

		require.NoError(t, err)
		assert.EqualValues(t, 3, f.Size)
		assert.Equal(t, "image/png", f.ContentType)
		assert.Equal(t, "png", readAll(t, f))
	})
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(nil, nil, zerolog.Nop(), reg)
	require.NoError(t, err)
	_, err = New(nil, nil, zerolog.Nop(), reg)
	assert.Error(t, err)

	r, err := New(nil, nil, zerolog.Nop(), nil)
	require.NoError(t, err)
	assert.Nil(t, r.resolutions)
}
