package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"prentma/internal/model"
	"prentma/internal/service"
	serviceMocks "prentma/internal/service/mocks"
	"prentma/internal/sms"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	candidateID = "9f0c2a4e-7b1d-4c3e-8a5f-6d2b1e0c9a87"
	documentID  = "3e7a1c5b-2d4f-4a6e-9b8c-1f0e2d3c4b5a"
	appID       = "c0ffee00-1234-4abc-8def-0123456789ab"
)

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestBanner(t *testing.T) {
	app := fiber.New()
	app.Get("/api", Banner())

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api", nil))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "PRENTMA backend is running", body["message"])
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{err: service.ErrInvalidID, status: http.StatusBadRequest, code: "INVALID_ID"},
		{err: fmt.Errorf("%w: %w", service.ErrNotFound, errors.New("object missing")), status: http.StatusNotFound, code: "NOT_FOUND"},
		{err: fmt.Errorf("%w: jurors_email_key", service.ErrConflict), status: http.StatusConflict, code: "CONFLICT"},
		{err: &service.ValidationError{Fields: map[string]string{"name": "is required"}}, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{err: service.ErrFileRequired, status: http.StatusBadRequest, code: "FILE_REQUIRED"},
		{err: service.ErrReaderNil, status: http.StatusBadRequest, code: "FILE_REQUIRED"},
		{err: sms.ErrInvalidMessage, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{err: errors.New("pq: connection reset"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code+"/"+tt.err.Error(), func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return respondError(c, tt.err) })

			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, resp.StatusCode)
			body := decodeError(t, resp)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotContains(t, body.Error.Message, "connection reset")
		})
	}
}

func TestRouting(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	candidates := new(serviceMocks.MockRecordService[model.Candidate])
	RegisterRoutes(app, db, Services{
		Documents:    new(serviceMocks.MockDocumentService),
		Applications: new(serviceMocks.MockApplicationService),
		Candidates:   candidates,
		Categories:   new(serviceMocks.MockRecordService[model.Category]),
		Events:       new(serviceMocks.MockRecordService[model.Event]),
		Jurors:       new(serviceMocks.MockRecordService[model.Juror]),
		Evaluations:  new(serviceMocks.MockRecordService[model.Evaluation]),
		Results:      new(serviceMocks.MockRecordService[model.Result]),
		Support:      new(serviceMocks.MockSupportService),
		SMS:          &fakeSender{},
	})

	t.Run("banner", func(t *testing.T) {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/api/", nil))
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("entities are reachable with and without the api prefix", func(t *testing.T) {
		candidates.On("List", mock.Anything, map[string]string{}).Return([]model.Record[model.Candidate]{}, nil).Twice()

		for _, path := range []string{"/candidates", "/api/candidates"} {
			resp, _ := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		}
		candidates.AssertExpectations(t)
	})

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})
}
