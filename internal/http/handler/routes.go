package handler

import (
	"context"
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"prentma/internal/model"
	"prentma/internal/service"
	"prentma/internal/sms"
)

// SMSSender forwards one text message to the gateway.
type SMSSender interface {
	Send(ctx context.Context, msg sms.Message) (*sms.Result, error)
}

// Services is everything the HTTP layer calls into.
type Services struct {
	Documents    service.DocumentService
	Applications service.ApplicationService
	Candidates   service.RecordService[model.Candidate]
	Categories   service.RecordService[model.Category]
	Events       service.RecordService[model.Event]
	Jurors       service.RecordService[model.Juror]
	Evaluations  service.RecordService[model.Evaluation]
	Results      service.RecordService[model.Result]
	Support      service.SupportService
	SMS          SMSSender
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Document and entity routes are mounted both at the root and under /api.
func RegisterRoutes(app *fiber.App, db *sql.DB, svc Services) {
	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Get("/", Banner())

	api.Post("/applications", SubmitApplication(svc.Applications))
	api.Get("/applications", ListApplications(svc.Applications))
	api.Get("/applications/:id/documents", ListApplicationDocuments(svc.Applications))
	api.Get("/applications/:id/documents/:docId", DownloadApplicationDocument(svc.Applications))

	api.Post("/support", SubmitSupport(svc.Support))
	api.Post("/send-sms", SendSMS(svc.SMS))

	for _, r := range []fiber.Router{app, api} {
		r.Post("/documents", UploadDocument(svc.Documents))
		r.Get("/documents", ListDocuments(svc.Documents))
		r.Get("/documents/:id/download", DownloadDocument(svc.Documents))

		registerRecords(r.Group("/candidates"), svc.Candidates, "categoryId")
		registerRecords(r.Group("/categories"), svc.Categories)
		registerRecords(r.Group("/events"), svc.Events)
		registerRecords(r.Group("/jurors"), svc.Jurors)
		registerRecords(r.Group("/evaluations"), svc.Evaluations, "candidateId", "jurorId")
		registerRecords(r.Group("/results"), svc.Results, "candidateId", "categoryId")
	}
}
