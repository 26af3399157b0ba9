package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"prentma/docs"
	"prentma/internal/config"
	"prentma/internal/database"
	"prentma/internal/database/migration"
	handlers "prentma/internal/http/handler"
	"prentma/internal/http/middleware"
	"prentma/internal/logger"
	"prentma/internal/model"
	tracing "prentma/internal/otel"
	"prentma/internal/repository/postgres"
	"prentma/internal/resolver"
	"prentma/internal/service"
	"prentma/internal/sms"
	"prentma/internal/storage"
)

// @title PRENTMA API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.Location(), cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger.Component(log, "otel"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}
	disk, err := storage.NewDisk(cfg.UploadRoot)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upload root")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	res, err := resolver.New(disk, objStore, logger.Component(log, "resolver"), reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize resolver")
	}

	// Initialize repositories and services
	candidateDocs := postgres.NewDocumentPostgres(db, database.CandidateDocuments)
	applicationDocs := postgres.NewDocumentPostgres(db, database.ApplicationDocuments)
	apps := postgres.NewApplicationPostgres(db, database.ApplicationDocuments)

	svc := handlers.Services{
		Documents:    service.NewDocumentService(objStore, candidateDocs, res),
		Applications: service.NewApplicationService(apps, applicationDocs, disk, res, logger.Component(log, "intake")),
		Candidates:   service.NewRecordService[model.Candidate](postgres.NewRecordPostgres[model.Candidate](db, database.Candidates)),
		Categories:   service.NewRecordService[model.Category](postgres.NewRecordPostgres[model.Category](db, database.Categories)),
		Events:       service.NewRecordService[model.Event](postgres.NewRecordPostgres[model.Event](db, database.Events)),
		Jurors:       service.NewRecordService[model.Juror](postgres.NewRecordPostgres[model.Juror](db, database.Jurors)),
		Evaluations:  service.NewRecordService[model.Evaluation](postgres.NewRecordPostgres[model.Evaluation](db, database.Evaluations)),
		Results:      service.NewRecordService[model.Result](postgres.NewRecordPostgres[model.Result](db, database.Results)),
		Support:      service.NewSupportService(postgres.NewRecordPostgres[model.SupportMessage](db, database.SupportMessages)),
		SMS:          sms.NewClient(cfg.SMS, logger.Component(log, "sms")),
	}

	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.MaxUploadMB * 1024 * 1024,
		DisableStartupMessage: !cfg.Reload,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(logger.Component(log, "http")))
	app.Use(cors.New(cors.Config{AllowOrigins: strings.Join(cfg.CORSOrigins, ",")}))
	app.Use(middleware.Tracing(tracing.DefaultServiceName))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, db, svc)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		log.Info().Str("event", "shutdown").Msg("stopping http server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("http shutdown failed")
		}
	}()

	log.Info().Str("event", "listen").Str("addr", cfg.ListenAddr()).Str("app_host", cfg.AppHost).Msg("starting http server")
	if err := app.Listen(cfg.ListenAddr()); err != nil {
		log.Error().Err(err).Msg("failed to start server")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error().Err(err).Msg("tracing shutdown failed")
	}
}
