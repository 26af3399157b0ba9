package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"prentma/internal/config"
	"prentma/internal/database"
	"prentma/internal/database/migration"
	"prentma/internal/logger"
	"prentma/internal/migrate"
	"prentma/internal/repository"
	"prentma/internal/repository/postgres"
	"prentma/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// env is the shared setup of every subcommand. The caller must defer env.Close().
type env struct {
	cfg *config.AppConfig
	log zerolog.Logger
	db  *sql.DB
}

func newEnv(ctx context.Context, job string) (*env, error) {
	cfg := config.Load()
	log := logger.Component(logger.New(os.Stderr, cfg.Location(), cfg.LogLevel), "migrate").
		With().Str("job", job).Logger()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &env{cfg: cfg, log: log, db: db}, nil
}

func (e *env) Close() error { return e.db.Close() }

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var rootCmd = &cobra.Command{
	Use:          "prentma-migrate",
	Short:        "Move legacy inline document payloads out of the record store",
	SilenceUsage: true,
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the database schema if it is missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context(), "schema")
		if err != nil {
			return err
		}
		defer e.Close()

		fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
		return nil
	},
}

var diskCmd = &cobra.Command{
	Use:   "disk",
	Short: "Write inline application documents to the upload folder and record their paths",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context(), "disk")
		if err != nil {
			return err
		}
		defer e.Close()

		disk, err := storage.NewDisk(e.cfg.UploadRoot)
		if err != nil {
			return fmt.Errorf("opening upload root: %w", err)
		}
		docs := postgres.NewDocumentPostgres(e.db, database.ApplicationDocuments)
		apps := postgres.NewApplicationPostgres(e.db, database.ApplicationDocuments)

		sum, err := migrate.NewDiskMigrator(docs, apps, disk, e.log).Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("disk migration: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), sum)
	},
}

var blobCmd = &cobra.Command{
	Use:   "blob",
	Short: "Upload inline documents of every collection to the blob store",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context(), "blob")
		if err != nil {
			return err
		}
		defer e.Close()

		store, err := storage.NewMinIO(e.cfg.MinIO)
		if err != nil {
			return fmt.Errorf("opening blob store: %w", err)
		}
		collections := make([]repository.DocumentRepository, 0, len(database.DocumentCollections))
		for _, name := range database.DocumentCollections {
			collections = append(collections, postgres.NewDocumentPostgres(e.db, name))
		}

		sums, err := migrate.NewBlobMigrator(store, e.log, collections...).Run(cmd.Context())
		if err != nil {
			return fmt.Errorf("blob migration: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), sums)
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd, diskCmd, blobCmd)
}
