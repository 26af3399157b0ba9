package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrationStep struct {
	Name string
	SQL  string
}

// documentColumns is shared by every document-bearing table so the same
// repository code and the same resolver work across collections.
const documentColumns = `
  id             UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id       UUID        NOT NULL,
  type           TEXT        NOT NULL DEFAULT '',
  name           TEXT        NOT NULL DEFAULT '',
  description    TEXT,
  category       TEXT        NOT NULL DEFAULT '',
  candidate_name TEXT        NOT NULL DEFAULT '',
  content_type   TEXT        NOT NULL DEFAULT '',
  size           BIGINT      NOT NULL DEFAULT 0 CHECK (size >= 0),
  status         TEXT        NOT NULL DEFAULT 'received',
  file_path      TEXT,
  blob_ref       TEXT,
  inline_data    BYTEA,
  inline_text    TEXT,
  uploaded_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  CONSTRAINT %[1]s_has_locator CHECK (
    file_path IS NOT NULL OR blob_ref IS NOT NULL OR inline_data IS NOT NULL OR inline_text IS NOT NULL
  )`

const recordColumns = `
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()`

func documentTable(name string) migrationStep {
	return migrationStep{
		Name: "create_table_" + name,
		SQL:  fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+documentColumns+"\n);", name),
	}
}

func recordTable(name string) migrationStep {
	return migrationStep{
		Name: "create_table_" + name,
		SQL:  fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s\n);", name, recordColumns),
	}
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_applications",
		SQL: `CREATE TABLE IF NOT EXISTS applications (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  first_name       TEXT        NOT NULL DEFAULT '',
  last_name        TEXT        NOT NULL DEFAULT '',
  email            TEXT        NOT NULL DEFAULT '',
  phone            TEXT        NOT NULL DEFAULT '',
  city             TEXT        NOT NULL DEFAULT '',
  address          TEXT        NOT NULL DEFAULT '',
  category         TEXT        NOT NULL DEFAULT '',
  years_experience INTEGER,
  municipality     TEXT        NOT NULL DEFAULT '',
  accepted_terms   BOOLEAN     NOT NULL DEFAULT false,
  documents        JSONB       NOT NULL DEFAULT '[]'::jsonb,
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_applications_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_applications_created_at ON applications (created_at);`,
	},
	documentTable("application_documents"),
	{
		Name: "create_index_application_documents_owner",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_application_documents_owner ON application_documents (owner_id);`,
	},
	documentTable("documents"),
	{
		Name: "create_index_documents_owner_type",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_type ON documents (owner_id, type);`,
	},
	{
		Name: "create_index_documents_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_uploaded_at ON documents (uploaded_at);`,
	},
	recordTable("candidates"),
	{
		Name: "create_unique_index_candidates_email",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS idx_candidates_email ON candidates ((data->>'email'));`,
	},
	recordTable("categories"),
	recordTable("events"),
	recordTable("jurors"),
	{
		Name: "create_unique_index_jurors_email",
		SQL:  `CREATE UNIQUE INDEX IF NOT EXISTS idx_jurors_email ON jurors ((data->>'email'));`,
	},
	recordTable("evaluations"),
	recordTable("results"),
	recordTable("support_messages"),
}

// sentinelTable is created by the last table step; its presence means the schema is complete.
const sentinelTable = "support_messages"

// EnsureMigrated checks whether the schema exists and runs the DDL steps if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Msg("")

	var exists bool
	query := "SELECT to_regclass('public." + sentinelTable + "') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Str("error_message", fmt.Sprintf("failed to check sentinel table: %v", err)).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("")
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Msg("")

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Str("error_message", err.Error()).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Msg("")
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Msg("")
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Msg("")

	return nil
}
