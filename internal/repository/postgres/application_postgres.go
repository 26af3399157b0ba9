package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"prentma/internal/model"
	"prentma/internal/repository"
)

// ApplicationPostgres is a PostgreSQL implementation of repository.ApplicationRepository.
type ApplicationPostgres struct {
	db        *sql.DB
	docsTable string
}

// NewApplicationPostgres creates the repository. docsTable is the table application
// document records are attached to (database.ApplicationDocuments).
func NewApplicationPostgres(db *sql.DB, docsTable string) *ApplicationPostgres {
	return &ApplicationPostgres{db: db, docsTable: docsTable}
}

var _ repository.ApplicationRepository = (*ApplicationPostgres)(nil)

const applicationSelectColumns = `id, first_name, last_name, email, phone, city, address, category,
		years_experience, municipality, accepted_terms, documents, created_at`

// Create inserts an application row and returns the stored record.
func (r *ApplicationPostgres) Create(ctx context.Context, app *model.Application) (*model.Application, error) {
	summary, err := marshalSummary(app.Documents)
	if err != nil {
		return nil, err
	}
	q := `
		INSERT INTO applications (id, first_name, last_name, email, phone, city, address, category,
			years_experience, municipality, accepted_terms, documents, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + applicationSelectColumns
	row := r.db.QueryRowContext(ctx, q,
		app.ID,
		app.FirstName,
		app.LastName,
		app.Email,
		app.Phone,
		app.City,
		app.Address,
		app.Category,
		app.YearsExperience,
		app.Municipality,
		app.AcceptedTerms,
		summary,
		app.CreatedAt,
	)
	return scanApplication(row)
}

// FindByID fetches a single application.
func (r *ApplicationPostgres) FindByID(ctx context.Context, id string) (*model.Application, error) {
	q := `SELECT ` + applicationSelectColumns + ` FROM applications WHERE id = $1`
	return scanApplication(r.db.QueryRowContext(ctx, q, id))
}

// List returns the newest applications first.
func (r *ApplicationPostgres) List(ctx context.Context, limit int) ([]model.Application, error) {
	q := `SELECT ` + applicationSelectColumns + ` FROM applications ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Delete removes an application row.
func (r *ApplicationPostgres) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// AttachDocuments inserts all document rows and rewrites the summary atomically.
func (r *ApplicationPostgres) AttachDocuments(ctx context.Context, applicationID string, docs []model.Document, summary []model.DocumentSummary) (err error) {
	payload, err := marshalSummary(summary)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range docs {
		if _, err = insertDocument(ctx, tx, r.docsTable, &docs[i]); err != nil {
			return fmt.Errorf("insert document %s: %w", docs[i].ID, err)
		}
	}

	res, err := tx.ExecContext(ctx, `UPDATE applications SET documents = $2 WHERE id = $1`, applicationID, payload)
	if err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	if n, rerr := res.RowsAffected(); rerr == nil && n == 0 {
		err = sql.ErrNoRows
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func marshalSummary(s []model.DocumentSummary) (string, error) {
	if s == nil {
		s = []model.DocumentSummary{}
	}
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal documents summary: %w", err)
	}
	return string(b), nil
}

func scanApplication(s scanner) (*model.Application, error) {
	var (
		a       model.Application
		years   sql.NullInt64
		summary []byte
	)
	if err := s.Scan(
		&a.ID,
		&a.FirstName,
		&a.LastName,
		&a.Email,
		&a.Phone,
		&a.City,
		&a.Address,
		&a.Category,
		&years,
		&a.Municipality,
		&a.AcceptedTerms,
		&summary,
		&a.CreatedAt,
	); err != nil {
		return nil, err
	}
	if years.Valid {
		y := int(years.Int64)
		a.YearsExperience = &y
	}
	a.Documents = []model.DocumentSummary{}
	if len(summary) > 0 {
		if err := json.Unmarshal(summary, &a.Documents); err != nil {
			return nil, fmt.Errorf("decode documents summary: %w", err)
		}
	}
	return &a, nil
}
