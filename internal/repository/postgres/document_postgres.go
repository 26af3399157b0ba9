package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"prentma/internal/model"
	"prentma/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository
// for one document-bearing table.
type DocumentPostgres struct {
	db    *sql.DB
	table string
}

// NewDocumentPostgres creates a repository over the given table
// (database.CandidateDocuments or database.ApplicationDocuments).
func NewDocumentPostgres(db *sql.DB, table string) *DocumentPostgres {
	return &DocumentPostgres{db: db, table: table}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentSelectColumns = `id, owner_id, type, name, description, category, candidate_name, content_type, size, status,
		file_path, blob_ref, inline_data, inline_text, uploaded_at, created_at, updated_at`

// execQuerier is satisfied by both *sql.DB and *sql.Tx.
type execQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Collection returns the table name.
func (r *DocumentPostgres) Collection() string { return r.table }

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	return insertDocument(ctx, r.db, r.table, doc)
}

func insertDocument(ctx context.Context, q execQuerier, table string, doc *model.Document) (*model.Document, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, owner_id, type, name, description, category, candidate_name, content_type, size, status,
			file_path, blob_ref, inline_data, inline_text, uploaded_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING %s
	`, table, documentSelectColumns)

	var inlineData, inlineText any
	if doc.Inline != nil {
		if doc.Inline.Raw != nil {
			inlineData = doc.Inline.Raw
		}
		inlineText = nullString(doc.Inline.Text)
	}

	row := q.QueryRowContext(ctx, query,
		doc.ID,
		doc.OwnerID,
		doc.Type,
		doc.Name,
		doc.Description,
		doc.Category,
		doc.CandidateName,
		doc.ContentType,
		doc.Size,
		doc.Status,
		nullString(doc.FilePath),
		nullString(doc.BlobRef),
		inlineData,
		inlineText,
		doc.UploadedAt,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, documentSelectColumns, r.table)
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// FindByOwner fetches a document by ID only when it belongs to ownerID.
func (r *DocumentPostgres) FindByOwner(ctx context.Context, id, ownerID string) (*model.Document, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND owner_id = $2`, documentSelectColumns, r.table)
	return scanDocument(r.db.QueryRowContext(ctx, q, id, ownerID))
}

// List returns documents newest first.
func (r *DocumentPostgres) List(ctx context.Context, f repository.DocumentFilter) ([]model.Document, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s`, documentSelectColumns, r.table)
	var args []any
	if f.OwnerID != "" {
		q += ` WHERE owner_id = $1`
		args = append(args, f.OwnerID)
	}
	q += ` ORDER BY uploaded_at DESC, id DESC`
	return r.queryDocuments(ctx, q, args...)
}

// ListWithInline returns the records a migration job still has to move.
func (r *DocumentPostgres) ListWithInline(ctx context.Context) ([]model.Document, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE inline_data IS NOT NULL OR inline_text IS NOT NULL ORDER BY created_at, id`,
		documentSelectColumns, r.table)
	return r.queryDocuments(ctx, q)
}

// SetFilePath moves a record to the disk locator.
func (r *DocumentPostgres) SetFilePath(ctx context.Context, id, path string) error {
	q := fmt.Sprintf(`UPDATE %s SET file_path = $2, inline_data = NULL, inline_text = NULL, updated_at = $3 WHERE id = $1`, r.table)
	return r.execOne(ctx, q, id, path, time.Now().UTC())
}

// SetBlobRef moves a record to the blob locator.
func (r *DocumentPostgres) SetBlobRef(ctx context.Context, id, ref, contentType string) error {
	q := fmt.Sprintf(`UPDATE %s SET blob_ref = $2, content_type = $3, inline_data = NULL, inline_text = NULL, updated_at = $4 WHERE id = $1`, r.table)
	return r.execOne(ctx, q, id, ref, contentType, time.Now().UTC())
}

func (r *DocumentPostgres) execOne(ctx context.Context, q string, args ...any) error {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d           model.Document
		description sql.NullString
		filePath    sql.NullString
		blobRef     sql.NullString
		inlineData  []byte
		inlineText  sql.NullString
	)
	if err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Type,
		&d.Name,
		&description,
		&d.Category,
		&d.CandidateName,
		&d.ContentType,
		&d.Size,
		&d.Status,
		&filePath,
		&blobRef,
		&inlineData,
		&inlineText,
		&d.UploadedAt,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if description.Valid {
		d.Description = &description.String
	}
	d.FilePath = filePath.String
	d.BlobRef = blobRef.String
	if inlineData != nil || inlineText.Valid {
		d.Inline = &model.InlineLocator{Raw: inlineData, Text: inlineText.String}
	}
	return &d, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
