package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"prentma/internal/model"
	"prentma/internal/repository"
)

const uniqueViolation = "23505"

// RecordPostgres stores entities of type T as JSONB rows (id, data, created_at, updated_at).
type RecordPostgres[T any] struct {
	db    *sql.DB
	table string
}

// NewRecordPostgres creates a repository over table.
func NewRecordPostgres[T any](db *sql.DB, table string) *RecordPostgres[T] {
	return &RecordPostgres[T]{db: db, table: table}
}

// Create inserts a new record with a generated ID.
func (r *RecordPostgres[T]) Create(ctx context.Context, data T) (*model.Record[T], error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", r.table, err)
	}
	now := time.Now().UTC()
	q := fmt.Sprintf(`INSERT INTO %s (id, data, created_at, updated_at) VALUES ($1, $2, $3, $4)
		RETURNING id, data, created_at, updated_at`, r.table)
	rec, err := r.scan(r.db.QueryRowContext(ctx, q, uuid.NewString(), string(payload), now, now))
	return rec, mapWriteError(err)
}

// FindByID fetches one record.
func (r *RecordPostgres[T]) FindByID(ctx context.Context, id string) (*model.Record[T], error) {
	q := fmt.Sprintf(`SELECT id, data, created_at, updated_at FROM %s WHERE id = $1`, r.table)
	return r.scan(r.db.QueryRowContext(ctx, q, id))
}

// List returns records newest first. Each filter entry matches data->>key = value.
func (r *RecordPostgres[T]) List(ctx context.Context, filter map[string]string) ([]model.Record[T], error) {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		where []string
		args  []any
	)
	for _, k := range keys {
		args = append(args, k, filter[k])
		where = append(where, fmt.Sprintf("data->>$%d = $%d", len(args)-1, len(args)))
	}

	q := fmt.Sprintf(`SELECT id, data, created_at, updated_at FROM %s`, r.table)
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Record[T], 0)
	for rows.Next() {
		rec, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update replaces the stored entity.
func (r *RecordPostgres[T]) Update(ctx context.Context, id string, data T) (*model.Record[T], error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s record: %w", r.table, err)
	}
	q := fmt.Sprintf(`UPDATE %s SET data = $2, updated_at = $3 WHERE id = $1
		RETURNING id, data, created_at, updated_at`, r.table)
	rec, err := r.scan(r.db.QueryRowContext(ctx, q, id, string(payload), time.Now().UTC()))
	return rec, mapWriteError(err)
}

// Delete removes a record; sql.ErrNoRows when nothing was deleted.
func (r *RecordPostgres[T]) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.table), id)
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

func (r *RecordPostgres[T]) scan(s scanner) (*model.Record[T], error) {
	var (
		rec  model.Record[T]
		data []byte
	)
	if err := s.Scan(&rec.ID, &data, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &rec.Data); err != nil {
		return nil, fmt.Errorf("decode %s record %s: %w", r.table, rec.ID, err)
	}
	return &rec, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", repository.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
