package migrate

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"prentma/internal/repository"
	"prentma/internal/storage"
)

// Package migrate moves legacy inline payloads out of document records.
// Jobs only select records that still carry inline data, so re-running them is safe.
// They assume no concurrent writers.

// Summary reports what one job did to one collection.
type Summary struct {
	Collection string `json:"collection"`
	Scanned    int    `json:"scanned"`
	Migrated   int    `json:"migrated"`
	Skipped    int    `json:"skipped"`
}

// DiskMigrator writes inline application documents to the candidate's folder on disk.
type DiskMigrator struct {
	docs repository.DocumentRepository
	apps repository.ApplicationRepository
	disk *storage.Disk
	log  zerolog.Logger
}

func NewDiskMigrator(docs repository.DocumentRepository, apps repository.ApplicationRepository, disk *storage.Disk, log zerolog.Logger) *DiskMigrator {
	return &DiskMigrator{docs: docs, apps: apps, disk: disk, log: log}
}

// Run migrates every remaining inline record. Per-record failures are logged and skipped.
func (m *DiskMigrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{Collection: m.docs.Collection()}
	docs, err := m.docs.ListWithInline(ctx)
	if err != nil {
		return sum, fmt.Errorf("list %s: %w", sum.Collection, err)
	}

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		doc := &docs[i]
		sum.Scanned++
		log := m.log.With().Str("collection", sum.Collection).Str("document_id", doc.ID).Logger()

		if !doc.HasInline() {
			sum.Skipped++
			continue
		}

		app, err := m.apps.FindByID(ctx, doc.OwnerID)
		if err != nil {
			sum.Skipped++
			if errors.Is(err, sql.ErrNoRows) {
				log.Warn().Str("application_id", doc.OwnerID).Msg("owning application not found; skipped")
			} else {
				log.Error().Err(err).Msg("load application failed; skipped")
			}
			continue
		}

		b, err := doc.Inline.Bytes()
		if err != nil {
			sum.Skipped++
			log.Warn().Err(err).Msg("inline payload undecodable; skipped")
			continue
		}

		folder := storage.CandidateFolder(app.Category, app.FirstName, app.LastName)
		path, _, err := m.disk.Write(folder, storage.SafeFilename(doc.Name, doc.ID), bytes.NewReader(b))
		if err != nil {
			sum.Skipped++
			log.Error().Err(err).Msg("write file failed; skipped")
			continue
		}

		if err := m.docs.SetFilePath(ctx, doc.ID, path); err != nil {
			sum.Skipped++
			log.Error().Err(err).Msg("update record failed; skipped")
			if rmErr := m.disk.Remove(path); rmErr != nil {
				log.Error().Err(rmErr).Str("path", path).Msg("rollback remove file failed")
			}
			continue
		}

		sum.Migrated++
		log.Info().Str("path", path).Int("bytes", len(b)).Msg("moved to disk")
	}
	return sum, nil
}

// BlobMigrator uploads inline payloads of every document collection to the blob store.
type BlobMigrator struct {
	collections []repository.DocumentRepository
	store       storage.Storage
	log         zerolog.Logger
}

func NewBlobMigrator(store storage.Storage, log zerolog.Logger, collections ...repository.DocumentRepository) *BlobMigrator {
	return &BlobMigrator{collections: collections, store: store, log: log}
}

// Run migrates each collection in turn and returns one Summary per collection.
func (m *BlobMigrator) Run(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0, len(m.collections))
	for _, repo := range m.collections {
		sum, err := m.runCollection(ctx, repo)
		out = append(out, sum)
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

func (m *BlobMigrator) runCollection(ctx context.Context, repo repository.DocumentRepository) (Summary, error) {
	sum := Summary{Collection: repo.Collection()}
	docs, err := repo.ListWithInline(ctx)
	if err != nil {
		return sum, fmt.Errorf("list %s: %w", sum.Collection, err)
	}

	for i := range docs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		doc := &docs[i]
		sum.Scanned++
		log := m.log.With().Str("collection", sum.Collection).Str("document_id", doc.ID).Logger()
		if !doc.HasInline() {
			sum.Skipped++
			continue
		}

		b, err := doc.Inline.Bytes()
		if err != nil {
			sum.Skipped++
			log.Warn().Err(err).Msg("inline payload undecodable; skipped")
			continue
		}

		name := doc.Name
		if name == "" {
			name = doc.ID
		}
		contentType := storage.ContentTypeOf(doc.ContentType, b)
		key := storage.DocumentKey(name)

		if _, err := m.store.Put(ctx, key, bytes.NewReader(b), storage.PutObjectOptions{
			Size:        int64(len(b)),
			ContentType: contentType,
			Metadata: map[string]string{
				"original-filename": name,
				"document-id":       doc.ID,
			},
		}); err != nil {
			sum.Skipped++
			log.Error().Err(err).Msg("upload failed; skipped")
			continue
		}

		if err := repo.SetBlobRef(ctx, doc.ID, key, contentType); err != nil {
			sum.Skipped++
			if delErr := m.store.Delete(ctx, key); delErr != nil {
				log.Error().Err(delErr).Str("blob_ref", key).Msg("rollback delete failed")
			}
			log.Error().Err(err).Msg("update record failed; skipped")
			continue
		}

		sum.Migrated++
		log.Info().Str("blob_ref", key).Str("content_type", contentType).Int("bytes", len(b)).Msg("moved to blob store")
	}
	return sum, nil
}
