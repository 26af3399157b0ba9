package resolver

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"prentma/internal/model"
	"prentma/internal/storage"
)

// ErrNotFound is returned when no locator of a record yields content.
// Backend failures are folded into it and only logged.
var ErrNotFound = errors.New("document content not found")

// Outcome label values of document_resolutions_total.
const (
	OutcomeServed   = "served"
	OutcomeMissing  = "missing"
	OutcomeDangling = "dangling"
	OutcomeInvalid  = "undecodable"
)

// File is resolved document content. The caller owns Body and must close it.
type File struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	Filename    string
	Locator     model.LocatorKind
}

// FileOpener opens files on the serving host; *storage.Disk satisfies it.
type FileOpener interface {
	Open(path string) (*os.File, int64, error)
}

// Resolver turns a document record into a readable stream, whichever storage era wrote it.
type Resolver struct {
	disk        FileOpener
	blob        storage.Storage
	log         zerolog.Logger
	tracer      trace.Tracer
	resolutions *prometheus.CounterVec
}

// New builds a Resolver. When reg is nil no metrics are registered.
func New(disk FileOpener, blob storage.Storage, log zerolog.Logger, reg prometheus.Registerer) (*Resolver, error) {
	r := &Resolver{
		disk:   disk,
		blob:   blob,
		log:    log,
		tracer: otel.Tracer("prentma/internal/resolver"),
	}
	if reg != nil {
		r.resolutions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_resolutions_total",
				Help: "Document downloads by storage locator and outcome.",
			},
			[]string{"locator", "outcome"},
		)
		if err := reg.Register(r.resolutions); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Resolve tries the record's locators in order disk, blob, inline.
// A missing disk file falls through; a missing blob object or an undecodable
// inline payload ends resolution with ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, doc *model.Document) (*File, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.Resolve", trace.WithAttributes(attribute.String("document.id", doc.ID)))
	defer span.End()

	for _, loc := range doc.Locators() {
		var (
			f    *File
			err  error
			next bool
		)
		switch l := loc.(type) {
		case model.DiskLocator:
			f, err = r.fromDisk(doc, l)
			next = errors.Is(err, storage.ErrObjectNotFound)
		case model.BlobLocator:
			f, err = r.fromBlob(ctx, doc, l)
		case model.InlineLocator:
			f, err = r.fromInline(doc, l)
		}
		if err == nil {
			span.SetAttributes(attribute.String("document.locator", string(f.Locator)))
			return f, nil
		}
		if next {
			continue
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, ErrNotFound
	}

	r.observe("none", OutcomeMissing)
	span.SetStatus(codes.Error, "no usable locator")
	return nil, ErrNotFound
}

// ResolveBlob serves only the blob locator, for clients of the candidate document route.
func (r *Resolver) ResolveBlob(ctx context.Context, doc *model.Document) (*File, error) {
	ctx, span := r.tracer.Start(ctx, "resolver.ResolveBlob", trace.WithAttributes(attribute.String("document.id", doc.ID)))
	defer span.End()

	if doc.BlobRef == "" {
		r.observe(string(model.LocatorBlob), OutcomeMissing)
		span.SetStatus(codes.Error, "no blob reference")
		return nil, ErrNotFound
	}
	f, err := r.fromBlob(ctx, doc, model.BlobLocator{Ref: doc.BlobRef})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, ErrNotFound
	}
	return f, nil
}

func (r *Resolver) fromDisk(doc *model.Document, l model.DiskLocator) (*File, error) {
	fh, size, err := r.disk.Open(l.Path)
	if err != nil {
		r.observe(string(model.LocatorDisk), OutcomeMissing)
		r.log.Warn().Err(err).Str("document_id", doc.ID).Str("path", l.Path).Msg("disk locator unusable")
		return nil, err
	}
	r.observe(string(model.LocatorDisk), OutcomeServed)
	return &File{
		Body:        fh,
		Size:        size,
		ContentType: doc.ServedContentType(),
		Filename:    filename(doc, filepath.Base(l.Path)),
		Locator:     model.LocatorDisk,
	}, nil
}

func (r *Resolver) fromBlob(ctx context.Context, doc *model.Document, l model.BlobLocator) (*File, error) {
	body, info, err := r.blob.Get(ctx, l.Ref)
	if err != nil {
		outcome := OutcomeDangling
		if !errors.Is(err, storage.ErrObjectNotFound) {
			outcome = "error"
		}
		r.observe(string(model.LocatorBlob), outcome)
		r.log.Warn().Err(err).Str("document_id", doc.ID).Str("blob_ref", l.Ref).Msg("blob locator unusable")
		return nil, err
	}
	r.observe(string(model.LocatorBlob), OutcomeServed)
	size := info.Size
	if size <= 0 {
		size = doc.Size
	}
	return &File{
		Body:        body,
		Size:        size,
		ContentType: doc.ServedContentType(),
		Filename:    filename(doc, ""),
		Locator:     model.LocatorBlob,
	}, nil
}

func (r *Resolver) fromInline(doc *model.Document, l model.InlineLocator) (*File, error) {
	b, err := l.Bytes()
	if err != nil {
		r.observe(string(model.LocatorInline), OutcomeInvalid)
		r.log.Warn().Err(err).Str("document_id", doc.ID).Msg("inline payload undecodable")
		return nil, err
	}
	r.observe(string(model.LocatorInline), OutcomeServed)
	return &File{
		Body:        io.NopCloser(bytes.NewReader(b)),
		Size:        int64(len(b)),
		ContentType: doc.ServedContentType(),
		Filename:    filename(doc, ""),
		Locator:     model.LocatorInline,
	}, nil
}

func (r *Resolver) observe(locator, outcome string) {
	if r.resolutions != nil {
		r.resolutions.WithLabelValues(locator, outcome).Inc()
	}
}

// filename prefers the record name, then the disk base name, then the record id.
func filename(doc *model.Document, diskBase string) string {
	if doc.Name != "" {
		return doc.Name
	}
	if diskBase != "" && diskBase != "." && diskBase != string(filepath.Separator) {
		return diskBase
	}
	return doc.ID
}
