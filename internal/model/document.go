package model

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"
)

// DefaultContentType is served when a document record carries no content type.
const DefaultContentType = "application/octet-stream"

// DefaultDocumentStatus is assigned to freshly uploaded documents.
const DefaultDocumentStatus = "received"

// Document is the metadata of one uploaded file and the place its bytes live.
// OwnerID points at a candidate (candidate documents) or at an application (application documents).
//
// Exactly one locator is normally populated; which one depends on the era the record was written in.
// When several are present, Locators reports them in resolution order.
type Document struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"owner_id"`
	Type          string    `json:"type"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Category      string    `json:"category,omitempty"`
	CandidateName string    `json:"candidate_name,omitempty"`
	ContentType   string    `json:"content_type"`
	Size          int64     `json:"size"`
	Status        string    `json:"status"`
	UploadedAt    time.Time `json:"uploaded_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	DownloadURL   string    `json:"download_url,omitempty"`

	FilePath string         `json:"-"`
	BlobRef  string         `json:"-"`
	Inline   *InlineLocator `json:"-"`
}

// LocatorKind names a storage strategy.
type LocatorKind string

const (
	LocatorDisk   LocatorKind = "disk"
	LocatorBlob   LocatorKind = "blob"
	LocatorInline LocatorKind = "inline"
)

// Locator is one of DiskLocator, BlobLocator or InlineLocator.
type Locator interface {
	Kind() LocatorKind
	locator()
}

// DiskLocator points at a file on the serving host.
type DiskLocator struct {
	Path string
}

// BlobLocator is the object key of a blob-store object.
type BlobLocator struct {
	Ref string
}

// InlineLocator is the legacy payload embedded in the record itself.
// Raw holds binary bytes; Text holds the base64 form. At most one is set.
type InlineLocator struct {
	Raw  []byte
	Text string
}

func (DiskLocator) Kind() LocatorKind   { return LocatorDisk }
func (BlobLocator) Kind() LocatorKind   { return LocatorBlob }
func (InlineLocator) Kind() LocatorKind { return LocatorInline }

func (DiskLocator) locator()   {}
func (BlobLocator) locator()   {}
func (InlineLocator) locator() {}

// ErrUndecodablePayload is returned when an inline payload is neither raw bytes nor valid base64.
var ErrUndecodablePayload = errors.New("inline payload cannot be decoded")

// Bytes returns the inline payload as raw bytes, decoding base64 text when needed.
func (l InlineLocator) Bytes() ([]byte, error) {
	if l.Raw != nil {
		return l.Raw, nil
	}
	return DecodeBase64(l.Text)
}

// DecodeBase64 accepts standard, unpadded and URL-safe base64, ignoring embedded line breaks.
func DecodeBase64(s string) ([]byte, error) {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', '\t', ' ':
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil, ErrUndecodablePayload
	}
	// data: URIs from browser FileReader
	if i := strings.Index(s, ";base64,"); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+len(";base64,"):]
	}
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, nil
		}
	}
	return nil, ErrUndecodablePayload
}

// Locators returns the populated storage locators in resolution order: disk, blob, inline.
func (d *Document) Locators() []Locator {
	var out []Locator
	if d.FilePath != "" {
		out = append(out, DiskLocator{Path: d.FilePath})
	}
	if d.BlobRef != "" {
		out = append(out, BlobLocator{Ref: d.BlobRef})
	}
	if d.HasInline() {
		out = append(out, *d.Inline)
	}
	return out
}

// HasInline reports whether the record still carries a legacy inline payload.
func (d *Document) HasInline() bool {
	return d.Inline != nil && (d.Inline.Raw != nil || d.Inline.Text != "")
}

// ServedContentType is the content type used when streaming the document.
func (d *Document) ServedContentType() string {
	if d.ContentType != "" {
		return d.ContentType
	}
	return DefaultContentType
}
