package storage

import (
	"path"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const defaultContentType = "application/octet-stream"

// DocumentKey is the object key for a new document blob: documents/<uuid><ext of name>.
func DocumentKey(name string) string {
	return path.Join("documents", uuid.NewString()+filepath.Ext(name))
}

// ContentTypeOf keeps a declared content type and otherwise sniffs b.
func ContentTypeOf(declared string, b []byte) string {
	if declared != "" {
		return declared
	}
	if mt := mimetype.Detect(b); mt != nil {
		return mt.String()
	}
	return defaultContentType
}
