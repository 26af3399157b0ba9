package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// DefaultCategoryFolder is used when a submission has no category.
const DefaultCategoryFolder = "SemCategoria"

const (
	stagingDir      = ".staging"
	maxNameAttempts = 1000
)

// ErrNameTaken is returned when no free file name is left for a document.
var ErrNameTaken = errors.New("no free file name")

// Disk stores documents on the serving host under root/{category}/{candidate}/{filename}.
// Returned paths include root; they are what document records store.
type Disk struct {
	root string
}

// NewDisk creates the root directory if needed.
func NewDisk(root string) (*Disk, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload root: %w", err)
	}
	return &Disk{root: root}, nil
}

// Root returns the upload root directory.
func (d *Disk) Root() string { return d.root }

// CandidateFolder derives the relative folder for a candidate: {category}/{first}_{last},
// with whitespace replaced by underscores.
func CandidateFolder(category, firstName, lastName string) string {
	cat := sanitizeSegment(category)
	if cat == "" {
		cat = DefaultCategoryFolder
	}
	name := sanitizeSegment(strings.TrimSpace(firstName + "_" + lastName))
	return filepath.Join(cat, name)
}

// SafeFilename strips any directory part from name. Returns fallback for empty or dot names.
func SafeFilename(name, fallback string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case "", ".", "..", "/":
		return fallback
	}
	return base
}

func sanitizeSegment(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, s)
	if s == "." || s == ".." {
		return "_"
	}
	return s
}

// Write stores r under root/folder, creating directories as needed, and returns the
// stored path and the number of bytes written. An existing file is never replaced:
// the name gets a " (n)" suffix until it is free.
func (d *Disk) Write(folder, filename string, r io.Reader) (string, int64, error) {
	dir := filepath.Join(d.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}
	for n := 0; n < maxNameAttempts; n++ {
		path := filepath.Join(dir, UniqueName(filename, n))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("failed to create file: %w", err)
		}
		return copyInto(f, path, r)
	}
	return "", 0, fmt.Errorf("%w: %s", ErrNameTaken, filepath.Join(dir, filename))
}

// Stage writes an attachment into the staging area of one submission.
func (d *Disk) Stage(batchID, filename string, r io.Reader) (string, int64, error) {
	path := filepath.Join(d.StagingDir(batchID), filename)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	return copyInto(f, path, r)
}

// StagingDir is the holding directory for one submission's attachments.
func (d *Disk) StagingDir(batchID string) string {
	return filepath.Join(d.root, stagingDir, batchID)
}

// Commit moves a staged file under root/folder and returns the final path. Like Write it
// never replaces an existing file, so the returned path is always one this call created.
func (d *Disk) Commit(stagedPath, folder, filename string) (string, error) {
	dir := filepath.Join(d.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	for n := 0; n < maxNameAttempts; n++ {
		dst := filepath.Join(dir, UniqueName(filename, n))
		err := os.Link(stagedPath, dst)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to move staged file: %w", err)
		}
		// A leftover staged link is cleared with the staging dir.
		_ = os.Remove(stagedPath)
		return dst, nil
	}
	return "", fmt.Errorf("%w: %s", ErrNameTaken, filepath.Join(dir, filename))
}

// UniqueName returns name for n == 0 and "stem (n).ext" otherwise.
func UniqueName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	return fmt.Sprintf("%s (%d)%s", stem, n, ext)
}

// Open opens a stored file for reading. A missing file yields ErrObjectNotFound.
func (d *Disk) Open(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, fmt.Errorf("%w: %s", ErrObjectNotFound, path)
		}
		return nil, 0, fmt.Errorf("failed to open file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat file: %w", err)
	}
	if st.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s is a directory", ErrObjectNotFound, path)
	}
	return f, st.Size(), nil
}

// Remove deletes a stored file; a missing file is not an error.
func (d *Disk) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// RemoveAll deletes a directory tree such as a staging directory.
func (d *Disk) RemoveAll(dir string) error {
	return os.RemoveAll(dir)
}

func copyInto(f *os.File, path string, r io.Reader) (string, int64, error) {
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}
	return path, n, nil
}
