// Package upload persists request bodies to uniquely named temp files that
// are released exactly once.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Prefix starts every temp file name created by Persist.
const Prefix = "pdfcodes-"

// File is a persisted upload. Release removes it.
type File struct {
	Path string
	Size int64

	once sync.Once
	err  error
}

// Persist copies r into dir (os.TempDir when empty) under a fresh
// "pdfcodes-<uuid><ext>" name, ext taken from filename. A partially written
// file is removed before Persist returns an error.
func Persist(dir, filename string, r io.Reader) (*File, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	name := Prefix + uuid.NewString() + sanitizeExt(filepath.Ext(filename))
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // G304: name is generated
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write temp file: %w", err)
	}

	return &File{Path: path, Size: n}, nil
}

// Release removes the file. Only the first call does any work; later calls
// return the first result.
func (f *File) Release() error {
	if f == nil {
		return nil
	}
	f.once.Do(func() {
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			f.err = err
		}
	})
	return f.err
}

// ReleaseQuietly is Release with failures logged instead of returned.
func (f *File) ReleaseQuietly() {
	if err := f.Release(); err != nil {
		slog.Warn("Failed to remove temp file", "path", f.Path, "error", err)
	}
}

// Set owns several files released together.
type Set struct {
	mu    sync.Mutex
	files []*File
}

// Persist persists into the set.
func (s *Set) Persist(dir, filename string, r io.Reader) (*File, error) {
	f, err := Persist(dir, filename, r)
	if err != nil {
		return nil, err
	}
	s.Track(f)
	return f, nil
}

// Track adds an existing file to the set.
func (s *Set) Track(f *File) {
	s.mu.Lock()
	s.files = append(s.files, f)
	s.mu.Unlock()
}

// Path reserves a fresh name in dir for a file the caller will create,
// tracked so ReleaseQuietly removes it.
func (s *Set) Path(dir, ext string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	f := &File{Path: filepath.Join(dir, Prefix+uuid.NewString()+sanitizeExt(ext))}
	s.Track(f)
	return f.Path
}

// ReleaseQuietly releases every file, logging failures.
func (s *Set) ReleaseQuietly() {
	s.mu.Lock()
	files := s.files
	s.files = nil
	s.mu.Unlock()

	for _, f := range files {
		f.ReleaseQuietly()
	}
}

// sanitizeExt keeps a short alphanumeric extension and drops anything else.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if len(ext) < 2 || len(ext) > 6 || ext[0] != '.' {
		return ""
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ""
		}
	}
	return ext
}
