// Package storage keeps violation attachments on disk.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

var (
	ErrRejected     = errors.New("attachment rejected")
	ErrTooManyFiles = errors.New("too many attachments")
	ErrNotFound     = errors.New("attachment not found")
)

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
}

var storedName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z0-9]{2,5}$`)

// File is an opened stored attachment.
type File = afero.File

// Upload is one received file before validation.
type Upload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// Scanner inspects a stored file and returns an error when it must not be kept.
type Scanner interface {
	Scan(ctx context.Context, path string) error
}

type Store struct {
	fs       afero.Fs
	dir      string
	maxFiles int
	maxBytes int64
	scanner  Scanner
}

func NewStore(fs afero.Fs, dir string, maxFiles int, maxBytes int64, scanner Scanner) (*Store, error) {
	if err := fs.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Store{
		fs:       fs,
		dir:      dir,
		maxFiles: maxFiles,
		maxBytes: maxBytes,
		scanner:  scanner,
	}, nil
}

// SaveAll validates and writes every upload. On any failure every file
// written by this call is removed before the error is returned.
func (s *Store) SaveAll(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) > s.maxFiles {
		return nil, fmt.Errorf("%w: at most %d files", ErrTooManyFiles, s.maxFiles)
	}

	names := make([]string, 0, len(uploads))
	for _, upload := range uploads {
		name, err := s.save(ctx, upload)
		if err != nil {
			s.Remove(names...)
			return nil, err
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Store) save(ctx context.Context, upload Upload) (string, error) {
	data, err := io.ReadAll(io.LimitReader(upload.Body, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", upload.Filename, err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrRejected, upload.Filename, s.maxBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrRejected, upload.Filename)
	}

	declared := normalizeContentType(upload.ContentType)
	if !allowed(declared) {
		return "", fmt.Errorf("%w: %s has unsupported content type %q", ErrRejected, upload.Filename, upload.ContentType)
	}
	detected := mimetype.Detect(data)
	if !detected.Is(declared) {
		return "", fmt.Errorf("%w: %s content does not match %s", ErrRejected, upload.Filename, declared)
	}

	name := uuid.NewString() + detected.Extension()
	path := filepath.Join(s.dir, name)
	if err := afero.WriteFile(s.fs, path, data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", upload.Filename, err)
	}

	if s.scanner != nil {
		if err := s.scanner.Scan(ctx, path); err != nil {
			_ = s.fs.Remove(path)
			return "", fmt.Errorf("%w: %s failed malware scan: %v", ErrRejected, upload.Filename, err)
		}
	}
	return name, nil
}

// Remove deletes stored attachments, ignoring ones already gone.
func (s *Store) Remove(names ...string) {
	for _, name := range names {
		if !storedName.MatchString(name) {
			continue
		}
		_ = s.fs.Remove(filepath.Join(s.dir, name))
	}
}

// Open returns a stored attachment with its detected content type.
func (s *Store) Open(name string) (File, string, error) {
	if !storedName.MatchString(name) {
		return nil, "", ErrNotFound
	}
	file, err := s.fs.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	head := make([]byte, 3072)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		_ = file.Close()
		return nil, "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return nil, "", err
	}
	return file, mimetype.Detect(head[:n]).String(), nil
}

func normalizeContentType(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if idx := strings.Index(value, ";"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	if value == "image/jpg" {
		return "image/jpeg"
	}
	return value
}

func allowed(contentType string) bool {
	for _, t := range allowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}
