package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 32)...)
	pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n")
	jpgBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}, bytes.Repeat([]byte{1}, 32)...)
)

type scannerFunc func(ctx context.Context, path string) error

func (f scannerFunc) Scan(ctx context.Context, path string) error {
	return f(ctx, path)
}

func newTestStore(t *testing.T, scanner Scanner) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := NewStore(fs, "/uploads", 5, 1024, scanner)
	require.NoError(t, err)
	return store, fs
}

func storedFiles(t *testing.T, fs afero.Fs) []string {
	t.Helper()
	entries, err := afero.ReadDir(fs, "/uploads")
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestStore_SaveAll(t *testing.T) {
	t.Run("stores accepted files under generated names", func(t *testing.T) {
		store, fs := newTestStore(t, nil)

		names, err := store.SaveAll(context.Background(), []Upload{
			{Filename: "photo.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)},
			{Filename: "notice.pdf", ContentType: "application/pdf", Body: bytes.NewReader(pdfBytes)},
			{Filename: "door.jpg", ContentType: "image/jpg", Body: bytes.NewReader(jpgBytes)},
		})
		require.NoError(t, err)
		require.Len(t, names, 3)
		assert.Regexp(t, `\.png$`, names[0])
		assert.Regexp(t, `\.pdf$`, names[1])
		assert.Regexp(t, `\.jpg$`, names[2])
		assert.ElementsMatch(t, names, storedFiles(t, fs))
	})

	t.Run("rejects more files than allowed", func(t *testing.T) {
		store, fs := newTestStore(t, nil)
		uploads := make([]Upload, 6)
		for i := range uploads {
			uploads[i] = Upload{Filename: "a.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)}
		}

		_, err := store.SaveAll(context.Background(), uploads)
		assert.ErrorIs(t, err, ErrTooManyFiles)
		assert.Empty(t, storedFiles(t, fs))
	})

	t.Run("removes earlier files when a later one is spoofed", func(t *testing.T) {
		store, fs := newTestStore(t, nil)

		_, err := store.SaveAll(context.Background(), []Upload{
			{Filename: "ok.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)},
			{Filename: "evil.pdf", ContentType: "application/pdf", Body: bytes.NewReader([]byte("#!/bin/sh\necho pwned\n"))},
		})
		assert.ErrorIs(t, err, ErrRejected)
		assert.Empty(t, storedFiles(t, fs))
	})

	t.Run("rejects disallowed content types", func(t *testing.T) {
		store, _ := newTestStore(t, nil)
		_, err := store.SaveAll(context.Background(), []Upload{
			{Filename: "x.html", ContentType: "text/html", Body: bytes.NewReader([]byte("<html></html>"))},
		})
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		store, fs := newTestStore(t, nil)
		big := append(append([]byte{}, pngBytes...), bytes.Repeat([]byte{0}, 2048)...)
		_, err := store.SaveAll(context.Background(), []Upload{
			{Filename: "big.png", ContentType: "image/png", Body: bytes.NewReader(big)},
		})
		assert.ErrorIs(t, err, ErrRejected)
		assert.Empty(t, storedFiles(t, fs))
	})

	t.Run("removes every file when the scanner flags one", func(t *testing.T) {
		calls := 0
		scanner := scannerFunc(func(_ context.Context, _ string) error {
			calls++
			if calls == 2 {
				return errors.New("Eicar-Test-Signature FOUND")
			}
			return nil
		})
		store, fs := newTestStore(t, scanner)

		_, err := store.SaveAll(context.Background(), []Upload{
			{Filename: "one.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)},
			{Filename: "two.pdf", ContentType: "application/pdf", Body: bytes.NewReader(pdfBytes)},
		})
		assert.ErrorIs(t, err, ErrRejected)
		assert.Equal(t, 2, calls)
		assert.Empty(t, storedFiles(t, fs))
	})
}

func TestStore_Open(t *testing.T) {
	store, _ := newTestStore(t, nil)
	names, err := store.SaveAll(context.Background(), []Upload{
		{Filename: "photo.png", ContentType: "image/png", Body: bytes.NewReader(pngBytes)},
	})
	require.NoError(t, err)

	file, contentType, err := store.Open(names[0])
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "image/png", contentType)

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	_, _, err = store.Open("../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = store.Open("00000000-0000-0000-0000-000000000000.png")
	assert.ErrorIs(t, err, ErrNotFound)
}
