package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileBackend stores the sealed blob as a single file on the local file
// system. Writes go through a temporary file and rename so a crashed
// write never leaves a truncated blob behind.
type FileBackend struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend at the given path. The
// parent directory is created if it does not exist.
func NewFileBackend(path string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}

	return &FileBackend{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// Read retrieves the sealed blob from disk.
// Returns ErrBlobNotFound if the file doesn't exist.
func (b *FileBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blob file: %w", err)
	}

	b.log.Debug("Read sealed blob from file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return data, nil
}

// Write replaces the sealed blob on disk atomically.
func (b *FileBackend) Write(ctx context.Context, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.path), ".blob-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary blob file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to restrict blob permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write blob file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close blob file: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to commit blob file: %w", err)
	}

	b.log.Debug("Stored sealed blob in file",
		slog.String("path", b.path),
		slog.Int("size", len(data)))

	return nil
}

// Exists reports whether the blob file is present.
func (b *FileBackend) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(b.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat blob file: %w", err)
	}
	return true, nil
}

// Available checks if the file backend is accessible by verifying the
// parent directory exists.
func (b *FileBackend) Available(ctx context.Context) bool {
	_, err := os.Stat(filepath.Dir(b.path))
	if err != nil {
		b.log.Debug("File backend unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *FileBackend) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(b.path))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}
