package storage

import (
	"context"
	"errors"
)

var (
	// ErrBlobNotFound is returned when the backend holds no sealed blob yet.
	ErrBlobNotFound = errors.New("sealed blob not found")

	// ErrBackendUnavailable is returned when a storage backend is not
	// accessible. This could be due to network issues, authentication
	// failures, or service outages.
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI is returned when a storage location URI is
	// malformed or uses an unsupported scheme.
	// URIs must follow the format: [scheme]://[auth@]host[:port][/path][?params]
	ErrInvalidLocationURI = errors.New("invalid storage location URI")
)

// Backend persists a single named sealed blob. Implementations must be
// safe for concurrent use and usable from blocking execution contexts.
type Backend interface {
	// Read retrieves the sealed blob. Returns ErrBlobNotFound if no blob
	// has been written yet.
	Read(ctx context.Context) ([]byte, error)

	// Write replaces the sealed blob.
	Write(ctx context.Context, data []byte) error

	// Exists reports whether a sealed blob is present.
	Exists(ctx context.Context) (bool, error)

	// Available checks if the backend is accessible.
	Available(ctx context.Context) bool

	// Name returns identifier for logging.
	Name() string

	// LocationURI returns URI identifying this backend.
	LocationURI() string
}
