package storage

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Factory creates sealed-blob storage backends from URI strings.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance that can create storage backends.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// BackendFor creates a storage backend from a location URI.
// The URI format should be [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem storage
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 secret engine
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *Factory) BackendFor(locationURI string) (Backend, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.createFileBackend(u)
	case "s3":
		return f.createS3Backend(u)
	case "vault":
		return f.createVaultBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}
}

// createFileBackend creates a file system storage backend.
// URI format: file:///absolute/path/keystore.sealed
func (f *Factory) createFileBackend(u *url.URL) (Backend, error) {
	f.log.Debug("Creating file backend", slog.String("uri", u.String()))

	path := u.Path
	if u.Host != "" {
		path = u.Host + "/" + strings.TrimPrefix(path, "/")
	}
	if path == "" {
		return nil, fmt.Errorf("%w: empty path in file URI", ErrInvalidLocationURI)
	}

	return NewFileBackend(path, f.log)
}

// createS3Backend creates an S3 or S3-compatible storage backend.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket-name/prefix/?region=us-west-2&endpoint=custom.s3.com
func (f *Factory) createS3Backend(u *url.URL) (Backend, error) {
	f.log.Debug("Creating S3 backend", slog.String("uri", u.String()))

	bucketName := u.Host
	if bucketName == "" {
		return nil, fmt.Errorf("%w: missing bucket name in S3 URI", ErrInvalidLocationURI)
	}

	prefix := strings.TrimPrefix(u.Path, "/")

	query := u.Query()
	region := query.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := query.Get("endpoint")

	var accessKey, secretKey string
	if u.User != nil {
		accessKey = u.User.Username()
		secretKey, _ = u.User.Password()
	}

	return NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey, f.log)
}

// createVaultBackend creates a Vault KV v2 storage backend.
// URI format: vault://vault.example.com:8200/secret/upstream-proxy/keystore?token=...&insecure=true
// The first path segment is the mount, the remainder is the secret path.
// The token parameter is optional; VAULT_TOKEN is used when absent.
func (f *Factory) createVaultBackend(u *url.URL) (Backend, error) {
	f.log.Debug("Creating Vault backend", slog.String("uri", u.Host))

	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing Vault address", ErrInvalidLocationURI)
	}

	parts := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: Vault URI requires /mount/path", ErrInvalidLocationURI)
	}
	mountPath, secretPath := parts[0], parts[1]

	query := u.Query()
	scheme := "https"
	if query.Get("insecure") == "true" {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, u.Host)

	return NewVaultBackend(address, mountPath, secretPath, query.Get("token"), f.log)
}
