package storage

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLog() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blobs", "keystore.sealed")
	backend, err := NewFileBackend(path, discardLog())
	require.NoError(t, err)

	ctx := context.Background()

	assert.True(t, backend.Available(ctx))

	exists, err := backend.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = backend.Read(ctx)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	blob := []byte("sealed bytes")
	require.NoError(t, backend.Write(ctx, blob))

	exists, err = backend.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := backend.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	// Overwrites replace the blob wholesale.
	require.NoError(t, backend.Write(ctx, []byte("newer sealed bytes")))
	got, err = backend.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("newer sealed bytes"), got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileBackend_Identity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore.sealed")
	backend, err := NewFileBackend(path, discardLog())
	require.NoError(t, err)

	assert.Equal(t, "file-keystore.sealed", backend.Name())
	assert.Equal(t, "file://"+path, backend.LocationURI())
}

func TestFactory_BackendFor(t *testing.T) {
	dir := t.TempDir()
	factory := NewFactory(discardLog())

	tests := []struct {
		name    string
		uri     string
		want    any
		wantErr bool
	}{
		{
			name: "file backend",
			uri:  "file://" + filepath.Join(dir, "keystore.sealed"),
			want: &FileBackend{},
		},
		{
			name: "s3 backend",
			uri:  "s3://upstream-keys/proxy/?region=eu-west-1",
			want: &S3Backend{},
		},
		{
			name: "s3 backend with credentials and endpoint",
			uri:  "s3://AKIA:secret@upstream-keys/proxy/?endpoint=minio.local:9000",
			want: &S3Backend{},
		},
		{
			name: "vault backend",
			uri:  "vault://vault.local:8200/secret/upstream-proxy/keystore?insecure=true",
			want: &VaultBackend{},
		},
		{
			name:    "file backend without path",
			uri:     "file://",
			wantErr: true,
		},
		{
			name:    "s3 backend without bucket",
			uri:     "s3:///prefix-only",
			wantErr: true,
		},
		{
			name:    "vault backend without secret path",
			uri:     "vault://vault.local:8200/secret",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			uri:     "ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG",
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			backend, err := factory.BackendFor(tc.uri)
			if tc.wantErr {
				require.ErrorIs(t, err, ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.want, backend)
		})
	}
}
