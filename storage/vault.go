package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
)

// VaultBackend stores the sealed blob in a HashiCorp Vault KV v2 secret
// engine. The blob lives under a fixed secret path so replacing it is a
// single versioned write.
type VaultBackend struct {
	client      *api.Client
	mountPath   string
	secretPath  string
	log         *slog.Logger
	locationURI string
}

// NewVaultBackend creates a Vault storage backend.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - secretPath: Path within the mount (e.g. "upstream-proxy/keystore")
//   - token: Vault token; if empty the client falls back to VAULT_TOKEN
//   - log: Structured logger for operational insights
func NewVaultBackend(address, mountPath, secretPath, token string, log *slog.Logger) (*VaultBackend, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.HttpClient = &http.Client{Timeout: 30 * time.Second}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.TrimSuffix(mountPath, "/")
	secretPath = strings.Trim(secretPath, "/")

	return &VaultBackend{
		client:      client,
		mountPath:   mountPath,
		secretPath:  secretPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(address, "https://"), mountPath, secretPath),
	}, nil
}

// Read retrieves the sealed blob from Vault.
// It uses the KV v2 API which requires a specific path structure.
func (b *VaultBackend) Read(ctx context.Context) ([]byte, error) {
	start := time.Now()
	path := b.dataPath()

	secret, err := b.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		b.log.Error("Failed to read from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		b.log.Debug("Sealed blob not found in Vault", slog.String("path", path))
		return nil, ErrBlobNotFound
	}

	// KV v2 wraps the payload in a "data" map
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	encoded, ok := data["blob"].(string)
	if !ok {
		return nil, fmt.Errorf("blob key not found in Vault data")
	}

	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid blob encoding in Vault data: %w", err)
	}

	b.log.Debug("Read sealed blob from Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return blob, nil
}

// Write replaces the sealed blob in Vault.
func (b *VaultBackend) Write(ctx context.Context, data []byte) error {
	start := time.Now()
	path := b.dataPath()

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"blob": base64.StdEncoding.EncodeToString(data),
		},
	}

	if _, err := b.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		b.log.Error("Failed to write to Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored sealed blob in Vault",
		slog.String("path", path),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Exists reports whether the sealed blob is present in Vault.
func (b *VaultBackend) Exists(ctx context.Context) (bool, error) {
	_, err := b.Read(ctx)
	if errors.Is(err, ErrBlobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Available checks if the Vault backend is accessible.
// It uses the health endpoint to verify that Vault is initialized and unsealed.
func (b *VaultBackend) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := b.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		b.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		b.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this storage backend.
func (b *VaultBackend) Name() string {
	return fmt.Sprintf("vault-%s-%s", b.mountPath, strings.ReplaceAll(b.secretPath, "/", "-"))
}

// LocationURI returns the URI that identifies this storage backend.
func (b *VaultBackend) LocationURI() string {
	return b.locationURI
}

// dataPath builds the KV v2 data path for the sealed blob.
func (b *VaultBackend) dataPath() string {
	return fmt.Sprintf("%s/data/%s", b.mountPath, b.secretPath)
}
