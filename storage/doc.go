// Package storage persists the keystore's sealed blob across pluggable
// backends.
//
// Unlike a general object store, the keystore needs exactly one mutable,
// durably replaceable blob: the passphrase-sealed service key. Backends
// therefore expose Read/Write/Exists over a single well-known location
// rather than content-addressed operations.
//
// # Storage URI Format
//
// Backends are selected with a URI:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/upstream-proxy/keystore.sealed
//   - s3://bucket-name/prefix/?region=us-west-2
//   - vault://vault.example.com:8200/secret/upstream-proxy/keystore
//
// # Vault
//
// The VaultBackend stores the blob in a KV v2 secret engine under
// {mount}/data/{path} with the ciphertext base64-encoded in the "blob"
// field. Authentication uses a token from the URI or the VAULT_TOKEN
// environment variable. Availability checks use the health endpoint and
// report the backend unavailable while Vault itself is sealed.
//
// # S3
//
// The S3Backend stores the blob as a private object named
// "keystore.sealed" under the configured prefix. Credentials may be
// embedded in the URI or resolved from the environment.
//
// # Usage
//
//	factory := storage.NewFactory(logger)
//	backend, err := factory.BackendFor("file:///var/lib/upstream-proxy/keystore.sealed")
package storage
