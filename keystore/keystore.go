package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

var (
	// ErrWrongPassphrase is returned when the presented passphrase does not
	// open the sealed key.
	ErrWrongPassphrase = errors.New("wrong passphrase")

	// ErrNoKeyPresent is returned when the store holds no key yet.
	ErrNoKeyPresent = errors.New("no key present in store")

	// ErrKeyAlreadyExists is returned by CreateKey when the store already
	// holds a key.
	ErrKeyAlreadyExists = errors.New("key already exists in store")

	// ErrBackendUnavailable is returned when the storage layer holding the
	// sealed key cannot be reached.
	ErrBackendUnavailable = errors.New("keystore backend unavailable")
)

// Passphrase is the operator-supplied secret used to seal and unseal the
// service key. The String method redacts the value so a passphrase can
// never leak through logging or formatted errors.
type Passphrase string

// String implements fmt.Stringer and always redacts the passphrase.
func (Passphrase) String() string {
	return "[REDACTED]"
}

// SecretKey is the long-lived ed25519 service key guarded by the keystore.
type SecretKey ed25519.PrivateKey

// GenerateKey creates a fresh random service key.
func GenerateKey() (SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate service key: %w", err)
	}
	return SecretKey(priv), nil
}

// Public returns the public half of the key.
func (k SecretKey) Public() ed25519.PublicKey {
	return ed25519.PrivateKey(k).Public().(ed25519.PublicKey)
}

// PeerID returns the hex-encoded public key, used to identify this
// service instance to its peers.
func (k SecretKey) PeerID() string {
	return hex.EncodeToString(k.Public())
}

// Keystore guards access to the service key behind a passphrase. It must
// be safe for concurrent use and callable from blocking execution
// contexts; Get and CreateKey perform CPU-bound key derivation.
type Keystore interface {
	// Get retrieves the existing key.
	//
	// Fails with ErrWrongPassphrase if the passphrase does not open the
	// sealed key, ErrNoKeyPresent if no key has been created yet, and
	// ErrBackendUnavailable if the storage layer cannot be reached.
	Get(passphrase Passphrase) (SecretKey, error)

	// CreateKey generates a new key and stores it sealed with passphrase.
	//
	// Fails with ErrKeyAlreadyExists if the store already holds a key and
	// ErrBackendUnavailable if the storage layer cannot be reached.
	CreateKey(passphrase Passphrase) (SecretKey, error)
}
