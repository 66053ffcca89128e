package keystore

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

// sealedEnvelope is the serialized form of a passphrase-sealed key. The
// KDF parameters are stored alongside the ciphertext so they can be
// strengthened for new keys without breaking existing blobs.
type sealedEnvelope struct {
	Version int       `json:"version"`
	KDF     kdfParams `json:"kdf"`
	Salt    []byte    `json:"salt"`
	Nonce   []byte    `json:"nonce"`
	Sealed  []byte    `json:"sealed_key"`
}

// kdfParams are the argon2id cost parameters used to derive the sealing
// key from the passphrase.
type kdfParams struct {
	Time      uint32 `json:"time"`
	MemoryKiB uint32 `json:"memory_kib"`
	Threads   uint8  `json:"threads"`
}

const (
	envelopeVersion = 1

	saltSize  = 16
	nonceSize = 24
	boxKeyLen = 32
)

// defaultKDFParams follows the RFC 9106 second recommended option,
// suitable for interactive unsealing.
var defaultKDFParams = kdfParams{
	Time:      3,
	MemoryKiB: 64 * 1024,
	Threads:   4,
}

// seal encrypts key with a passphrase-derived key and returns the
// serialized envelope.
func seal(key SecretKey, passphrase Passphrase) ([]byte, error) {
	var salt [saltSize]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	boxKey := deriveBoxKey(passphrase, salt[:], defaultKDFParams)
	sealed := secretbox.Seal(nil, key, &nonce, boxKey)

	envelope := sealedEnvelope{
		Version: envelopeVersion,
		KDF:     defaultKDFParams,
		Salt:    salt[:],
		Nonce:   nonce[:],
		Sealed:  sealed,
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sealed key: %w", err)
	}
	return data, nil
}

// unseal decrypts a serialized envelope with the passphrase. A failed
// authentication check surfaces as ErrWrongPassphrase.
func unseal(data []byte, passphrase Passphrase) (SecretKey, error) {
	var envelope sealedEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode sealed key: %w", err)
	}

	if envelope.Version != envelopeVersion {
		return nil, fmt.Errorf("unsupported sealed key version: %d", envelope.Version)
	}
	if len(envelope.Salt) != saltSize || len(envelope.Nonce) != nonceSize {
		return nil, fmt.Errorf("malformed sealed key envelope")
	}

	var nonce [nonceSize]byte
	copy(nonce[:], envelope.Nonce)

	boxKey := deriveBoxKey(passphrase, envelope.Salt, envelope.KDF)
	key, ok := secretbox.Open(nil, envelope.Sealed, &nonce, boxKey)
	if !ok {
		return nil, ErrWrongPassphrase
	}

	if len(key) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("sealed key has invalid length: %d", len(key))
	}
	return SecretKey(key), nil
}

// deriveBoxKey expands the passphrase into a secretbox key using argon2id.
func deriveBoxKey(passphrase Passphrase, salt []byte, params kdfParams) *[boxKeyLen]byte {
	derived := argon2.IDKey([]byte(passphrase), salt, params.Time, params.MemoryKiB, params.Threads, boxKeyLen)

	var boxKey [boxKeyLen]byte
	copy(boxKey[:], derived)
	return &boxKey
}
