// Package keystore guards the long-lived ed25519 service key behind an
// operator passphrase.
//
// The key never leaves the process unsealed. At rest it is wrapped in a
// versioned envelope: an argon2id-derived key (RFC 9106 interactive
// parameters, stored with the envelope) seals the service key with
// NaCl secretbox. The envelope is persisted through a storage.Backend,
// so the same keystore works against a local file, S3, or Vault.
//
// Failure modes are distinct sentinel errors: ErrWrongPassphrase,
// ErrNoKeyPresent, ErrKeyAlreadyExists, and ErrBackendUnavailable.
// Callers branch on them with errors.Is.
//
// Get and CreateKey perform password-based key derivation and are
// CPU-bound; callers on latency-sensitive paths should dispatch them off
// the request-handling goroutine (see the session package).
//
// SplitRecovery and CombineRecovery let operators escrow the service key
// as Shamir shares, independent of the passphrase.
package keystore
