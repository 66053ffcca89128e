package keystore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Nemo157/radicle-upstream/storage"
)

// Store implements Keystore on top of a sealed-blob storage backend.
type Store struct {
	backend   storage.Backend
	log       *slog.Logger
	opTimeout time.Duration
}

// New creates a keystore persisting its sealed key through backend.
func New(backend storage.Backend, log *slog.Logger) *Store {
	return &Store{
		backend:   backend,
		log:       log,
		opTimeout: 30 * time.Second,
	}
}

// Get retrieves and unseals the stored key.
func (s *Store) Get(passphrase Passphrase) (SecretKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	data, err := s.backend.Read(ctx)
	if errors.Is(err, storage.ErrBlobNotFound) {
		return nil, ErrNoKeyPresent
	}
	if errors.Is(err, storage.ErrBackendUnavailable) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sealed key: %w", err)
	}

	key, err := unseal(data, passphrase)
	if err != nil {
		if errors.Is(err, ErrWrongPassphrase) {
			s.log.Debug("Keystore rejected passphrase", slog.String("backend", s.backend.Name()))
		}
		return nil, err
	}

	s.log.Info("Unsealed service key", slog.String("backend", s.backend.Name()))
	return key, nil
}

// CreateKey generates a fresh key, seals it with passphrase, and persists it.
func (s *Store) CreateKey(passphrase Passphrase) (SecretKey, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opTimeout)
	defer cancel()

	exists, err := s.backend.Exists(ctx)
	if errors.Is(err, storage.ErrBackendUnavailable) {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check for existing key: %w", err)
	}
	if exists {
		return nil, ErrKeyAlreadyExists
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	data, err := seal(key, passphrase)
	if err != nil {
		return nil, err
	}

	if err := s.backend.Write(ctx, data); err != nil {
		if errors.Is(err, storage.ErrBackendUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return nil, fmt.Errorf("failed to store sealed key: %w", err)
	}

	s.log.Info("Created and sealed service key",
		slog.String("backend", s.backend.Name()),
		slog.String("peer_id", key.PeerID()))

	return key, nil
}
