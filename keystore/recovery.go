package keystore

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/shamir"
)

// SplitRecovery splits the service key into shares using Shamir's Secret
// Sharing so operators can escrow it outside the keystore. threshold
// shares are required to reconstruct the key; shares on their own reveal
// nothing about it.
func SplitRecovery(key SecretKey, shares, threshold int) ([][]byte, error) {
	if len(key) != ed25519.PrivateKeySize {
		return nil, errors.New("cannot split invalid service key")
	}
	if threshold < 2 {
		return nil, errors.New("recovery threshold must be at least 2")
	}
	if shares < threshold {
		return nil, errors.New("total shares must be at least equal to threshold")
	}

	parts, err := shamir.Split(key, shares, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to split service key: %w", err)
	}
	return parts, nil
}

// CombineRecovery reconstructs the service key from threshold-many
// recovery shares.
func CombineRecovery(parts [][]byte) (SecretKey, error) {
	if len(parts) < 2 {
		return nil, errors.New("at least 2 recovery shares required")
	}

	combined, err := shamir.Combine(parts)
	if err != nil {
		return nil, fmt.Errorf("failed to combine recovery shares: %w", err)
	}
	if len(combined) != ed25519.PrivateKeySize {
		return nil, errors.New("recovery shares do not reconstruct a valid service key")
	}

	return SecretKey(combined), nil
}
