package keystore

import "sync"

// memoryKeystore keeps the sealed key in process memory. Used in test
// mode where nothing may touch the file system.
type memoryKeystore struct {
	mu     sync.Mutex
	sealed []byte
}

// Memory creates an in-memory keystore. The sealed key goes through the
// same envelope as persistent stores so passphrase handling behaves
// identically.
func Memory() Keystore {
	return &memoryKeystore{}
}

func (m *memoryKeystore) Get(passphrase Passphrase) (SecretKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed == nil {
		return nil, ErrNoKeyPresent
	}
	return unseal(m.sealed, passphrase)
}

func (m *memoryKeystore) CreateKey(passphrase Passphrase) (SecretKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sealed != nil {
		return nil, ErrKeyAlreadyExists
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	sealed, err := seal(key, passphrase)
	if err != nil {
		return nil, err
	}

	m.sealed = sealed
	return key, nil
}
