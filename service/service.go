// Package service owns the running service configuration. A Handle lets
// other components install the unsealed service key or reset the
// configuration; the Manager coalesces those updates and hands the
// supervisor a fresh Environment to rebuild the runtime from.
package service

import (
	"context"
	"sync"

	"github.com/Nemo157/radicle-upstream/keystore"
)

// Environment is a snapshot of the service configuration.
type Environment struct {
	// Key is the unsealed service key, nil while sealed.
	Key keystore.SecretKey

	// TestMode reports whether the stack runs in test mode.
	TestMode bool
}

// Manager holds the current Environment and wakes the supervisor when it
// changes. Updates coalesce: if several arrive before the supervisor
// polls, only the latest snapshot is observed (last-writer-wins).
type Manager struct {
	mu   sync.Mutex
	env  Environment
	wake chan struct{}
}

// NewManager creates a manager with an empty (sealed) environment.
func NewManager(testMode bool) *Manager {
	return &Manager{
		env:  Environment{TestMode: testMode},
		wake: make(chan struct{}, 1),
	}
}

// Handle returns a handle for mutating the service configuration. Any
// number of handles may be taken; they all feed the same manager.
func (m *Manager) Handle() *Handle {
	return &Handle{manager: m}
}

// Environment returns the current configuration snapshot.
func (m *Manager) Environment() Environment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.env
}

// NextEnvironment blocks until the configuration changes, then returns
// the latest snapshot. Returns ctx.Err() if ctx is done first.
func (m *Manager) NextEnvironment(ctx context.Context) (Environment, error) {
	select {
	case <-m.wake:
		return m.Environment(), nil
	case <-ctx.Done():
		return Environment{}, ctx.Err()
	}
}

func (m *Manager) update(mutate func(*Environment)) {
	m.mu.Lock()
	mutate(&m.env)
	m.mu.Unlock()

	// Coalesce: a pending wakeup already covers this update.
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// Handle mutates the service configuration.
type Handle struct {
	manager *Manager
}

// SetSecretKey installs the service key into the configuration. It never
// fails and is idempotent on last write; installing the same key twice
// leaves the configuration unchanged apart from a supervisor wakeup.
func (h *Handle) SetSecretKey(key keystore.SecretKey) {
	h.manager.update(func(env *Environment) {
		env.Key = key
	})
}

// Reset clears the service configuration back to its sealed shape.
func (h *Handle) Reset() {
	h.manager.update(func(env *Environment) {
		env.Key = nil
	})
}

// Dummy returns a handle wired to a throwaway manager, for tests that
// need a handle but no supervisor.
func Dummy() *Handle {
	return NewManager(false).Handle()
}
