package session

import (
	"context"
	"fmt"

	"github.com/Nemo157/radicle-upstream/keystore"
	"github.com/Nemo157/radicle-upstream/kv"
	"github.com/Nemo157/radicle-upstream/peer"
	"github.com/Nemo157/radicle-upstream/service"
)

// Context is the request-scoped view of the proxy's dependencies. It has
// exactly two implementations, Sealed and Unsealed; the unexported
// variant method closes the set so every consumer can rely on a
// two-armed type switch being exhaustive.
type Context interface {
	// TestMode reports whether the stack is set up in test mode.
	TestMode() bool

	// Store returns the persistent store for session state and caches.
	Store() *kv.Store

	// AuthToken returns the shared token guard, usable for read or write.
	AuthToken() *TokenGuard

	// ServiceHandle returns the handle to mutate the service configuration.
	ServiceHandle() *service.Handle

	// Keystore returns the shared keystore reference.
	Keystore() keystore.Keystore

	// CheckToken reports whether presented matches the current auth token.
	CheckToken(presented string) bool

	// Unseal opens the keystore with passphrase, installs the obtained
	// key into the service configuration, and returns a freshly minted
	// auth token.
	//
	// Fails with keystore.ErrWrongPassphrase, keystore.ErrNoKeyPresent,
	// or keystore.ErrBackendUnavailable; on failure neither the service
	// configuration nor the token guard is touched.
	Unseal(ctx context.Context, passphrase keystore.Passphrase) (string, error)

	// CreateKey creates a key sealed with passphrase, installs it into
	// the service configuration, and returns a freshly minted auth token.
	//
	// Fails with keystore.ErrKeyAlreadyExists or
	// keystore.ErrBackendUnavailable; on failure neither the service
	// configuration nor the token guard is touched.
	CreateKey(ctx context.Context, passphrase keystore.Passphrase) (string, error)

	variant()
}

// base carries the fields shared by both variants. A transition swaps
// the variant, never these handles; Sealed and the Unsealed built from
// it reference the same store, token guard, service handle, and keystore.
type base struct {
	store         *kv.Store
	test          bool
	serviceHandle *service.Handle
	tokenGuard    *TokenGuard
	ks            keystore.Keystore
}

func (b *base) variant() {}

func (b *base) TestMode() bool {
	return b.test
}

func (b *base) Store() *kv.Store {
	return b.store
}

func (b *base) AuthToken() *TokenGuard {
	return b.tokenGuard
}

func (b *base) ServiceHandle() *service.Handle {
	return b.serviceHandle
}

func (b *base) Keystore() keystore.Keystore {
	return b.ks
}

func (b *base) CheckToken(presented string) bool {
	return b.tokenGuard.Check(presented)
}

func (b *base) Unseal(ctx context.Context, passphrase keystore.Passphrase) (string, error) {
	return b.transition(ctx, b.ks.Get, passphrase)
}

func (b *base) CreateKey(ctx context.Context, passphrase keystore.Passphrase) (string, error) {
	return b.transition(ctx, b.ks.CreateKey, passphrase)
}

// transition is the single unseal/create-key routine, parameterized by
// the keystore call. Key installation happens before token minting,
// which happens before the token is returned; no caller can observe the
// new token without the key already installed.
func (b *base) transition(ctx context.Context, op func(keystore.Passphrase) (keystore.SecretKey, error), passphrase keystore.Passphrase) (string, error) {
	key, err := dispatchKeyDerivation(ctx, op, passphrase)
	if err != nil {
		return "", err
	}

	b.serviceHandle.SetSecretKey(key)
	return b.tokenGuard.Generate(), nil
}

type keyResult struct {
	key      keystore.SecretKey
	err      error
	panicked any
}

// dispatchKeyDerivation runs the CPU-bound keystore operation on its own
// goroutine so concurrent request handling is never starved. The
// operation always runs to completion; an abandoned ctx only detaches
// the caller. A panic inside the operation is an invariant violation and
// is re-raised in the caller rather than surfaced as an error.
func dispatchKeyDerivation(ctx context.Context, op func(keystore.Passphrase) (keystore.SecretKey, error), passphrase keystore.Passphrase) (keystore.SecretKey, error) {
	done := make(chan keyResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- keyResult{panicked: r}
			}
		}()
		key, err := op(passphrase)
		done <- keyResult{key: key, err: err}
	}()

	select {
	case res := <-done:
		if res.panicked != nil {
			panic(fmt.Sprintf("keystore operation aborted: %v", res.panicked))
		}
		return res.key, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Sealed is the context while the keystore has not been opened; only the
// shared handles are reachable.
type Sealed struct {
	base
}

// NewSealed creates the initial sealed context.
func NewSealed(store *kv.Store, test bool, serviceHandle *service.Handle, tokenGuard *TokenGuard, ks keystore.Keystore) *Sealed {
	return &Sealed{base: base{
		store:         store,
		test:          test,
		serviceHandle: serviceHandle,
		tokenGuard:    tokenGuard,
		ks:            ks,
	}}
}

// WithPeer builds the unsealed context backed by the now-running peer.
// The shared handles are carried over unchanged; this is the only way an
// Unsealed value is constructed.
func (s *Sealed) WithPeer(control *peer.Control, state *peer.State) *Unsealed {
	return &Unsealed{
		base:        s.base,
		peerControl: control,
		state:       state,
	}
}

// Unsealed is the context once the service key is installed and the peer
// runtime is live.
type Unsealed struct {
	base
	peerControl *peer.Control
	state       *peer.State
}

// PeerControl returns the handle to inspect the running peer.
func (u *Unsealed) PeerControl() *peer.Control {
	return u.peerControl
}

// RepoState returns the repository state handle.
func (u *Unsealed) RepoState() *peer.State {
	return u.state
}
