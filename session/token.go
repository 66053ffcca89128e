package session

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
)

// tokenBytes is the entropy of a bearer token; encoded it becomes a
// 64-character lowercase hex string.
const tokenBytes = 32

// TokenGuard is the single source of truth for the current bearer token.
// The token is only ever replaced wholesale; readers never observe a
// partially written value. Safe for arbitrary concurrent readers with
// serialized writers.
type TokenGuard struct {
	mu    sync.RWMutex
	token string
}

// NewTokenGuard creates a guard holding no token. Until the first
// Generate call nothing authenticates.
func NewTokenGuard() *TokenGuard {
	return &TokenGuard{}
}

// Generate draws a fresh random token, stores it as the current token
// discarding any previous one, and returns it. This is the only way a
// token is ever created; tokens are never derived from user input.
func (g *TokenGuard) Generate() string {
	var raw [tokenBytes]byte
	if _, err := rand.Read(raw[:]); err != nil {
		panic(fmt.Sprintf("failed to draw token randomness: %v", err))
	}
	token := hex.EncodeToString(raw[:])

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	return token
}

// Check reports whether presented equals the current token. An empty
// presented token never authenticates, even while the guard itself holds
// no token yet; absence must not open a sealed context.
func (g *TokenGuard) Check(presented string) bool {
	g.mu.RLock()
	current := g.token
	g.mu.RUnlock()

	if current == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(current), []byte(presented)) == 1
}
