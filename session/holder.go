package session

import "sync"

// Holder is the process-wide cell for the current context. Request
// handlers fetch the context per request rather than caching it, since
// the variant changes underneath them exactly once.
type Holder struct {
	mu      sync.RWMutex
	current Context
}

// NewHolder creates a holder starting from the sealed context.
func NewHolder(sealed *Sealed) *Holder {
	return &Holder{current: sealed}
}

// Current returns the context as of this call.
func (h *Holder) Current() Context {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Promote swaps the sealed context for the unsealed one. It reports
// whether the swap happened; once unsealed the holder never changes
// again, so a second promotion is refused.
func (h *Holder) Promote(unsealed *Unsealed) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.current.(*Sealed); !ok {
		return false
	}
	h.current = unsealed
	return true
}
