// Package registry owns the in-memory map of tracked tokens and the
// traded set that prevents re-acceptance after a token is finalized.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/BlueGuider/Price-Based-Bot/internal/domain"
)

// Registry errors.
var (
	// ErrNotFound is returned when the address is not tracked.
	ErrNotFound = errors.New("token not tracked")

	// ErrAlreadyTracked is returned on insert of a tracked address.
	ErrAlreadyTracked = errors.New("token already tracked")

	// ErrAlreadyTraded is returned on insert of a finalized address.
	// Traded tokens are never resurrected.
	ErrAlreadyTraded = errors.New("token already traded")

	// ErrCapacity is returned when the tracked set is full.
	ErrCapacity = errors.New("tracked token capacity reached")
)

// Registry is the authoritative store of monitored tokens. Reads hand
// out copies; all mutation goes through Insert, Update and Remove so the
// map itself is never exposed.
type Registry struct {
	mu         sync.RWMutex
	tokens     map[string]*domain.MonitoredToken
	traded     map[string]bool
	maxTracked int
}

// New creates a registry bounded at maxTracked concurrently monitored
// tokens. maxTracked <= 0 means unbounded.
func New(maxTracked int) *Registry {
	return &Registry{
		tokens:     make(map[string]*domain.MonitoredToken),
		traded:     make(map[string]bool),
		maxTracked: maxTracked,
	}
}

// Insert adds a new token. Returns ErrAlreadyTracked, ErrAlreadyTraded
// or ErrCapacity when the token cannot be accepted.
func (r *Registry) Insert(t *domain.MonitoredToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.traded[t.Address] {
		return ErrAlreadyTraded
	}
	if _, exists := r.tokens[t.Address]; exists {
		return ErrAlreadyTracked
	}
	if r.maxTracked > 0 && len(r.tokens) >= r.maxTracked {
		return ErrCapacity
	}

	tokenCopy := *t
	r.tokens[t.Address] = &tokenCopy
	return nil
}

// Get returns a copy of the tracked token.
func (r *Registry) Get(address string) (*domain.MonitoredToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, exists := r.tokens[address]
	if !exists {
		return nil, ErrNotFound
	}

	tokenCopy := *t
	return &tokenCopy, nil
}

// Update applies fn to the tracked token under the write lock. fn sees
// the live record; Update is the only way to mutate one in place.
func (r *Registry) Update(address string, fn func(*domain.MonitoredToken)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tokens[address]
	if !exists {
		return ErrNotFound
	}

	fn(t)
	return nil
}

// Remove deletes the token. markTraded additionally records the address
// in the traded set so discovery never re-registers it.
func (r *Registry) Remove(address string, markTraded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tokens, address)
	if markTraded {
		r.traded[address] = true
	}
}

// Snapshot returns copies of all tracked tokens, sorted by address for
// deterministic iteration.
func (r *Registry) Snapshot() []*domain.MonitoredToken {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.MonitoredToken, 0, len(r.tokens))
	for _, t := range r.tokens {
		tokenCopy := *t
		out = append(out, &tokenCopy)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Address < out[j].Address
	})
	return out
}

// IsTracked reports whether the address is currently monitored.
func (r *Registry) IsTracked(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.tokens[address]
	return exists
}

// IsTraded reports whether the address was finalized into the traded set.
func (r *Registry) IsTraded(address string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.traded[address]
}

// Len returns the number of tracked tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tokens)
}

// TradedCount returns the number of finalized tokens.
func (r *Registry) TradedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.traded)
}
