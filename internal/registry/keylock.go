package registry

import "sync"

// KeyLocks is a set of non-blocking per-key locks. The trade executor
// keeps one set for buys and one for sells: an in-flight operation for a
// token makes a second attempt for the same token bail out instead of
// queueing behind it.
type KeyLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewKeyLocks creates an empty lock set.
func NewKeyLocks() *KeyLocks {
	return &KeyLocks{held: make(map[string]bool)}
}

// TryAcquire takes the lock for key if it is free. Returns false when
// another holder is in flight.
func (k *KeyLocks) TryAcquire(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.held[key] {
		return false
	}
	k.held[key] = true
	return true
}

// Release frees the lock for key. Releasing an unheld key is a no-op so
// deferred releases stay safe on every path.
func (k *KeyLocks) Release(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.held, key)
}

// Held reports whether key is currently locked.
func (k *KeyLocks) Held(key string) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.held[key]
}
