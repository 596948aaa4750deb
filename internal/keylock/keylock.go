// Package keylock provides per-key mutual exclusion, used to serialize
// message processing per phone number.
package keylock

import "sync"

// Registry hands out one mutex per key. Locks are never evicted; the key
// space (phone numbers of active users) is small enough that this is fine.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty lock registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use, and returns the
// unlock function.
func (r *Registry) Lock(key string) func() {
	r.mu.Lock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
