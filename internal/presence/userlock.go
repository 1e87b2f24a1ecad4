package presence

import "sync"

// lockRegistry hands out one mutex per user so check-in transitions for
// the same user are linearized while different users never contend.
// Entries are refcounted and dropped as soon as nobody holds or waits on
// them, keeping the map bounded by concurrent users.
type lockRegistry struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newLockRegistry() *lockRegistry {
	return &lockRegistry{entries: make(map[string]*lockEntry)}
}

func (r *lockRegistry) lock(key string) {
	r.mu.Lock()
	entry, ok := r.entries[key]
	if !ok {
		entry = &lockEntry{}
		r.entries[key] = entry
	}
	entry.refs++
	r.mu.Unlock()

	entry.mu.Lock()
}

func (r *lockRegistry) unlock(key string) {
	r.mu.Lock()
	entry := r.entries[key]
	entry.refs--
	if entry.refs == 0 {
		delete(r.entries, key)
	}
	r.mu.Unlock()

	entry.mu.Unlock()
}
