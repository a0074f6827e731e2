package orchestrator

import "sync"

// keyLock serializes work per string key. Concurrent duplicate orchestrations
// in one process collapse onto the idempotency check instead of racing the
// ledger insert and leaving orphan jobs behind; the database uniqueness
// constraint stays as the cross-process backstop.
type keyLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[string]*lockEntry)}
}

// acquire blocks until the key is free and returns the release func.
func (k *keyLock) acquire(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
