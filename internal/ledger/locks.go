package ledger

import "sync"

// keyLocks hands out one mutex per key. Entries are dropped once no caller
// holds or waits on them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*refMutex)}
}

// lock acquires the given keys in order and returns a func releasing them.
// Callers must pass keys in a consistent order to avoid deadlock.
func (k *keyLocks) lock(keys ...string) (unlock func()) {
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		k.mu.Lock()
		m, ok := k.locks[key]
		if !ok {
			m = &refMutex{}
			k.locks[key] = m
		}
		m.refs++
		k.mu.Unlock()

		m.Lock()
		held = append(held, key)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			k.mu.Lock()
			m := k.locks[held[i]]
			m.refs--
			if m.refs == 0 {
				delete(k.locks, held[i])
			}
			k.mu.Unlock()
			m.Unlock()
		}
	}
}

func teamKey(name string) string   { return "team:" + name }
func playerKey(name string) string { return "player:" + name }
