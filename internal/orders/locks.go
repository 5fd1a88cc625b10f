package orders

import "sync"

// keyLocks hands out one mutex per order id so fulfillment transitions on the
// same order serialize while distinct orders proceed in parallel. Entries are
// reference counted and removed on last unlock.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[string]*keyLock)}
}

func (kl *keyLocks) lock(key string) {
	kl.mu.Lock()
	l, ok := kl.m[key]
	if !ok {
		l = &keyLock{}
		kl.m[key] = l
	}
	l.refs++
	kl.mu.Unlock()
	l.Lock()
}

func (kl *keyLocks) unlock(key string) {
	kl.mu.Lock()
	l := kl.m[key]
	l.refs--
	if l.refs == 0 {
		delete(kl.m, key)
	}
	kl.mu.Unlock()
	l.Unlock()
}
