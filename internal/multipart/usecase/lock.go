package usecase

import "sync"

// keyedLocks hands out one RWMutex per key and forgets it once nobody holds
// or waits on it, so the table does not grow with finished uploads.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.RWMutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*keyedLock)}
}

func (k *keyedLocks) acquire(key string) *keyedLock {
	k.mu.Lock()
	defer k.mu.Unlock()

	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++

	return l
}

func (k *keyedLocks) release(key string, l *keyedLock) {
	k.mu.Lock()
	defer k.mu.Unlock()

	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock takes the exclusive side for key and returns its release func.
func (k *keyedLocks) Lock(key string) func() {
	l := k.acquire(key)
	l.Lock()

	return func() {
		l.Unlock()
		k.release(key, l)
	}
}

// RLock takes the shared side for key and returns its release func.
func (k *keyedLocks) RLock(key string) func() {
	l := k.acquire(key)
	l.RLock()

	return func() {
		l.RUnlock()
		k.release(key, l)
	}
}

func (k *keyedLocks) len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
