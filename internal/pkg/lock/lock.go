// Package lock provides keyed try-locks that keep background jobs from
// running twice for the same key. Acquisition never blocks.
package lock

import (
	"errors"
	"sync"
)

// ErrBusy is returned when a key is already held.
var ErrBusy = errors.New("operation already in progress")

// keyMutex wraps a mutex with a holder count for cleanup.
type keyMutex struct {
	mu      sync.Mutex
	holders int
}

// Keyed hands out one non-blocking lock per key.
type Keyed[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*keyMutex
}

// NewKeyed creates an empty Keyed lock set.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{locks: make(map[K]*keyMutex)}
}

// TryLock acquires the lock for key if it is free.
func (k *Keyed[K]) TryLock(key K) bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok {
		m = &keyMutex{}
		k.locks[key] = m
	}
	if !m.mu.TryLock() {
		return false
	}
	m.holders++
	return true
}

// Unlock releases key. Unlocking a free key is a no-op.
func (k *Keyed[K]) Unlock(key K) {
	k.mu.Lock()
	defer k.mu.Unlock()

	m, ok := k.locks[key]
	if !ok || m.holders == 0 {
		return
	}
	m.holders--
	m.mu.Unlock()
	delete(k.locks, key)
}

// Do runs fn while holding key, or returns ErrBusy without running it.
func (k *Keyed[K]) Do(key K, fn func() error) error {
	if !k.TryLock(key) {
		return ErrBusy
	}
	defer k.Unlock(key)
	return fn()
}

// Len returns the number of keys currently held.
func (k *Keyed[K]) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
