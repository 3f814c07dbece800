// Package spin provides a busy-waiting lock and a value guarded by it.
//
// The lock never parks the calling thread in the OS. Waiters spin on an
// atomic word and, after a bounded number of failed attempts, yield to the Go
// scheduler with runtime.Gosched so that a program running on a single P
// still makes progress. Holders must not block while holding the lock: every
// other caller burns CPU until it is released.
//
// Locks are not reentrant. Acquiring a lock already held by the same
// goroutine spins forever.
package spin

import (
	"runtime"
	"sync/atomic"
)

// activeSpins is how many failed acquisition attempts are made before
// yielding to the scheduler.
const activeSpins = 64

// Lock is a test-and-test-and-set spin lock. The zero value is unlocked.
type Lock struct {
	held atomic.Bool
}

// Lock acquires l, busy-waiting until it is free.
func (l *Lock) Lock() {
	spins := 0
	for {
		if !l.held.Load() && l.held.CompareAndSwap(false, true) {
			return
		}
		spins++
		if spins >= activeSpins {
			runtime.Gosched()
			spins = 0
		}
	}
}

// TryLock acquires l if it is free and reports whether it did.
func (l *Lock) TryLock() bool {
	return !l.held.Load() && l.held.CompareAndSwap(false, true)
}

// Unlock releases l. Unlocking a lock that is not held panics.
func (l *Lock) Unlock() {
	if !l.held.CompareAndSwap(true, false) {
		panic("spin: unlock of unlocked lock")
	}
}

// Mutex holds a value of type T that may only be reached through a Guard.
type Mutex[T any] struct {
	lock Lock
	data T
}

// NewMutex returns a Mutex guarding v.
func NewMutex[T any](v T) *Mutex[T] {
	return &Mutex[T]{data: v}
}

// Lock acquires the mutex and returns a guard granting access to the value.
// Release it with a deferred Unlock so every return path lets go of the lock:
//
//	g := m.Lock()
//	defer g.Unlock()
//	v := g.Get()
func (m *Mutex[T]) Lock() *Guard[T] {
	m.lock.Lock()
	return &Guard[T]{m: m}
}

// TryLock is Lock without waiting. ok is false if the mutex is held.
func (m *Mutex[T]) TryLock() (g *Guard[T], ok bool) {
	if !m.lock.TryLock() {
		return nil, false
	}
	return &Guard[T]{m: m}, true
}

// Do runs fn with exclusive access to the value. The lock is released when
// fn returns or panics.
func (m *Mutex[T]) Do(fn func(*T) error) error {
	g := m.Lock()
	defer g.Unlock()
	return fn(g.Get())
}

// Guard is proof that its Mutex is held. Guards are handed out by pointer:
// every holder of the pointer sees Unlock, so no copy outlives the lock.
type Guard[T any] struct {
	m *Mutex[T]
}

// Get returns the guarded value. Calling Get after Unlock panics.
func (g *Guard[T]) Get() *T {
	if g == nil || g.m == nil {
		panic("spin: guard used after unlock")
	}
	return &g.m.data
}

// Unlock releases the mutex. A second Unlock on the same guard is a no-op,
// so an explicit early Unlock can coexist with a deferred one.
func (g *Guard[T]) Unlock() {
	if g == nil || g.m == nil {
		return
	}
	m := g.m
	g.m = nil
	m.lock.Unlock()
}
