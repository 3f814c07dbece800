package alloc

import "github.com/joshuapare/heapkit/heap/spin"

// Locked serializes every call on an allocator behind a spin lock, giving it
// a surface that is safe for concurrent use. The wrapped allocator's own
// logic is unchanged and unsynchronized.
//
// Waiters busy-wait, so callers must keep the time between Lock and Unlock
// short and never block while holding a Guard.
type Locked[A Allocator] struct {
	mu *spin.Mutex[A]
}

// NewLocked takes ownership of a. It must not be used directly afterwards.
func NewLocked[A Allocator](a A) *Locked[A] {
	return &Locked[A]{mu: spin.NewMutex(a)}
}

// NewLockedBump creates a BumpAllocator of capacity bytes behind a spin lock.
func NewLockedBump(capacity int, opts *Options) (*Locked[*BumpAllocator], error) {
	ba, err := NewBump(capacity, opts)
	if err != nil {
		return nil, err
	}
	return NewLocked(ba), nil
}

// NewLockedFreeList creates a FreeListAllocator of capacity bytes behind a
// spin lock.
func NewLockedFreeList(capacity int, opts *Options) (*Locked[*FreeListAllocator], error) {
	fl, err := NewFreeList(capacity, opts)
	if err != nil {
		return nil, err
	}
	return NewLocked(fl), nil
}

// Lock grants exclusive access to the wrapped allocator, for calls outside
// the Allocator interface such as Grow or Verify. Release it with a deferred
// Unlock. Locking is not reentrant: calling any other method of l while the
// guard is held deadlocks.
func (l *Locked[A]) Lock() *spin.Guard[A] {
	return l.mu.Lock()
}

func (l *Locked[A]) Allocate(lay Layout) (Region, []byte, error) {
	g := l.mu.Lock()
	defer g.Unlock()
	return (*g.Get()).Allocate(lay)
}

func (l *Locked[A]) Deallocate(off int, lay Layout) {
	g := l.mu.Lock()
	defer g.Unlock()
	(*g.Get()).Deallocate(off, lay)
}

func (l *Locked[A]) Stats() Stats {
	g := l.mu.Lock()
	defer g.Unlock()
	return (*g.Get()).Stats()
}

func (l *Locked[A]) Close() error {
	g := l.mu.Lock()
	defer g.Unlock()
	return (*g.Get()).Close()
}
