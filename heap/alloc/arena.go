package alloc

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/joshuapare/heapkit/heap/vmem"
	"github.com/joshuapare/heapkit/internal/align"
	"github.com/joshuapare/heapkit/internal/buf"
)

// arena is the single OS mapping behind one allocator instance. It is
// acquired in newArena and released exactly once in release.
type arena struct {
	src  vmem.Source
	mem  []byte
	log  *slog.Logger
	kind string // "bump" or "freelist", for log records

	closed bool
}

func newArena(kind string, capacity int, opts *Options) (*arena, error) {
	log := opts.logger().With("allocator", kind)
	if name := opts.name(); name != "" {
		log = log.With("name", name)
	}

	switch {
	case capacity == 0:
		return nil, ErrZeroCapacity
	case capacity < 0:
		return nil, fmt.Errorf("%w: negative capacity %d", ErrOutOfMemory, capacity)
	case capacity > MaxArenaSize:
		return nil, fmt.Errorf("%w: %s requested", ErrTooLarge, humanize.Bytes(uint64(capacity)))
	}

	src := opts.source()
	mem, err := src.Acquire(capacity)
	if err != nil {
		log.Debug("arena acquire failed", "capacity", humanize.Bytes(uint64(capacity)), "error", err)
		return nil, fmt.Errorf("%w: acquire %d byte arena: %w", ErrOutOfMemory, capacity, err)
	}
	if base := addrOf(mem); base%NodeAlign != 0 {
		_ = src.Release(mem)
		return nil, fmt.Errorf("%w: arena at 0x%X is not %d-byte aligned", ErrOutOfMemory, base, NodeAlign)
	}
	log.Debug("arena acquired", "capacity", humanize.Bytes(uint64(len(mem))))

	return &arena{src: src, mem: mem, log: log, kind: kind}, nil
}

func (a *arena) size() int { return len(a.mem) }

func addrOf(mem []byte) int {
	return int(uintptr(unsafe.Pointer(unsafe.SliceData(mem))))
}

// alignOffset returns the smallest offset >= off whose address is a multiple
// of alignment. Alignment applies to the address, not the offset: the two
// differ once alignment exceeds the alignment of the arena base.
func (a *arena) alignOffset(off, alignment int) (int, bool) {
	base := addrOf(a.mem)
	addr, ok := buf.AddOverflowSafe(base, off)
	if !ok {
		return 0, false
	}
	aligned, ok := align.CheckedTo(addr, alignment)
	if !ok {
		return 0, false
	}
	return aligned - base, true
}

// mustOpen panics when the arena has already been released. Touching a
// released mapping would fault, so this turns a crash into a clear message.
func (a *arena) mustOpen(op string) {
	if a.closed {
		panic(fmt.Sprintf("alloc: %s on closed %s allocator", op, a.kind))
	}
}

// bytes returns the arena window for r with its capacity clipped to r.End.
func (a *arena) bytes(r Region) []byte {
	b, ok := buf.Slice(a.mem, r.Start, r.Len())
	if !ok {
		panic(fmt.Sprintf("alloc: region %v outside %d byte arena", r, len(a.mem)))
	}
	return b
}

// grow extends the mapping in place by extra bytes and returns the previous
// size. Relocation is never allowed: slices already handed out point into
// the current mapping.
func (a *arena) grow(extra int) (int, error) {
	a.mustOpen("Grow")
	old := len(a.mem)
	if extra <= 0 {
		return old, fmt.Errorf("%w: grow by %d bytes", ErrOutOfMemory, extra)
	}
	newSize, ok := buf.AddOverflowSafe(old, extra)
	if !ok || newSize > MaxArenaSize {
		return old, fmt.Errorf("%w: grow %d by %d bytes", ErrTooLarge, old, extra)
	}

	mem, err := a.src.Resize(a.mem, newSize, false)
	if err != nil {
		a.log.Debug("arena grow failed",
			"from", humanize.Bytes(uint64(old)),
			"to", humanize.Bytes(uint64(newSize)),
			"error", err)
		return old, fmt.Errorf("%w: grow arena in place: %w", ErrOutOfMemory, err)
	}
	a.mem = mem
	a.log.Info("arena grown",
		"from", humanize.Bytes(uint64(old)),
		"to", humanize.Bytes(uint64(newSize)))
	return old, nil
}

// release returns the mapping to the OS. A failed release leaves the
// mapping leaked: the arena is marked closed either way because its state
// can no longer be trusted.
func (a *arena) release() error {
	if a.closed {
		return ErrClosed
	}
	a.closed = true
	mem := a.mem
	a.mem = nil
	if err := a.src.Release(mem); err != nil {
		a.log.Error("arena release failed, mapping leaked",
			"capacity", humanize.Bytes(uint64(len(mem))),
			"error", err)
		return fmt.Errorf("alloc: release %s arena: %w", a.kind, err)
	}
	a.log.Debug("arena released", "capacity", humanize.Bytes(uint64(len(mem))))
	return nil
}
