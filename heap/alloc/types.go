package alloc

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/joshuapare/heapkit/heap/vmem"
	"github.com/joshuapare/heapkit/internal/align"
)

const (
	// MaxArenaSize is the largest arena either allocator manages (2GB - 1).
	// Free node headers hold their size and link as signed 32-bit words.
	MaxArenaSize = math.MaxInt32

	// NodeSize is the size of a free node header: a 32-bit size and a 32-bit link.
	NodeSize = 8

	// NodeAlign is the alignment of a free node header.
	NodeAlign = 8
)

// Runtime allocation logging, controlled by the HEAPKIT_LOG_ALLOC env var.
// Only consulted when Options.Logger is nil.
var logAlloc = os.Getenv("HEAPKIT_LOG_ALLOC") != ""

// Layout describes an allocation request.
type Layout struct {
	Size  int // bytes requested, >= 0
	Align int // power of two
}

// NewLayout validates size and alignment.
func NewLayout(size, alignment int) (Layout, error) {
	l := Layout{Size: size, Align: alignment}
	if !l.valid() {
		return Layout{}, fmt.Errorf("%w: size=%d align=%d", ErrBadLayout, size, alignment)
	}
	return l, nil
}

// LayoutOf is a shorthand for NewLayout(size, 1) that cannot fail for size >= 0.
func LayoutOf(size int) Layout {
	return Layout{Size: size, Align: 1}
}

func (l Layout) valid() bool {
	return l.Size >= 0 && align.IsPowerOfTwo(l.Align)
}

func (l Layout) String() string {
	return fmt.Sprintf("{size=%d align=%d}", l.Size, l.Align)
}

// Region is the half-open span [Start, End) of arena offsets. Allocators
// align the address of Start, not the offset: OS arenas start on a page
// boundary, so the two agree for alignments up to the page size and may
// differ above it.
type Region struct {
	Start int
	End   int
}

// Len returns the size of r in bytes.
func (r Region) Len() int { return r.End - r.Start }

// Overlaps reports whether r and o share at least one byte.
func (r Region) Overlaps(o Region) bool {
	return r.Start < o.End && o.Start < r.End
}

func (r Region) String() string {
	return fmt.Sprintf("[0x%X, 0x%X)", r.Start, r.End)
}

// Options configures allocator construction. A nil *Options uses defaults.
type Options struct {
	// Source provides the arena. Default: vmem.Default.
	Source vmem.Source

	// Logger receives lifecycle and failure events. Default: discarded, or
	// a debug-level stderr logger when HEAPKIT_LOG_ALLOC is set.
	Logger *slog.Logger

	// Name is attached to every log record to tell instances apart.
	Name string
}

func (o *Options) source() vmem.Source {
	if o == nil || o.Source == nil {
		return vmem.Default
	}
	return o.Source
}

func (o *Options) logger() *slog.Logger {
	if o != nil && o.Logger != nil {
		return o.Logger
	}
	if logAlloc {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (o *Options) name() string {
	if o == nil {
		return ""
	}
	return o.Name
}
