package seqalloc

import (
	"fmt"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/hupe1980/seqalloc/internal/block"
	"github.com/hupe1980/seqalloc/internal/conv"
)

// Status codes returned by PosixMemalign.
const (
	StatusOK    = 0
	StatusNoMem = int(syscall.ENOMEM)
	StatusInval = int(syscall.EINVAL)
)

// Thread is the allocation context of one goroutine: a handle to the block
// currently being bumped and, through its previous links, to every block the
// goroutine acquired.
//
// A Thread must only be used by the goroutine that owns it. Its allocation
// path takes no lock and performs no atomic operation.
type Thread struct {
	heap      *Heap
	current   *block.Block
	goroutine uint64 // goroutine-local binding, 0 for explicit contexts
	detached  bool   // owner-side view of donating
	stats     ThreadStats

	donating atomic.Bool   // set by whichever goroutine donates the chain
	released chan struct{} // closed once the chain is on the orphan registry
}

// ThreadStats holds per-context counters.
type ThreadStats struct {
	Allocs   uint64 // successful allocations
	Bytes    uint64 // requested bytes handed out
	Blocks   uint64 // blocks acquired
	Failures uint64 // failed allocations
}

// Heap returns the heap t allocates from.
func (t *Thread) Heap() *Heap { return t.heap }

// Stats returns the counters of t.
func (t *Thread) Stats() ThreadStats { return t.stats }

// Detached reports whether t already donated its blocks.
func (t *Thread) Detached() bool { return t.donating.Load() }

// Detach donates the chain of t to the heap's orphan registry. It is
// idempotent and the chain is donated exactly once, even when the owner and
// Heap.Close race to detach t; allocating from t afterwards fails with
// ErrDetached. Memory already handed out stays valid until the heap is closed.
func (t *Thread) Detach() {
	if !t.donating.CompareAndSwap(false, true) {
		return
	}
	t.detached = true
	t.heap.donate(t)
	close(t.released)
}

// Alloc returns size bytes aligned to alignment, which must be a power of two.
// Alignments below the header width are raised to it.
func (t *Thread) Alloc(size, alignment uintptr) (unsafe.Pointer, error) {
	if t.detached {
		return nil, ErrDetached
	}
	if !conv.IsPowerOfTwo(alignment) {
		return nil, ErrInvalidAlignment
	}
	if alignment < block.HeaderSize {
		alignment = block.HeaderSize
	}
	if _, ok := conv.Add(size, block.HeaderSize+alignment); !ok {
		t.stats.Failures++
		return nil, ErrOverflow
	}

	for {
		if t.current != nil {
			if p, ok := t.current.Bump(size, alignment); ok {
				t.stats.Allocs++
				t.stats.Bytes += uint64(size)
				if debugLogging {
					debugCheckAlloc(t, p, size)
				}
				return p, nil
			}
		}
		if err := t.grow(); err != nil {
			t.stats.Failures++
			return nil, err
		}
	}
}

// grow makes the block following the current one the new current block.
// On failure the chain is left untouched.
func (t *Thread) grow() error {
	h := t.heap
	if h.closed.Load() {
		return ErrClosed
	}
	b, err := h.blocks.Acquire(t.current)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	t.current = b
	t.stats.Blocks++
	return nil
}

// AllocZeroed returns zeroed memory for n elements of size bytes each.
// An overflowing n*size fails with ErrOverflow before anything is mapped.
func (t *Thread) AllocZeroed(n, size uintptr) (unsafe.Pointer, error) {
	total, ok := conv.Mul(n, size)
	if !ok {
		t.stats.Failures++
		return nil, ErrOverflow
	}
	// Blocks come zero-filled from the operating system and no byte is ever
	// handed out twice, so the range is already zero.
	p, err := t.Alloc(total, DefaultAlignment)
	if err != nil {
		return nil, err
	}
	if debugLogging {
		debugCheckZero(p, total)
	}
	return p, nil
}

// Malloc returns size bytes aligned to DefaultAlignment, or nil if no block
// could be acquired.
func (t *Thread) Malloc(size uintptr) unsafe.Pointer {
	if debugLogging {
		t.heap.logger.Debug("malloc", "goroutine", t.goroutine, "size", size)
	}
	p, _ := t.Alloc(size, DefaultAlignment)
	return p
}

// Calloc returns zeroed memory for n elements of size bytes, or nil on
// overflow or exhaustion.
func (t *Thread) Calloc(n, size uintptr) unsafe.Pointer {
	if debugLogging {
		t.heap.logger.Debug("calloc", "goroutine", t.goroutine, "n", n, "size", size)
	}
	p, _ := t.AllocZeroed(n, size)
	return p
}

// Realloc returns a fresh allocation of size bytes holding the first
// min(old size, size) bytes of p. A nil p behaves like Malloc. p is never
// resized in place and its space is never reclaimed; on failure nil is
// returned and p is left as it was.
func (t *Thread) Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	if debugLogging {
		t.heap.logger.Debug("realloc", "goroutine", t.goroutine, "ptr", p, "size", size)
	}
	if p == nil {
		return t.Malloc(size)
	}

	q, err := t.Alloc(size, DefaultAlignment)
	if err != nil {
		return nil
	}
	if n := min(block.RequestedSize(p), size); n > 0 {
		copy(unsafe.Slice((*byte)(q), n), unsafe.Slice((*byte)(p), n))
	}
	return q
}

// Free does nothing: memory is never made available for reuse.
func (t *Thread) Free(p unsafe.Pointer) {
	if debugLogging {
		t.heap.logger.Debug("free", "goroutine", t.goroutine, "ptr", p)
	}
}

// AlignedAlloc returns size bytes aligned to alignment, or nil.
func (t *Thread) AlignedAlloc(alignment, size uintptr) unsafe.Pointer {
	if debugLogging {
		t.heap.logger.Debug("aligned_alloc", "goroutine", t.goroutine, "alignment", alignment, "size", size)
	}
	p, _ := t.Alloc(size, alignment)
	return p
}

// Memalign is AlignedAlloc under its historical name.
func (t *Thread) Memalign(alignment, size uintptr) unsafe.Pointer {
	return t.AlignedAlloc(alignment, size)
}

// Valloc returns size bytes aligned to the page size, or nil.
func (t *Thread) Valloc(size uintptr) unsafe.Pointer {
	if debugLogging {
		t.heap.logger.Debug("valloc", "goroutine", t.goroutine, "size", size)
	}
	p, _ := t.Alloc(size, t.heap.pageSize)
	return p
}

// Pvalloc rounds size up to a page multiple and returns that many
// page-aligned bytes, or nil.
func (t *Thread) Pvalloc(size uintptr) unsafe.Pointer {
	if debugLogging {
		t.heap.logger.Debug("pvalloc", "goroutine", t.goroutine, "size", size)
	}
	rounded, ok := conv.AlignUp(size, t.heap.pageSize)
	if !ok {
		t.stats.Failures++
		return nil
	}
	p, _ := t.Alloc(rounded, t.heap.pageSize)
	return p
}

// PosixMemalign stores size bytes aligned to alignment in *memptr.
// It returns StatusOK, StatusInval if alignment is not a power of two
// multiple of the pointer width, or StatusNoMem. *memptr is only written on
// success.
func (t *Thread) PosixMemalign(memptr *unsafe.Pointer, alignment, size uintptr) int {
	if debugLogging {
		t.heap.logger.Debug("posix_memalign", "goroutine", t.goroutine, "alignment", alignment, "size", size)
	}
	if !conv.IsPowerOfTwo(alignment) || alignment%DefaultAlignment != 0 {
		return StatusInval
	}
	p, err := t.Alloc(size, alignment)
	if err != nil {
		return StatusNoMem
	}
	*memptr = p
	return StatusOK
}

// UsableSize returns the size originally requested for p, not the padded
// capacity reserved for it. It returns 0 for nil.
func (t *Thread) UsableSize(p unsafe.Pointer) uintptr {
	return UsableSize(p)
}

// Bytes returns the requested range of p as a byte slice.
func (t *Thread) Bytes(p unsafe.Pointer) []byte {
	return Bytes(p)
}

// UsableSize returns the size originally requested for p, or 0 for nil.
// p must come from any seqalloc context.
func UsableSize(p unsafe.Pointer) uintptr {
	if p == nil {
		return 0
	}
	return block.RequestedSize(p)
}

// Bytes returns the requested range of p as a byte slice, or nil for nil.
func Bytes(p unsafe.Pointer) []byte {
	if p == nil {
		return nil
	}
	return unsafe.Slice((*byte)(p), block.RequestedSize(p))
}
