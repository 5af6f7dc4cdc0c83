package seqalloc

import (
	"sync"
	"sync/atomic"
	"unsafe"
)

var (
	defaultMu   sync.Mutex
	defaultHeap atomic.Pointer[Heap]
)

// Init creates the process-wide heap used by the package-level functions and
// returns it. Only the first successful call has an effect; later calls return
// the existing heap and ignore opts.
func Init(opts ...Option) (*Heap, error) {
	if h := defaultHeap.Load(); h != nil {
		return h, nil
	}

	defaultMu.Lock()
	defer defaultMu.Unlock()

	if h := defaultHeap.Load(); h != nil {
		return h, nil
	}
	h, err := New(opts...)
	if err != nil {
		return nil, err
	}
	defaultHeap.Store(h)
	return h, nil
}

// Default returns the process-wide heap, creating it with default options on
// first use.
func Default() *Heap {
	if h := defaultHeap.Load(); h != nil {
		return h
	}
	h, err := Init()
	if err != nil {
		// default options always validate
		panic(err)
	}
	return h
}

// Shutdown closes the process-wide heap. It is meant to run once at process
// exit, after every other goroutine stopped using seqalloc memory.
func Shutdown() error {
	return Default().Close()
}

// Go runs fn on a new goroutine of the process-wide heap.
func Go(fn func(t *Thread)) error {
	return Default().Go(fn)
}

// Spawn runs routine(arg) on a new goroutine of the process-wide heap.
func Spawn(routine func(arg any) any, arg any) (<-chan any, error) {
	return Default().Spawn(routine, arg)
}

// Detach donates the implicit context of the calling goroutine, if it has one.
func Detach() {
	if t, ok := Default().locals.Get(); ok {
		t.Detach()
	}
}

// The package-level allocation functions below look up the calling
// goroutine's implicit context on every call: they parse the goroutine id from
// runtime.Stack and take a read lock on the context table. Only the *Thread
// methods are lock-free; hot loops should hold the handle from Attach, Local
// or a spawned goroutine instead.

// Malloc allocates from the calling goroutine's implicit context.
// See Thread.Malloc for a lookup-free path.
func Malloc(size uintptr) unsafe.Pointer {
	return Default().Local().Malloc(size)
}

// Calloc allocates zeroed memory from the calling goroutine's implicit context.
func Calloc(n, size uintptr) unsafe.Pointer {
	return Default().Local().Calloc(n, size)
}

// Realloc reallocates p in the calling goroutine's implicit context.
func Realloc(p unsafe.Pointer, size uintptr) unsafe.Pointer {
	return Default().Local().Realloc(p, size)
}

// Free does nothing.
func Free(p unsafe.Pointer) {
	Default().Local().Free(p)
}

// AlignedAlloc allocates aligned memory from the calling goroutine's implicit context.
func AlignedAlloc(alignment, size uintptr) unsafe.Pointer {
	return Default().Local().AlignedAlloc(alignment, size)
}

// Memalign is AlignedAlloc.
func Memalign(alignment, size uintptr) unsafe.Pointer {
	return Default().Local().Memalign(alignment, size)
}

// Valloc allocates page-aligned memory from the calling goroutine's implicit context.
func Valloc(size uintptr) unsafe.Pointer {
	return Default().Local().Valloc(size)
}

// Pvalloc allocates whole pages from the calling goroutine's implicit context.
func Pvalloc(size uintptr) unsafe.Pointer {
	return Default().Local().Pvalloc(size)
}

// PosixMemalign allocates aligned memory from the calling goroutine's implicit
// context and stores it in *memptr.
func PosixMemalign(memptr *unsafe.Pointer, alignment, size uintptr) int {
	return Default().Local().PosixMemalign(memptr, alignment, size)
}
