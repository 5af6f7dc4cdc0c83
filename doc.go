// Package seqalloc provides a sequential, never-freeing memory allocator for
// programs that allocate a lot and free little.
//
// Memory comes from anonymous mappings grouped into blocks. Each goroutine
// bumps a cursor through its own block and acquires a larger one when the
// current block is full; the first block of a chain is 2 MiB and every next
// one doubles. Allocations are never reclaimed individually: Free is a no-op
// and Realloc always copies into a fresh allocation. Every block is returned to
// the operating system at once when the heap is closed.
//
// # Contexts
//
// All allocation goes through a *Thread, the allocation context of one
// goroutine. Its fast path takes no lock and performs no atomic operation.
//
//	h, _ := seqalloc.New()
//	defer h.Close()
//
//	t := h.Attach()
//	p := t.Malloc(128)
//	buf := t.Bytes(p) // len(buf) == 128
//	t.Detach()
//
// Goroutines started through Heap.Go, Heap.Spawn or a Group get a fresh
// context that is donated to the heap when the goroutine ends, however it
// ends:
//
//	g, ctx := h.Group(ctx)
//	for range workers {
//		g.Go(func(t *seqalloc.Thread) error {
//			rows, err := seqalloc.MakeSlice[row](t, 1024)
//			...
//		})
//	}
//	err := g.Wait()
//
// Other goroutines get an implicit context from Heap.Local or the
// package-level functions, which use the process-wide Default heap:
//
//	p := seqalloc.Malloc(64)
//	defer seqalloc.Detach()
//
// Each package-level call resolves the implicit context through the goroutine
// id and a read-locked table, so it is much slower than a *Thread method. Code
// that allocates in a loop should fetch the handle once:
//
//	t := seqalloc.Default().Local()
//	for i := range n {
//		rows[i] = t.Malloc(rowSize)
//	}
//
// # Lifetime
//
// Memory stays valid until the heap is closed, even after the goroutine that
// allocated it has ended. Close (or Shutdown for the default heap) must run
// after every other goroutine stopped touching the heap's memory.
//
// The memory is not scanned by the garbage collector. Store only pointer-free
// data in it.
//
// # Debugging
//
// Building with the seqalloc_debug tag logs every entry point at debug level
// and checks each allocation against its block.
package seqalloc
