// Package orphan holds the block chains donated by goroutines that finished
// allocating. Chains are spliced onto a lock-free stack and only ever walked
// once, when the heap is torn down.
package orphan

import (
	"sync/atomic"

	"github.com/hupe1980/seqalloc/internal/block"
)

// Registry is a lock-free stack of donated block chains.
// The zero value is an empty registry.
type Registry struct {
	head    atomic.Pointer[block.Block]
	splices atomic.Uint64
	retries atomic.Uint64
}

// Splice pushes the whole chain ending in newest onto the registry in one step.
// The chain must be exclusively owned by the caller. A nil chain is a no-op.
func (r *Registry) Splice(newest *block.Block) {
	if newest == nil {
		return
	}
	oldest := newest.Oldest()

	// oldest stays private until the CAS publishes newest, so relinking it on
	// every retry is never observed by another goroutine.
	for {
		head := r.head.Load()
		oldest.Link(head)
		if r.head.CompareAndSwap(head, newest) {
			break
		}
		r.retries.Add(1)
	}
	r.splices.Add(1)
}

// Drain detaches everything spliced so far and calls fn for each block in
// unspecified order. fn may release the block; the previous link is read
// before fn runs.
func (r *Registry) Drain(fn func(b *block.Block)) int {
	n := 0
	for b := r.head.Swap(nil); b != nil; {
		prev := b.Prev()
		fn(b)
		b = prev
		n++
	}
	return n
}

// Splices returns the number of chains donated so far.
func (r *Registry) Splices() uint64 {
	return r.splices.Load()
}

// Retries returns the number of failed compare-and-swap attempts.
func (r *Registry) Retries() uint64 {
	return r.retries.Load()
}
