package seqalloc

import (
	"context"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

const (
	slotFree uint32 = iota
	slotClaimed
)

// startRecord carries a routine from the spawning goroutine to the spawned one.
type startRecord struct {
	state   atomic.Uint32
	routine func(t *Thread, arg any) any
	arg     any
	done    func(result any, returned bool) // runs after the context is donated
}

// spawnRing is a fixed ring of start records. Slots are handed out round
// robin; a slot still held by a goroutine that has not started yet is never
// overwritten.
type spawnRing struct {
	slots []startRecord
	next  atomic.Uint64
}

func newSpawnRing(n int) *spawnRing {
	return &spawnRing{slots: make([]startRecord, n)}
}

// reserve claims the next slot and fills it. It returns nil if that slot is
// still pending.
func (r *spawnRing) reserve(routine func(t *Thread, arg any) any, arg any, done func(any, bool)) *startRecord {
	i := (r.next.Add(1) - 1) % uint64(len(r.slots))
	rec := &r.slots[i]
	if !rec.state.CompareAndSwap(slotFree, slotClaimed) {
		return nil
	}
	rec.routine = routine
	rec.arg = arg
	rec.done = done
	return rec
}

// take empties rec and releases its slot.
func (r *spawnRing) take(rec *startRecord) (func(t *Thread, arg any) any, any, func(any, bool)) {
	routine, arg, done := rec.routine, rec.arg, rec.done
	rec.routine, rec.arg, rec.done = nil, nil, nil
	rec.state.Store(slotFree)
	return routine, arg, done
}

func (r *spawnRing) capacity() int { return len(r.slots) }

// pending returns the number of claimed slots.
func (r *spawnRing) pending() int {
	n := 0
	for i := range r.slots {
		if r.slots[i].state.Load() == slotClaimed {
			n++
		}
	}
	return n
}

// start reserves a start record and launches a goroutine that runs routine
// with a fresh implicit context. The context is donated when the routine
// returns, panics or calls runtime.Goexit; done, if set, runs right after with
// returned reporting whether routine returned normally.
func (h *Heap) start(routine func(t *Thread, arg any) any, arg any, done func(result any, returned bool)) error {
	if h.closed.Load() {
		h.metrics.RecordSpawn(ErrClosed)
		return ErrClosed
	}

	rec := h.slots.reserve(routine, arg, done)
	if rec == nil {
		h.spawnRejected.Add(1)
		h.metrics.RecordSpawn(ErrSpawnCapacity)
		h.failLog.Do(func() { h.logger.LogSpawnRejected(h.slots.capacity()) })
		return fmt.Errorf("%w: %d slots pending", ErrSpawnCapacity, h.slots.capacity())
	}

	h.spawned.Add(1)
	h.metrics.RecordSpawn(nil)
	go h.run(rec)
	return nil
}

func (h *Heap) run(rec *startRecord) {
	routine, arg, done := h.slots.take(rec)

	var (
		result   any
		returned bool
	)
	t := h.bind()
	defer func() {
		t.Detach()
		if done != nil {
			done(result, returned)
		}
	}()

	result = routine(t, arg)
	returned = true
}

// Go runs fn on a new goroutine whose implicit context is t. The chain of t
// is donated when fn finishes, however it finishes.
//
// Go fails with ErrSpawnCapacity if too many spawned goroutines are still
// waiting to start, and with ErrClosed after Close.
func (h *Heap) Go(fn func(t *Thread)) error {
	return h.start(func(t *Thread, _ any) any {
		fn(t)
		return nil
	}, nil, nil)
}

// Spawn runs routine(arg) on a new goroutine and delivers its result on the
// returned channel, which is closed afterwards. If routine exits through
// runtime.Goexit, the channel is closed without a value. The goroutine's
// context is donated before anything is delivered.
//
// Inside routine the package-level functions and Heap.Local allocate from the
// goroutine's own context.
func (h *Heap) Spawn(routine func(arg any) any, arg any) (<-chan any, error) {
	results := make(chan any, 1)
	err := h.start(func(_ *Thread, a any) any {
		return routine(a)
	}, arg, func(result any, returned bool) {
		if returned {
			results <- result
		}
		close(results)
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Group is an errgroup whose goroutines each allocate from their own context.
type Group struct {
	heap *Heap
	eg   *errgroup.Group
}

// Group returns a new Group and a derived context that is canceled the first
// time a function passed to Go returns a non-nil error.
func (h *Heap) Group(ctx context.Context) (*Group, context.Context) {
	eg, ctx := errgroup.WithContext(ctx)
	return &Group{heap: h, eg: eg}, ctx
}

// SetLimit limits the number of active goroutines in the group.
func (g *Group) SetLimit(n int) {
	g.eg.SetLimit(n)
}

// Go runs fn on a new goroutine with a fresh context that is donated when fn
// returns. Spawn failures are reported through Wait.
func (g *Group) Go(fn func(t *Thread) error) {
	g.eg.Go(func() error {
		errc := make(chan error, 1)
		err := g.heap.start(func(t *Thread, _ any) any {
			return fn(t)
		}, nil, func(result any, returned bool) {
			if !returned {
				errc <- ErrGoexit
				return
			}
			err, _ := result.(error)
			errc <- err
		})
		if err != nil {
			return err
		}
		return <-errc
	})
}

// Wait blocks until all goroutines started by Go have finished and returns
// the first non-nil error.
func (g *Group) Wait() error {
	return g.eg.Wait()
}
