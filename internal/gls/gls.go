// Package gls provides goroutine-local storage keyed by goroutine id.
//
// It backs the implicit allocation context of goroutines that were not
// started through the allocator's spawn trampoline.
package gls

import (
	"runtime"
	"strconv"
	"sync"
)

//============================================================================
// GoroutineID
//============================================================================

// GoroutineID returns the id of the calling goroutine.
//
// The id is parsed from the header line of runtime.Stack
// ("goroutine 42 [running]:"), the only portable source for it.
func GoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGoroutineID(buf[:n])
}

func parseGoroutineID(stk []byte) uint64 {
	const prefix = "goroutine "
	if len(stk) < len(prefix) || string(stk[:len(prefix)]) != prefix {
		panic("gls: unexpected stack header")
	}
	stk = stk[len(prefix):]
	end := 0
	for end < len(stk) && stk[end] >= '0' && stk[end] <= '9' {
		end++
	}
	id, err := strconv.ParseUint(string(stk[:end]), 10, 64)
	if err != nil {
		panic(err)
	}
	return id
}

//============================================================================
// Gls: Goroutine Local Storage
//============================================================================

// Gls maps goroutine ids to values of T.
type Gls[T any] struct {
	lk sync.RWMutex
	m  map[uint64]T
}

// New creates an empty goroutine-local store.
func New[T any]() *Gls[T] {
	return &Gls[T]{m: map[uint64]T{}}
}

// SetID binds v to goroutine id.
func (g *Gls[T]) SetID(id uint64, v T) {
	g.lk.Lock()
	defer g.lk.Unlock()
	g.m[id] = v
}

// Get returns the value bound to the calling goroutine.
func (g *Gls[T]) Get() (T, bool) {
	return g.GetID(GoroutineID())
}

// GetID returns the value bound to goroutine id.
func (g *Gls[T]) GetID(id uint64) (T, bool) {
	g.lk.RLock()
	defer g.lk.RUnlock()
	v, ok := g.m[id]
	return v, ok
}

// GetOrCreate returns the value bound to the calling goroutine, creating and
// binding one with createFn if there is none.
func (g *Gls[T]) GetOrCreate(createFn func(id uint64) T) T {
	id := GoroutineID()
	if v, ok := g.GetID(id); ok {
		return v
	}

	g.lk.Lock()
	defer g.lk.Unlock()
	// cache breakdown protection
	if v, ok := g.m[id]; ok {
		return v
	}
	v := createFn(id)
	g.m[id] = v
	return v
}

// DeleteID unbinds goroutine id.
func (g *Gls[T]) DeleteID(id uint64) {
	g.lk.Lock()
	defer g.lk.Unlock()
	delete(g.m, id)
}
