package seqalloc

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when a new block could not be acquired.
	ErrOutOfMemory = errors.New("seqalloc: out of memory")
	// ErrOverflow is returned when a size computation does not fit in the address space.
	ErrOverflow = errors.New("seqalloc: size overflow")
	// ErrInvalidAlignment is returned for an alignment that is not a power of two.
	ErrInvalidAlignment = errors.New("seqalloc: invalid alignment")
	// ErrClosed is returned once the heap has been torn down.
	ErrClosed = errors.New("seqalloc: heap closed")
	// ErrDetached is returned when allocating from a context that already donated its blocks.
	ErrDetached = errors.New("seqalloc: context detached")
	// ErrSpawnCapacity is returned when every start slot of the spawn ring is in use.
	ErrSpawnCapacity = errors.New("seqalloc: spawn capacity exhausted")
	// ErrGoexit is reported by Group.Wait for a goroutine that exited through runtime.Goexit.
	ErrGoexit = errors.New("seqalloc: goroutine exited without returning")
)

// ErrInvalidConfig indicates an option value the heap cannot run with.
type ErrInvalidConfig struct {
	Field string
	Value any
}

func (e *ErrInvalidConfig) Error() string {
	return fmt.Sprintf("seqalloc: invalid %s: %v", e.Field, e.Value)
}
