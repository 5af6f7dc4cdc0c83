package block

import (
	"unsafe"

	"github.com/hupe1980/seqalloc/internal/conv"
	"github.com/hupe1980/seqalloc/internal/mmap"
)

// header is the record placed immediately before every returned pointer.
type header struct {
	requested uint64
}

// HeaderSize is the number of bytes reserved in front of every allocation.
const HeaderSize = unsafe.Sizeof(header{})

// Block is a contiguous mapped region used as a bump allocation arena.
type Block struct {
	prev    *Block
	mapping *mmap.Mapping
	base    unsafe.Pointer
	size    uintptr
	cursor  uintptr // offset of the next free byte
	id      uint32
}

// ID returns the manager-assigned id of the block.
func (b *Block) ID() uint32 { return b.id }

// Size returns the total mapped bytes of the block.
func (b *Block) Size() uintptr { return b.size }

// Prev returns the block acquired before b in the same chain.
func (b *Block) Prev() *Block { return b.prev }

// Link sets the previous link of b.
// Only the oldest block of a chain that no other goroutine can observe may be relinked.
func (b *Block) Link(prev *Block) { b.prev = prev }

// Start returns the first address of the block.
func (b *Block) Start() uintptr { return uintptr(b.base) }

// Limit returns the first address beyond the block.
func (b *Block) Limit() uintptr { return uintptr(b.base) + b.size }

// Cursor returns the address of the next free byte.
func (b *Block) Cursor() uintptr { return uintptr(b.base) + b.cursor }

// Used returns the number of bytes consumed so far, headers and padding included.
func (b *Block) Used() uintptr { return b.cursor }

// Contains reports whether [p, p+n) lies inside the block.
func (b *Block) Contains(p unsafe.Pointer, n uintptr) bool {
	addr := uintptr(p)
	end, ok := conv.Add(addr, n)
	return ok && addr >= b.Start() && end <= b.Limit()
}

// Oldest walks the previous links and returns the first block of the chain.
func (b *Block) Oldest() *Block {
	oldest := b
	for oldest.prev != nil {
		oldest = oldest.prev
	}
	return oldest
}

// ChainLen returns the number of blocks from b to the oldest block.
func (b *Block) ChainLen() int {
	n := 0
	for c := b; c != nil; c = c.prev {
		n++
	}
	return n
}

// Bump reserves size bytes aligned to align, writes the header in front of
// them and advances the cursor. It returns false without touching the block
// if the request does not fit. align must be a power of two no smaller than
// HeaderSize.
//
// The candidate end must be strictly below the limit: the last byte of a
// block is never handed out.
func (b *Block) Bump(size, align uintptr) (unsafe.Pointer, bool) {
	start := uintptr(b.base)
	limit := start + b.size

	withHeader, ok := conv.Add(start+b.cursor, HeaderSize)
	if !ok {
		return nil, false
	}
	candidate, ok := conv.AlignUp(withHeader, align)
	if !ok {
		return nil, false
	}
	end, ok := conv.Add(candidate, size)
	if !ok || end >= limit {
		return nil, false
	}

	off := candidate - start
	p := unsafe.Add(b.base, off)
	headerOf(p).requested = uint64(size)
	b.cursor = off + size
	return p, true
}

func headerOf(p unsafe.Pointer) *header {
	return (*header)(unsafe.Add(p, -int(HeaderSize)))
}

// RequestedSize returns the size recorded in the header of p.
// p must have been returned by Bump.
func RequestedSize(p unsafe.Pointer) uintptr {
	return uintptr(headerOf(p).requested)
}
