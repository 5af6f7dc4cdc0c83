//go:build seqalloc_debug

package seqalloc

import (
	"fmt"
	"unsafe"

	"github.com/hupe1980/seqalloc/internal/block"
)

const debugLogging = true

func debugCheckAlloc(t *Thread, p unsafe.Pointer, size uintptr) {
	if !t.current.Contains(p, size) {
		panic(fmt.Sprintf("seqalloc: allocation %p+%d outside block %d", p, size, t.current.ID()))
	}
	if uintptr(p)%block.HeaderSize != 0 {
		panic(fmt.Sprintf("seqalloc: allocation %p misaligned", p))
	}
	if got := block.RequestedSize(p); got != size {
		panic(fmt.Sprintf("seqalloc: header of %p holds %d, want %d", p, got, size))
	}
}

func debugCheckZero(p unsafe.Pointer, n uintptr) {
	for i, b := range unsafe.Slice((*byte)(p), n) {
		if b != 0 {
			panic(fmt.Sprintf("seqalloc: calloc byte %d of %p is %#x", i, p, b))
		}
	}
}
