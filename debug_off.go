//go:build !seqalloc_debug

package seqalloc

import "unsafe"

const debugLogging = false

func debugCheckAlloc(*Thread, unsafe.Pointer, uintptr) {}

func debugCheckZero(unsafe.Pointer, uintptr) {}
