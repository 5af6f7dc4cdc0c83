// Package mmap provides anonymous memory mappings used as allocator blocks.
//
// # Overview
//
// Blocks handed out by the allocator live outside the Go heap: each one is a
// private, read-write, zero-filled anonymous mapping obtained directly from
// the operating system. The garbage collector neither scans nor moves them,
// and a mapping is only ever returned to the OS by an explicit Close.
//
// # Usage
//
//	m, err := mmap.MapAnon(2 << 20)
//	if err != nil { ... }
//	defer m.Close()
//
//	base := m.Pointer()
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_ANON|MAP_PRIVATE, madvise(2) for hints
//   - Windows: VirtualAlloc with MEM_RESERVE|MEM_COMMIT (advice is a no-op)
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches the mapped memory after Close returns.
package mmap
