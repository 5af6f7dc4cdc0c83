// Package resource implements accounting for memory mapped by the allocator.
//
// The Controller tracks how many bytes of blocks are currently mapped and,
// when configured with a limit, refuses further mappings once the limit would
// be exceeded. The allocator never bounds growth on its own; a limit is an
// explicit opt-in for embedders that want to sandbox it.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB limit
//	})
//
//	// Non-blocking acquire (returns error immediately if limit exceeded)
//	if err := rc.AcquireMemory(blockSize); err != nil {
//	    // ErrMemoryLimitExceeded - surfaces as an out-of-memory allocation
//	}
//	defer rc.ReleaseMemory(blockSize)
//
// # Thread Safety
//
// All Controller methods are safe for concurrent use. The underlying
// implementations use atomic operations and a weighted semaphore.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource
