// Package conv provides checked integer arithmetic and conversion utilities.
//
// Every size and offset computed on the allocation path goes through these
// helpers so that an oversized request turns into a failed allocation instead
// of a wrapped address.
//
// Use cases:
//   - Header and alignment arithmetic inside a block
//   - Overflow detection for count * element-size requests
//   - Converting between uintptr sizes and the int/int64 types used by slices and accounting
//
// For conversions that are provably safe by domain constraints (e.g. loop
// indices, bounded counters), use direct type casts instead to avoid overhead.
package conv
