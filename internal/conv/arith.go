package conv

import (
	"math"
	"math/bits"
)

// IsPowerOfTwo reports whether v is a non-zero power of two.
func IsPowerOfTwo(v uintptr) bool {
	return v != 0 && v&(v-1) == 0
}

// Add returns a+b and false if the sum overflows uintptr.
func Add(a, b uintptr) (uintptr, bool) {
	sum, carry := bits.Add(uint(a), uint(b), 0)
	if carry != 0 {
		return 0, false
	}
	return uintptr(sum), true
}

// Mul returns a*b and false if the product overflows uintptr.
func Mul(a, b uintptr) (uintptr, bool) {
	hi, lo := bits.Mul(uint(a), uint(b))
	if hi != 0 {
		return 0, false
	}
	return uintptr(lo), true
}

// AlignUp rounds v up to the next multiple of align, which must be a power of two.
// It returns false if align is not a power of two or the result overflows.
func AlignUp(v, align uintptr) (uintptr, bool) {
	if !IsPowerOfTwo(align) {
		return 0, false
	}
	sum, ok := Add(v, align-1)
	if !ok {
		return 0, false
	}
	return sum &^ (align - 1), true
}

// UintptrToInt converts uintptr to int safely.
func UintptrToInt(v uintptr) (int, bool) {
	if uint64(v) > uint64(math.MaxInt) {
		return 0, false
	}
	return int(v), true
}

// UintptrToInt64 converts uintptr to int64 safely.
func UintptrToInt64(v uintptr) (int64, bool) {
	if uint64(v) > uint64(math.MaxInt64) {
		return 0, false
	}
	return int64(v), true
}

// IntToUintptr converts int to uintptr safely.
func IntToUintptr(v int) (uintptr, bool) {
	if v < 0 {
		return 0, false
	}
	return uintptr(v), true
}
