package seqalloc

import (
	"unsafe"

	"github.com/hupe1980/seqalloc/internal/conv"
)

// NewValue allocates a zeroed T from t. The value lives outside the Go heap: T must
// not contain Go pointers that are the only reference to their target.
func NewValue[T any](t *Thread) (*T, error) {
	var zero T
	p, err := t.Alloc(max(unsafe.Sizeof(zero), 1), max(unsafe.Alignof(zero), DefaultAlignment))
	if err != nil {
		return nil, err
	}
	return (*T)(p), nil
}

// MakeSlice allocates a zeroed slice of n elements of T from t. The same
// pointer restriction as for NewValue applies.
func MakeSlice[T any](t *Thread, n int) ([]T, error) {
	var zero T
	count, ok := conv.IntToUintptr(n)
	if !ok {
		return nil, ErrOverflow
	}
	total, ok := conv.Mul(count, unsafe.Sizeof(zero))
	if !ok {
		return nil, ErrOverflow
	}
	p, err := t.Alloc(total, max(unsafe.Alignof(zero), DefaultAlignment))
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*T)(p), n), nil
}
