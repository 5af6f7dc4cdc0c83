//go:build amd64 || arm64

package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPowerOfTwo(t *testing.T) {
	for _, v := range []uintptr{1, 2, 4, 8, 4096, 1 << 40} {
		assert.True(t, IsPowerOfTwo(v), "%d", v)
	}
	for _, v := range []uintptr{0, 3, 6, 12, 4095, math.MaxUint64} {
		assert.False(t, IsPowerOfTwo(v), "%d", v)
	}
}

func TestAdd(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, ok := Add(40, 2)
		assert.True(t, ok)
		assert.Equal(t, uintptr(42), got)
	})

	t.Run("overflow", func(t *testing.T) {
		_, ok := Add(math.MaxUint64, 1)
		assert.False(t, ok)
	})

	t.Run("max", func(t *testing.T) {
		got, ok := Add(math.MaxUint64-1, 1)
		assert.True(t, ok)
		assert.Equal(t, uintptr(math.MaxUint64), got)
	})
}

func TestMul(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, ok := Mul(1<<20, 2)
		assert.True(t, ok)
		assert.Equal(t, uintptr(2<<20), got)
	})

	t.Run("zero", func(t *testing.T) {
		got, ok := Mul(0, math.MaxUint64)
		assert.True(t, ok)
		assert.Equal(t, uintptr(0), got)
	})

	t.Run("overflow", func(t *testing.T) {
		_, ok := Mul(math.MaxUint64/2+1, 2)
		assert.False(t, ok)
	})
}

func TestAlignUp(t *testing.T) {
	cases := []struct {
		v, align, want uintptr
	}{
		{0, 8, 0},
		{1, 8, 8},
		{8, 8, 8},
		{9, 16, 16},
		{4097, 4096, 8192},
	}
	for _, c := range cases {
		got, ok := AlignUp(c.v, c.align)
		assert.True(t, ok)
		assert.Equal(t, c.want, got)
	}

	t.Run("not a power of two", func(t *testing.T) {
		_, ok := AlignUp(10, 12)
		assert.False(t, ok)
	})

	t.Run("overflow", func(t *testing.T) {
		_, ok := AlignUp(math.MaxUint64-2, 8)
		assert.False(t, ok)
	})
}

func TestUintptrToInt(t *testing.T) {
	got, ok := UintptrToInt(123)
	assert.True(t, ok)
	assert.Equal(t, 123, got)

	_, ok = UintptrToInt(math.MaxUint64)
	assert.False(t, ok)
}

func TestUintptrToInt64(t *testing.T) {
	got, ok := UintptrToInt64(1 << 40)
	assert.True(t, ok)
	assert.Equal(t, int64(1<<40), got)

	_, ok = UintptrToInt64(math.MaxUint64)
	assert.False(t, ok)
}

func TestIntToUintptr(t *testing.T) {
	got, ok := IntToUintptr(7)
	assert.True(t, ok)
	assert.Equal(t, uintptr(7), got)

	_, ok = IntToUintptr(-1)
	assert.False(t, ok)
}
