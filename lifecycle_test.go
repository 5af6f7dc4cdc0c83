package seqalloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swapDefault clears the process-wide heap for the duration of the test.
func swapDefault(t *testing.T) {
	t.Helper()
	old := defaultHeap.Swap(nil)
	t.Cleanup(func() {
		if h := defaultHeap.Swap(old); h != nil && !h.Closed() {
			_ = h.Close()
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("first call wins", func(t *testing.T) {
		swapDefault(t)

		h1, err := Init(WithInitialBlockSize(64 << 10))
		require.NoError(t, err)
		h2, err := Init(WithInitialBlockSize(1 << 20))
		require.NoError(t, err)

		assert.Same(t, h1, h2)
		assert.Same(t, h1, Default())
		assert.Equal(t, uintptr(64<<10), h1.blocks.InitialSize())
	})

	t.Run("invalid options leave it uninitialized", func(t *testing.T) {
		swapDefault(t)

		h, err := Init(WithGrowthMultiplier(0))
		assert.Error(t, err)
		assert.Nil(t, h)
		assert.Nil(t, defaultHeap.Load())

		assert.Equal(t, uintptr(DefaultInitialBlockSize), Default().blocks.InitialSize())
	})
}

func TestPackageLevel(t *testing.T) {
	swapDefault(t)

	p := Malloc(24)
	require.NotNil(t, p)
	assert.Equal(t, uintptr(24), UsableSize(p))
	Free(p)

	c := Calloc(4, 4)
	require.NotNil(t, c)
	assert.Equal(t, make([]byte, 16), Bytes(c))

	r := Realloc(p, 48)
	require.NotNil(t, r)
	assert.Equal(t, uintptr(48), UsableSize(r))

	for _, a := range []unsafe.Pointer{AlignedAlloc(128, 1), Memalign(64, 1)} {
		require.NotNil(t, a)
	}
	page := Default().PageSize()
	assert.Zero(t, uintptr(Valloc(1))%page)
	assert.Equal(t, page, UsableSize(Pvalloc(1)))

	var m unsafe.Pointer
	require.Equal(t, StatusOK, PosixMemalign(&m, 32, 8))
	assert.Zero(t, uintptr(m)%32)

	first := Default().Local()
	assert.Equal(t, uint64(8), first.Stats().Allocs)

	Detach()
	assert.True(t, first.Detached())
	Detach()

	require.NotNil(t, Malloc(8))
	assert.NotSame(t, first, Default().Local())

	results, err := Spawn(func(arg any) any { return UsableSize(Malloc(arg.(uintptr))) }, uintptr(77))
	require.NoError(t, err)
	assert.Equal(t, uintptr(77), <-results)

	before := Default().Stats().Donated
	require.NoError(t, Go(func(th *Thread) {
		th.Malloc(1)
	}))
	require.Eventually(t, func() bool { return Default().Stats().Donated == before+1 }, waitFor, tick)
}

func BenchmarkMalloc(b *testing.B) {
	h, err := New()
	require.NoError(b, err)
	defer func() { _ = h.Close() }()

	b.Run("package-level lookup", func(b *testing.B) {
		old := defaultHeap.Swap(h)
		defer defaultHeap.Store(old)
		for i := 0; i < b.N; i++ {
			_ = Malloc(64)
		}
	})

	b.Run("held handle", func(b *testing.B) {
		t := h.Local()
		for i := 0; i < b.N; i++ {
			_ = t.Malloc(64)
		}
	})
}

func TestShutdown(t *testing.T) {
	swapDefault(t)

	require.NotNil(t, Malloc(1<<10))
	require.NoError(t, Shutdown())
	assert.Empty(t, Default().LiveBlocks())
	assert.ErrorIs(t, Shutdown(), ErrClosed)

	assert.Nil(t, Malloc(8))
}
