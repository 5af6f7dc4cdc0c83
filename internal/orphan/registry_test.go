package orphan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/seqalloc/internal/block"
)

func buildChain(t *testing.T, m *block.Manager, n int) *block.Block {
	t.Helper()
	var cur *block.Block
	for i := 0; i < n; i++ {
		next, err := m.Acquire(cur)
		require.NoError(t, err)
		cur = next
	}
	return cur
}

func TestRegistry_SpliceAndDrain(t *testing.T) {
	m := block.NewManager(block.WithGrowth(4096, 2))
	var r Registry

	r.Splice(nil)
	assert.Equal(t, uint64(0), r.Splices())

	a := buildChain(t, m, 3)
	b := buildChain(t, m, 2)
	r.Splice(a)
	r.Splice(b)

	assert.Equal(t, uint64(2), r.Splices())

	n := r.Drain(func(blk *block.Block) {
		require.NoError(t, m.Release(blk))
	})
	assert.Equal(t, 5, n)
	assert.Empty(t, m.LiveBlocks())

	// Draining an empty registry is a no-op.
	assert.Equal(t, 0, r.Drain(func(*block.Block) { t.Fatal("unexpected block") }))
}

func TestRegistry_SpliceKeepsChainOrder(t *testing.T) {
	m := block.NewManager(block.WithGrowth(4096, 2))
	var r Registry

	a := buildChain(t, m, 2)
	aOldest := a.Oldest()
	r.Splice(a)

	b := buildChain(t, m, 2)
	bOldest := b.Oldest()
	r.Splice(b)

	// b's oldest block now links into a's newest block.
	assert.Same(t, a, bOldest.Prev())
	assert.Same(t, aOldest, b.Oldest())
	assert.Nil(t, aOldest.Prev())

	r.Drain(func(blk *block.Block) { _ = m.Release(blk) })
}

func TestRegistry_ConcurrentSplice(t *testing.T) {
	m := block.NewManager(block.WithGrowth(4096, 2))
	var r Registry

	const goroutines = 32
	const perChain = 4

	chains := make([]*block.Block, goroutines)
	for i := range chains {
		chains[i] = buildChain(t, m, perChain)
	}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(c *block.Block) {
			defer wg.Done()
			<-start
			r.Splice(c)
		}(chains[i])
	}
	close(start)
	wg.Wait()

	assert.Equal(t, uint64(goroutines), r.Splices())

	seen := make(map[uint32]bool)
	r.Drain(func(blk *block.Block) {
		assert.False(t, seen[blk.ID()], "block %d drained twice", blk.ID())
		seen[blk.ID()] = true
		require.NoError(t, m.Release(blk))
	})
	assert.Len(t, seen, goroutines*perChain)
	assert.Empty(t, m.LiveBlocks())
}

func BenchmarkRegistry_Splice(b *testing.B) {
	m := block.NewManager(block.WithGrowth(4096, 2))
	var r Registry
	blk, err := m.Acquire(nil)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		// Splicing the same single-block chain repeatedly creates a cycle;
		// reset the head so the registry stays a list.
		r.Splice(blk)
		r.head.Store(nil)
		blk.Link(nil)
	}
	b.StopTimer()
	_ = m.Release(blk)
}
