package gls

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoroutineID(t *testing.T) {
	id := GoroutineID()
	assert.NotZero(t, id)
	assert.Equal(t, id, GoroutineID())

	var other uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		other = GoroutineID()
	}()
	<-done
	assert.NotEqual(t, id, other)
}

func TestParseGoroutineID(t *testing.T) {
	assert.Equal(t, uint64(42), parseGoroutineID([]byte("goroutine 42 [running]:\n")))
	assert.Panics(t, func() { parseGoroutineID([]byte("thread 1")) })
}

func TestGls_Smoke(t *testing.T) {
	s := New[string]()

	_, ok := s.Get()
	assert.False(t, ok)

	s.SetID(GoroutineID(), "ab")
	v, ok := s.Get()
	require.True(t, ok)
	assert.Equal(t, "ab", v)

	calls := 0
	v = s.GetOrCreate(func(uint64) string {
		calls++
		return "new"
	})
	assert.Equal(t, "ab", v)
	assert.Equal(t, 0, calls)

	s.DeleteID(GoroutineID())
	v = s.GetOrCreate(func(id uint64) string {
		calls++
		assert.Equal(t, GoroutineID(), id)
		return "new"
	})
	assert.Equal(t, "new", v)
	assert.Equal(t, 1, calls)

	got, ok := s.GetID(GoroutineID())
	require.True(t, ok)
	assert.Equal(t, "new", got)
}

func TestGls_CrossGoroutines(t *testing.T) {
	s := New[int]()

	var wg sync.WaitGroup
	errs := make(chan int, 200)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := GoroutineID()
			s.SetID(id, i)
			if v, ok := s.Get(); !ok || v != i {
				errs <- i
			}
			s.DeleteID(id)
			if _, ok := s.GetID(id); ok {
				errs <- i
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for i := range errs {
		t.Errorf("goroutine %d saw a foreign value", i)
	}
}

func BenchmarkGoroutineID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = GoroutineID()
	}
}
