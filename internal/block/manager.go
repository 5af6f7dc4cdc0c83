package block

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dustin/go-humanize"

	"github.com/hupe1980/seqalloc/internal/conv"
	"github.com/hupe1980/seqalloc/internal/mmap"
	"github.com/hupe1980/seqalloc/internal/resource"
)

var (
	// ErrMapFailed is returned when the operating system refuses a new block.
	ErrMapFailed = errors.New("block: map failed")
	// ErrSizeOverflow is returned when the next block size does not fit in the address space.
	ErrSizeOverflow = errors.New("block: size overflow")
	// ErrUnmapFailed is returned when a block could not be returned to the operating system.
	ErrUnmapFailed = errors.New("block: unmap failed")
)

const (
	// DefaultInitialSize is the size of the first block of a chain (2 MiB, one huge page).
	DefaultInitialSize = 2 << 20
	// DefaultMultiplier is the growth factor applied to each following block.
	DefaultMultiplier = 2
)

// Stats tracks block mapping metrics.
//
// Note on semantics:
//   - BlocksMapped / BytesMapped: historical totals of successful acquisitions
//   - BlocksUnmapped / BytesUnmapped: historical totals of successful releases
//   - MapFailures / UnmapFailures: historical failure counts
//   - LiveBlocks: blocks mapped and not yet unmapped
type Stats struct {
	BlocksMapped   uint64
	BytesMapped    uint64
	BlocksUnmapped uint64
	BytesUnmapped  uint64
	MapFailures    uint64
	UnmapFailures  uint64
	LiveBlocks     uint64
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"Blocks{live: %d, mapped: %d (%s), unmapped: %d (%s), map failures: %d, unmap failures: %d}",
		s.LiveBlocks,
		s.BlocksMapped, humanize.IBytes(s.BytesMapped),
		s.BlocksUnmapped, humanize.IBytes(s.BytesUnmapped),
		s.MapFailures, s.UnmapFailures,
	)
}

type atomicStats struct {
	BlocksMapped   atomic.Uint64
	BytesMapped    atomic.Uint64
	BlocksUnmapped atomic.Uint64
	BytesUnmapped  atomic.Uint64
	MapFailures    atomic.Uint64
	UnmapFailures  atomic.Uint64
}

// Observer is notified after every acquisition attempt.
type Observer func(size uintptr, d time.Duration, err error)

// Manager acquires and releases blocks.
type Manager struct {
	initialSize uintptr
	multiplier  uintptr
	controller  *resource.Controller
	observer    Observer

	nextID atomic.Uint32
	mu     sync.Mutex
	live   *roaring.Bitmap // ids of mapped, not yet unmapped blocks (protected by mu)
	stats  atomicStats
}

// Option is a configuration option for Manager.
type Option func(*Manager)

// WithGrowth sets the first block size and the growth multiplier.
func WithGrowth(initialSize, multiplier uintptr) Option {
	return func(m *Manager) {
		m.initialSize = initialSize
		m.multiplier = multiplier
	}
}

// WithController accounts every mapped byte against c.
func WithController(c *resource.Controller) Option {
	return func(m *Manager) {
		m.controller = c
	}
}

// WithObserver installs an acquisition observer.
func WithObserver(o Observer) Option {
	return func(m *Manager) {
		m.observer = o
	}
}

// NewManager creates a block manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		initialSize: DefaultInitialSize,
		multiplier:  DefaultMultiplier,
		live:        roaring.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// InitialSize returns the size of the first block of a chain.
func (m *Manager) InitialSize() uintptr { return m.initialSize }

// Multiplier returns the growth multiplier.
func (m *Manager) Multiplier() uintptr { return m.multiplier }

// NextSize returns the size of the block that follows prev in a chain.
// A nil prev yields the initial size.
func (m *Manager) NextSize(prev *Block) (uintptr, error) {
	if prev == nil {
		return m.initialSize, nil
	}
	size, ok := conv.Mul(prev.size, m.multiplier)
	if !ok {
		return 0, ErrSizeOverflow
	}
	return size, nil
}

// Acquire maps the block that follows prev and links it to prev.
// Failure leaves prev untouched; it is never retried.
func (m *Manager) Acquire(prev *Block) (*Block, error) {
	start := time.Now()
	size, err := m.NextSize(prev)
	if err == nil {
		var b *Block
		if b, err = m.mapBlock(prev, size); err == nil {
			m.notify(size, time.Since(start), nil)
			return b, nil
		}
	}
	m.stats.MapFailures.Add(1)
	m.notify(size, time.Since(start), err)
	return nil, err
}

func (m *Manager) mapBlock(prev *Block, size uintptr) (*Block, error) {
	isize, ok := conv.UintptrToInt(size)
	if !ok {
		return nil, ErrSizeOverflow
	}
	size64 := int64(isize)

	if err := m.controller.AcquireMemory(size64); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapFailed, err)
	}

	mapping, err := mmap.MapAnon(isize)
	if err != nil {
		m.controller.ReleaseMemory(size64)
		return nil, fmt.Errorf("%w: %w", ErrMapFailed, err)
	}
	// Bump allocation walks a block front to back.
	_ = mapping.Advise(mmap.AccessSequential)

	b := &Block{
		prev:    prev,
		mapping: mapping,
		base:    mapping.Pointer(),
		size:    size,
		id:      m.nextID.Add(1),
	}

	m.mu.Lock()
	m.live.Add(b.id)
	m.mu.Unlock()

	m.stats.BlocksMapped.Add(1)
	m.stats.BytesMapped.Add(uint64(size))
	return b, nil
}

func (m *Manager) notify(size uintptr, d time.Duration, err error) {
	if m.observer != nil {
		m.observer(size, d, err)
	}
}

// Release unmaps b. The block must not be used afterwards.
// A block whose unmap fails stays in the live set.
func (m *Manager) Release(b *Block) error {
	if err := b.mapping.Close(); err != nil {
		m.stats.UnmapFailures.Add(1)
		return fmt.Errorf("%w: block %d (%d bytes): %w", ErrUnmapFailed, b.id, b.size, err)
	}
	b.base = nil

	m.mu.Lock()
	m.live.Remove(b.id)
	m.mu.Unlock()

	m.controller.ReleaseMemory(int64(b.size)) //nolint:gosec // size was checked when mapped
	m.stats.BlocksUnmapped.Add(1)
	m.stats.BytesUnmapped.Add(uint64(b.size))
	return nil
}

// LiveBlocks returns the ids of all blocks mapped and not yet unmapped.
func (m *Manager) LiveBlocks() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live.ToArray()
}

// Stats returns a snapshot of the manager counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	live := m.live.GetCardinality()
	m.mu.Unlock()

	return Stats{
		BlocksMapped:   m.stats.BlocksMapped.Load(),
		BytesMapped:    m.stats.BytesMapped.Load(),
		BlocksUnmapped: m.stats.BlocksUnmapped.Load(),
		BytesUnmapped:  m.stats.BytesUnmapped.Load(),
		MapFailures:    m.stats.MapFailures.Load(),
		UnmapFailures:  m.stats.UnmapFailures.Load(),
		LiveBlocks:     live,
	}
}
