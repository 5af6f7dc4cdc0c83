package seqalloc

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/time/rate"

	"github.com/hupe1980/seqalloc/internal/block"
	"github.com/hupe1980/seqalloc/internal/gls"
	"github.com/hupe1980/seqalloc/internal/orphan"
	"github.com/hupe1980/seqalloc/internal/resource"
)

// Heap is the process-scoped state of the allocator: the block manager, the
// orphan registry of donated chains and the spawn trampoline.
//
// A Heap hands out memory through per-goroutine Thread contexts. It never
// reclaims individual allocations; every block it ever mapped is returned to
// the operating system by Close.
type Heap struct {
	opts     options
	logger   *Logger
	metrics  MetricsCollector
	rc       *resource.Controller
	blocks   *block.Manager
	orphans  orphan.Registry
	slots    *spawnRing
	locals   *gls.Gls[*Thread]
	pageSize uintptr

	mu      sync.Mutex
	threads map[*Thread]struct{} // contexts not yet donated (protected by mu)
	closed  atomic.Bool

	// failures are throttled so a failing drain cannot flood the log
	failLog rate.Sometimes

	attached      atomic.Uint64
	donated       atomic.Uint64
	spawned       atomic.Uint64
	spawnRejected atomic.Uint64
}

// New creates a Heap.
func New(optFns ...Option) (*Heap, error) {
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}

	h := &Heap{
		opts:     o,
		logger:   o.logger,
		metrics:  o.metricsCollector,
		rc:       resource.NewController(resource.Config{MemoryLimitBytes: o.memoryLimit}),
		slots:    newSpawnRing(o.spawnSlots),
		locals:   gls.New[*Thread](),
		pageSize: uintptr(os.Getpagesize()), //nolint:gosec // page size is positive
		threads:  make(map[*Thread]struct{}),
		failLog:  rate.Sometimes{First: 10, Interval: time.Second},
	}
	h.blocks = block.NewManager(
		block.WithGrowth(o.initialBlockSize, o.growthMultiplier),
		block.WithController(h.rc),
		block.WithObserver(h.observeAcquire),
	)

	return h, nil
}

func (h *Heap) observeAcquire(size uintptr, d time.Duration, err error) {
	h.metrics.RecordBlockAcquire(size, d, err)
	if err != nil {
		h.failLog.Do(func() { h.logger.LogBlockAcquire(size, err) })
		return
	}
	if debugLogging {
		h.logger.LogBlockAcquire(size, nil)
	}
}

// PageSize returns the page size used by Valloc and Pvalloc.
func (h *Heap) PageSize() uintptr {
	return h.pageSize
}

// Attach creates an allocation context owned by the calling goroutine.
//
// The context is not bound to goroutine-local storage; the caller keeps the
// handle and must call Detach when done (or leave it to Close).
func (h *Heap) Attach() *Thread {
	return h.newThread(0)
}

// Local returns the implicit allocation context of the calling goroutine,
// creating it on first use.
func (h *Heap) Local() *Thread {
	return h.locals.GetOrCreate(h.newThread)
}

// bind creates a context for the calling goroutine and makes it its implicit one.
func (h *Heap) bind() *Thread {
	id := gls.GoroutineID()
	t := h.newThread(id)
	h.locals.SetID(id, t)
	return t
}

func (h *Heap) newThread(goroutine uint64) *Thread {
	t := &Thread{heap: h, goroutine: goroutine, released: make(chan struct{})}

	h.mu.Lock()
	h.threads[t] = struct{}{}
	h.mu.Unlock()

	h.attached.Add(1)
	return t
}

// donate splices the chain of t onto the orphan registry and forgets t.
func (h *Heap) donate(t *Thread) {
	blocks := 0
	if t.current != nil {
		blocks = t.current.ChainLen()
		h.orphans.Splice(t.current)
		t.current = nil
	}

	h.mu.Lock()
	delete(h.threads, t)
	h.mu.Unlock()

	if t.goroutine != 0 {
		if cur, ok := h.locals.GetID(t.goroutine); ok && cur == t {
			h.locals.DeleteID(t.goroutine)
		}
	}

	h.donated.Add(1)
	h.metrics.RecordDonation(blocks)
	if debugLogging {
		h.logger.LogDonation(t.goroutine, blocks)
	}
}

// Close tears the heap down: it flushes the calling goroutine's own context,
// donates every context that is still attached, then unmaps every block ever
// acquired. It runs once; later calls return ErrClosed.
//
// Contexts that are detaching concurrently, such as spawned goroutines that
// are just finishing, are waited for. No goroutine may use the heap or memory
// obtained from it once Close starts. Unmap failures are logged and counted, never returned.
func (h *Heap) Close() error {
	if h.closed.Swap(true) {
		return ErrClosed
	}

	if t, ok := h.locals.Get(); ok {
		t.Detach()
	}

	h.mu.Lock()
	remaining := make([]*Thread, 0, len(h.threads))
	for t := range h.threads {
		remaining = append(remaining, t)
	}
	h.mu.Unlock()

	// A context may be detaching concurrently, typically a spawned goroutine
	// finishing; its chain must be on the registry before the drain.
	for _, t := range remaining {
		t.Detach()
		<-t.released
	}

	h.drain()
	return nil
}

func (h *Heap) drain() {
	var (
		blocks, failures int
		bytes            uint64
	)
	h.orphans.Drain(func(b *block.Block) {
		size := b.Size()
		if err := h.blocks.Release(b); err != nil {
			failures++
			h.failLog.Do(func() { h.logger.LogUnmapFailure(err) })
			return
		}
		blocks++
		bytes += uint64(size)
	})

	h.metrics.RecordDrain(blocks, bytes, failures)
	h.logger.LogDrain(blocks, bytes, failures)
}

// Closed reports whether Close has been called.
func (h *Heap) Closed() bool {
	return h.closed.Load()
}

// LiveBlocks returns the ids of blocks mapped and not yet unmapped.
// After Close it is empty unless an unmap failed.
func (h *Heap) LiveBlocks() []uint32 {
	return h.blocks.LiveBlocks()
}

// Stats holds heap-wide counters.
type Stats struct {
	BlocksMapped   uint64 // total blocks acquired
	BytesMapped    uint64 // total bytes acquired
	BlocksUnmapped uint64 // blocks returned to the operating system
	BytesUnmapped  uint64 // bytes returned to the operating system
	LiveBlocks     uint64 // blocks mapped and not yet unmapped
	MapFailures    uint64
	UnmapFailures  uint64
	MemoryInUse    int64  // bytes currently mapped
	MemoryPeak     int64  // highest MemoryInUse observed
	Attached       uint64 // contexts created
	Donated        uint64 // contexts that donated their chain
	OrphanSplices  uint64 // non-empty chains spliced onto the registry
	OrphanRetries  uint64 // lost compare-and-swap rounds while splicing
	Spawned        uint64 // goroutines started through the trampoline
	SpawnRejected  uint64 // spawns refused for lack of start slots
}

// Stats returns a snapshot of the heap counters.
func (h *Heap) Stats() Stats {
	bs := h.blocks.Stats()
	return Stats{
		BlocksMapped:   bs.BlocksMapped,
		BytesMapped:    bs.BytesMapped,
		BlocksUnmapped: bs.BlocksUnmapped,
		BytesUnmapped:  bs.BytesUnmapped,
		LiveBlocks:     bs.LiveBlocks,
		MapFailures:    bs.MapFailures,
		UnmapFailures:  bs.UnmapFailures,
		MemoryInUse:    h.rc.MemoryUsage(),
		MemoryPeak:     h.rc.MemoryPeak(),
		Attached:       h.attached.Load(),
		Donated:        h.donated.Load(),
		OrphanSplices:  h.orphans.Splices(),
		OrphanRetries:  h.orphans.Retries(),
		Spawned:        h.spawned.Load(),
		SpawnRejected:  h.spawnRejected.Load(),
	}
}

func (s Stats) String() string {
	return fmt.Sprintf(
		"Heap{live blocks: %d, in use: %s, peak: %s, mapped: %d (%s), unmapped: %d (%s), contexts: %d/%d donated, spawned: %d}",
		s.LiveBlocks,
		humanize.IBytes(uint64(max(s.MemoryInUse, 0))),
		humanize.IBytes(uint64(max(s.MemoryPeak, 0))),
		s.BlocksMapped, humanize.IBytes(s.BytesMapped),
		s.BlocksUnmapped, humanize.IBytes(s.BytesUnmapped),
		s.Donated, s.Attached,
		s.Spawned,
	)
}
