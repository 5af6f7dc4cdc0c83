package seqalloc

import (
	"log/slog"
	"unsafe"

	"github.com/hupe1980/seqalloc/internal/block"
)

const (
	// DefaultInitialBlockSize is the size of the first block of every chain (2 MiB).
	DefaultInitialBlockSize = block.DefaultInitialSize
	// DefaultGrowthMultiplier scales each following block of a chain.
	DefaultGrowthMultiplier = block.DefaultMultiplier
	// DefaultSpawnSlots is the capacity of the spawn start-record ring.
	DefaultSpawnSlots = 10000
	// DefaultAlignment is the alignment of Malloc, Calloc and Realloc results (native pointer width).
	DefaultAlignment = unsafe.Sizeof(uintptr(0))
)

type options struct {
	initialBlockSize uintptr
	growthMultiplier uintptr
	spawnSlots       int
	memoryLimit      int64
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures a Heap.
type Option func(*options)

// WithInitialBlockSize sets the size of the first block of every chain.
// Blocks are mapped in whole pages, so a page multiple wastes nothing.
func WithInitialBlockSize(size uintptr) Option {
	return func(o *options) {
		o.initialBlockSize = size
	}
}

// WithGrowthMultiplier sets the factor each following block grows by. It must be at least 2.
func WithGrowthMultiplier(m uintptr) Option {
	return func(o *options) {
		o.growthMultiplier = m
	}
}

// WithSpawnSlots sets how many spawned goroutines may be pending start at once.
func WithSpawnSlots(n int) Option {
	return func(o *options) {
		o.spawnSlots = n
	}
}

// WithMemoryLimit caps the total mapped bytes. Once reached, block acquisition
// fails and allocations report out of memory. 0 means unbounded.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		o.memoryLimit = bytes
	}
}

// WithMetricsCollector configures metrics collection.
//
// Example:
//
//	metrics := &seqalloc.BasicMetricsCollector{}
//	h, _ := seqalloc.New(seqalloc.WithMetricsCollector(metrics))
//	// ... use h ...
//	stats := metrics.GetStats()
//	fmt.Printf("Blocks: %d, Avg latency: %dns\n", stats.AcquireCount, stats.AcquireAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := seqalloc.NewJSONLogger(slog.LevelInfo)
//	h, _ := seqalloc.New(seqalloc.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		initialBlockSize: DefaultInitialBlockSize,
		growthMultiplier: DefaultGrowthMultiplier,
		spawnSlots:       DefaultSpawnSlots,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}

func (o options) validate() error {
	if o.initialBlockSize <= 2*block.HeaderSize {
		return &ErrInvalidConfig{Field: "initial block size", Value: o.initialBlockSize}
	}
	if o.growthMultiplier < 2 {
		return &ErrInvalidConfig{Field: "growth multiplier", Value: o.growthMultiplier}
	}
	if o.spawnSlots <= 0 {
		return &ErrInvalidConfig{Field: "spawn slots", Value: o.spawnSlots}
	}
	if o.memoryLimit < 0 {
		return &ErrInvalidConfig{Field: "memory limit", Value: o.memoryLimit}
	}
	return nil
}
