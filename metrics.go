package seqalloc

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting allocator metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// None of the methods is called on the bump allocation path; they fire on
// block acquisition, donation, teardown and spawn only.
type MetricsCollector interface {
	// RecordBlockAcquire is called after each block acquisition attempt.
	// size is the block size, err is nil if successful.
	RecordBlockAcquire(size uintptr, duration time.Duration, err error)

	// RecordDonation is called when a context donates its chain.
	RecordDonation(blocks int)

	// RecordDrain is called once when the heap releases every donated block.
	// failures counts blocks whose unmap failed.
	RecordDrain(blocks int, bytes uint64, failures int)

	// RecordSpawn is called for each spawn through the heap.
	RecordSpawn(err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordBlockAcquire(uintptr, time.Duration, error) {}
func (NoopMetricsCollector) RecordDonation(int)                               {}
func (NoopMetricsCollector) RecordDrain(int, uint64, int)                     {}
func (NoopMetricsCollector) RecordSpawn(error)                                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	AcquireCount      atomic.Int64
	AcquireErrors     atomic.Int64
	AcquireBytes      atomic.Int64
	AcquireTotalNanos atomic.Int64
	DonationCount     atomic.Int64
	DonatedBlocks     atomic.Int64
	DrainedBlocks     atomic.Int64
	DrainedBytes      atomic.Int64
	DrainFailures     atomic.Int64
	SpawnCount        atomic.Int64
	SpawnErrors       atomic.Int64
}

// RecordBlockAcquire implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBlockAcquire(size uintptr, duration time.Duration, err error) {
	b.AcquireCount.Add(1)
	b.AcquireTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AcquireErrors.Add(1)
		return
	}
	b.AcquireBytes.Add(int64(size)) //nolint:gosec // block sizes are checked against MaxInt when mapped
}

// RecordDonation implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDonation(blocks int) {
	b.DonationCount.Add(1)
	b.DonatedBlocks.Add(int64(blocks))
}

// RecordDrain implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDrain(blocks int, bytes uint64, failures int) {
	b.DrainedBlocks.Add(int64(blocks))
	b.DrainedBytes.Add(int64(bytes)) //nolint:gosec // bounded by mapped bytes
	b.DrainFailures.Add(int64(failures))
}

// RecordSpawn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSpawn(err error) {
	b.SpawnCount.Add(1)
	if err != nil {
		b.SpawnErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AcquireCount:    b.AcquireCount.Load(),
		AcquireErrors:   b.AcquireErrors.Load(),
		AcquireBytes:    b.AcquireBytes.Load(),
		AcquireAvgNanos: b.getAvgAcquireNanos(),
		DonationCount:   b.DonationCount.Load(),
		DonatedBlocks:   b.DonatedBlocks.Load(),
		DrainedBlocks:   b.DrainedBlocks.Load(),
		DrainedBytes:    b.DrainedBytes.Load(),
		DrainFailures:   b.DrainFailures.Load(),
		SpawnCount:      b.SpawnCount.Load(),
		SpawnErrors:     b.SpawnErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgAcquireNanos() int64 {
	count := b.AcquireCount.Load()
	if count == 0 {
		return 0
	}
	return b.AcquireTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of metrics from BasicMetricsCollector.
type BasicMetricsStats struct {
	AcquireCount    int64
	AcquireErrors   int64
	AcquireBytes    int64
	AcquireAvgNanos int64
	DonationCount   int64
	DonatedBlocks   int64
	DrainedBlocks   int64
	DrainedBytes    int64
	DrainFailures   int64
	SpawnCount      int64
	SpawnErrors     int64
}
