package mediacache

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    fetchCounter   prometheus.Counter
//	    fetchHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordFetch(size int, duration time.Duration, err error) {
//	    p.fetchCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordGet is called after each cache get. hit reports whether the
	// payload was served from a cache tier rather than the origin.
	RecordGet(hit bool, duration time.Duration)

	// RecordFetch is called after each origin fetch.
	// size is the payload size in bytes, err is nil if successful.
	RecordFetch(size int, duration time.Duration, err error)

	// RecordStore is called after each tiered store attempt.
	RecordStore(size int, result StoreResult)

	// RecordEviction is called after each eviction pass.
	// evicted is the number of entries removed, freed is the bytes released.
	RecordEviction(evicted int, freed int64)

	// RecordPreload is called after each preload job settles.
	RecordPreload(priority Priority, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordGet(bool, time.Duration)                {}
func (NoopMetricsCollector) RecordFetch(int, time.Duration, error)        {}
func (NoopMetricsCollector) RecordStore(int, StoreResult)                 {}
func (NoopMetricsCollector) RecordEviction(int, int64)                    {}
func (NoopMetricsCollector) RecordPreload(Priority, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	GetCount          atomic.Int64
	GetHits           atomic.Int64
	GetTotalNanos     atomic.Int64
	FetchCount        atomic.Int64
	FetchErrors       atomic.Int64
	FetchBytes        atomic.Int64
	FetchTotalNanos   atomic.Int64
	StoreCount        atomic.Int64
	StoreBytes        atomic.Int64
	StoreDegraded     atomic.Int64
	EvictionPasses    atomic.Int64
	EvictedEntries    atomic.Int64
	EvictedBytes      atomic.Int64
	PreloadCount      atomic.Int64
	PreloadErrors     atomic.Int64
	PreloadTotalNanos atomic.Int64
}

// RecordGet implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGet(hit bool, duration time.Duration) {
	b.GetCount.Add(1)
	b.GetTotalNanos.Add(duration.Nanoseconds())
	if hit {
		b.GetHits.Add(1)
	}
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(size int, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchBytes.Add(int64(size))
}

// RecordStore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStore(size int, result StoreResult) {
	b.StoreCount.Add(1)
	b.StoreBytes.Add(int64(size))
	if !result.FastTierOK || !result.DurableTierOK {
		b.StoreDegraded.Add(1)
	}
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction(evicted int, freed int64) {
	b.EvictionPasses.Add(1)
	b.EvictedEntries.Add(int64(evicted))
	b.EvictedBytes.Add(freed)
}

// RecordPreload implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPreload(priority Priority, duration time.Duration, err error) {
	b.PreloadCount.Add(1)
	b.PreloadTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PreloadErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		GetCount:        b.GetCount.Load(),
		GetHits:         b.GetHits.Load(),
		GetAvgNanos:     b.getAvgGetNanos(),
		FetchCount:      b.FetchCount.Load(),
		FetchErrors:     b.FetchErrors.Load(),
		FetchBytes:      b.FetchBytes.Load(),
		FetchAvgNanos:   b.getAvgFetchNanos(),
		StoreCount:      b.StoreCount.Load(),
		StoreBytes:      b.StoreBytes.Load(),
		StoreDegraded:   b.StoreDegraded.Load(),
		EvictionPasses:  b.EvictionPasses.Load(),
		EvictedEntries:  b.EvictedEntries.Load(),
		EvictedBytes:    b.EvictedBytes.Load(),
		PreloadCount:    b.PreloadCount.Load(),
		PreloadErrors:   b.PreloadErrors.Load(),
		PreloadAvgNanos: b.getAvgPreloadNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgGetNanos() int64 {
	count := b.GetCount.Load()
	if count == 0 {
		return 0
	}
	return b.GetTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgFetchNanos() int64 {
	count := b.FetchCount.Load()
	if count == 0 {
		return 0
	}
	return b.FetchTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgPreloadNanos() int64 {
	count := b.PreloadCount.Load()
	if count == 0 {
		return 0
	}
	return b.PreloadTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	GetCount        int64
	GetHits         int64
	GetAvgNanos     int64
	FetchCount      int64
	FetchErrors     int64
	FetchBytes      int64
	FetchAvgNanos   int64
	StoreCount      int64
	StoreBytes      int64
	StoreDegraded   int64
	EvictionPasses  int64
	EvictedEntries  int64
	EvictedBytes    int64
	PreloadCount    int64
	PreloadErrors   int64
	PreloadAvgNanos int64
}
