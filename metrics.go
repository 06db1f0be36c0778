package parcelcorr

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
//	    extractCounter prometheus.Counter
//	    phaseHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordExtract(files int, duration time.Duration, err error) {
//	    p.extractCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordExtract is called after each extraction pass.
	// files is the number of images read, duration is the total time
	// taken, err is nil if successful.
	RecordExtract(files int, duration time.Duration, err error)

	// RecordWithin is called after each within-subject phase.
	RecordWithin(duration time.Duration, err error)

	// RecordBetween is called after each between-subject phase.
	RecordBetween(duration time.Duration, err error)

	// RecordAcross is called after each across-construct phase.
	RecordAcross(duration time.Duration, err error)

	// RecordKeyFailure is called once for every (contrast, parcel)
	// key whose similarity task failed. It runs on worker goroutines
	// and must be safe for concurrent use.
	RecordKeyFailure(phase string)

	// RecordSnapshot is called after each snapshot save.
	RecordSnapshot(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordExtract(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordWithin(time.Duration, error)       {}
func (NoopMetricsCollector) RecordBetween(time.Duration, error)      {}
func (NoopMetricsCollector) RecordAcross(time.Duration, error)       {}
func (NoopMetricsCollector) RecordKeyFailure(string)                 {}
func (NoopMetricsCollector) RecordSnapshot(time.Duration, error)     {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ExtractCount      atomic.Int64
	ExtractErrors     atomic.Int64
	ExtractFiles      atomic.Int64
	ExtractTotalNanos atomic.Int64
	WithinCount       atomic.Int64
	WithinErrors      atomic.Int64
	WithinTotalNanos  atomic.Int64
	BetweenCount      atomic.Int64
	BetweenErrors     atomic.Int64
	BetweenTotalNanos atomic.Int64
	AcrossCount       atomic.Int64
	AcrossErrors      atomic.Int64
	AcrossTotalNanos  atomic.Int64
	KeyFailures       atomic.Int64
	SnapshotCount     atomic.Int64
	SnapshotErrors    atomic.Int64
}

// RecordExtract implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExtract(files int, duration time.Duration, err error) {
	b.ExtractCount.Add(1)
	b.ExtractFiles.Add(int64(files))
	b.ExtractTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ExtractErrors.Add(1)
	}
}

// RecordWithin implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWithin(duration time.Duration, err error) {
	b.WithinCount.Add(1)
	b.WithinTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.WithinErrors.Add(1)
	}
}

// RecordBetween implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBetween(duration time.Duration, err error) {
	b.BetweenCount.Add(1)
	b.BetweenTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BetweenErrors.Add(1)
	}
}

// RecordAcross implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAcross(duration time.Duration, err error) {
	b.AcrossCount.Add(1)
	b.AcrossTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AcrossErrors.Add(1)
	}
}

// RecordKeyFailure implements MetricsCollector.
func (b *BasicMetricsCollector) RecordKeyFailure(string) {
	b.KeyFailures.Add(1)
}

// RecordSnapshot implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshot(duration time.Duration, err error) {
	b.SnapshotCount.Add(1)
	if err != nil {
		b.SnapshotErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ExtractCount:    b.ExtractCount.Load(),
		ExtractErrors:   b.ExtractErrors.Load(),
		ExtractFiles:    b.ExtractFiles.Load(),
		ExtractAvgNanos: avgNanos(&b.ExtractTotalNanos, &b.ExtractCount),
		WithinCount:     b.WithinCount.Load(),
		WithinErrors:    b.WithinErrors.Load(),
		WithinAvgNanos:  avgNanos(&b.WithinTotalNanos, &b.WithinCount),
		BetweenCount:    b.BetweenCount.Load(),
		BetweenErrors:   b.BetweenErrors.Load(),
		BetweenAvgNanos: avgNanos(&b.BetweenTotalNanos, &b.BetweenCount),
		AcrossCount:     b.AcrossCount.Load(),
		AcrossErrors:    b.AcrossErrors.Load(),
		AcrossAvgNanos:  avgNanos(&b.AcrossTotalNanos, &b.AcrossCount),
		KeyFailures:     b.KeyFailures.Load(),
		SnapshotCount:   b.SnapshotCount.Load(),
		SnapshotErrors:  b.SnapshotErrors.Load(),
	}
}

func avgNanos(total, count *atomic.Int64) int64 {
	n := count.Load()
	if n == 0 {
		return 0
	}
	return total.Load() / n
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ExtractCount    int64
	ExtractErrors   int64
	ExtractFiles    int64
	ExtractAvgNanos int64
	WithinCount     int64
	WithinErrors    int64
	WithinAvgNanos  int64
	BetweenCount    int64
	BetweenErrors   int64
	BetweenAvgNanos int64
	AcrossCount     int64
	AcrossErrors    int64
	AcrossAvgNanos  int64
	KeyFailures     int64
	SnapshotCount   int64
	SnapshotErrors  int64
}
