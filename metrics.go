package imgdedup

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// The metrics/prometheus package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordAdd is called after each add. codes is the number of
	// fingerprints computed for the upload.
	RecordAdd(kind string, codes int, duration time.Duration, err error)

	// RecordCheck is called after each duplicate check.
	RecordCheck(kind string, duplicated bool, duration time.Duration, err error)

	// RecordLoad is called after each read-only collection load.
	RecordLoad(duration time.Duration, err error)

	// RecordSave is called after each persisted mutation, covering the
	// locked load, insert and save.
	RecordSave(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordAdd(string, int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordCheck(string, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordLoad(time.Duration, error)                {}
func (NoopMetricsCollector) RecordSave(time.Duration, error)                {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests.
type BasicMetricsCollector struct {
	AddCount        atomic.Int64
	AddErrors       atomic.Int64
	AddCodes        atomic.Int64
	AddTotalNanos   atomic.Int64
	CheckCount      atomic.Int64
	CheckErrors     atomic.Int64
	CheckDuplicates atomic.Int64
	CheckTotalNanos atomic.Int64
	LoadCount       atomic.Int64
	LoadErrors      atomic.Int64
	SaveCount       atomic.Int64
	SaveErrors      atomic.Int64
}

// RecordAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordAdd(_ string, codes int, duration time.Duration, err error) {
	b.AddCount.Add(1)
	b.AddTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	b.AddCodes.Add(int64(codes))
}

// RecordCheck implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCheck(_ string, duplicated bool, duration time.Duration, err error) {
	b.CheckCount.Add(1)
	b.CheckTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CheckErrors.Add(1)
		return
	}
	if duplicated {
		b.CheckDuplicates.Add(1)
	}
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(_ time.Duration, err error) {
	b.LoadCount.Add(1)
	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSave(_ time.Duration, err error) {
	b.SaveCount.Add(1)
	if err != nil {
		b.SaveErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		AddCount:        b.AddCount.Load(),
		AddErrors:       b.AddErrors.Load(),
		AddCodes:        b.AddCodes.Load(),
		AddAvgNanos:     avg(b.AddTotalNanos.Load(), b.AddCount.Load()),
		CheckCount:      b.CheckCount.Load(),
		CheckErrors:     b.CheckErrors.Load(),
		CheckDuplicates: b.CheckDuplicates.Load(),
		CheckAvgNanos:   avg(b.CheckTotalNanos.Load(), b.CheckCount.Load()),
		LoadCount:       b.LoadCount.Load(),
		LoadErrors:      b.LoadErrors.Load(),
		SaveCount:       b.SaveCount.Load(),
		SaveErrors:      b.SaveErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	AddCount        int64
	AddErrors       int64
	AddCodes        int64
	AddAvgNanos     int64
	CheckCount      int64
	CheckErrors     int64
	CheckDuplicates int64
	CheckAvgNanos   int64
	LoadCount       int64
	LoadErrors      int64
	SaveCount       int64
	SaveErrors      int64
}
