// Package metrics keeps lightweight per-function counters and latency stats
// for the metrics decorator.
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Registry holds named timers and failure counters. A nil *Registry is valid
// and records nothing.
type Registry struct {
	timers   sync.Map // name -> *LatencyStats
	failures sync.Map // name -> *atomic.Uint64
}

// NewRegistry allocates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Timer returns the latency stats registered under name, creating them on first use.
func (r *Registry) Timer(name string) *LatencyStats {
	if r == nil {
		return nil
	}
	if v, ok := r.timers.Load(name); ok {
		return v.(*LatencyStats)
	}
	v, _ := r.timers.LoadOrStore(name, NewLatencyStats())
	return v.(*LatencyStats)
}

// IncFailure counts a failed invocation of name.
func (r *Registry) IncFailure(name string) {
	if r == nil {
		return
	}
	v, ok := r.failures.Load(name)
	if !ok {
		v, _ = r.failures.LoadOrStore(name, &atomic.Uint64{})
	}
	v.(*atomic.Uint64).Add(1)
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	Timers   map[string]LatencySnapshot
	Failures map[string]uint64
}

// Snapshot returns a copy of the current values.
func (r *Registry) Snapshot() Snapshot {
	snap := Snapshot{
		Timers:   make(map[string]LatencySnapshot),
		Failures: make(map[string]uint64),
	}
	if r == nil {
		return snap
	}
	r.timers.Range(func(k, v any) bool {
		snap.Timers[k.(string)] = v.(*LatencyStats).Snapshot()
		return true
	})
	r.failures.Range(func(k, v any) bool {
		snap.Failures[k.(string)] = v.(*atomic.Uint64).Load()
		return true
	})
	return snap
}

// LatencyStats aggregates duration samples in nanoseconds. Use NewLatencyStats;
// min starts at math.MaxUint64 so a zero-length first sample is kept.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// NewLatencyStats returns empty stats ready to observe.
func NewLatencyStats() *LatencyStats {
	return &LatencyStats{min: math.MaxUint64}
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if l == nil || d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	if l == nil {
		return LatencySnapshot{}
	}
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(atomic.LoadUint64(&l.min)),
		Max:   time.Duration(atomic.LoadUint64(&l.max)),
		Avg:   time.Duration(atomic.LoadUint64(&l.sum) / count),
	}
}
