// Package telemetry provides query metrics for the sparse search
// engine. All data stays in-process - no external reporting.
package telemetry

import (
	"sync/atomic"
	"time"
)

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// Metrics holds the engine's atomic counters. Safe for concurrent use
// from every segment worker.
type Metrics struct {
	queries           atomic.Int64
	hits              atomic.Int64
	earlyTerminations atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64

	latency [5]atomic.Int64
}

// NewMetrics creates an empty counter set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordQuery records one completed query with its latency and result
// count.
func (m *Metrics) RecordQuery(latency time.Duration, hits int) {
	m.queries.Add(1)
	m.hits.Add(int64(hits))
	m.latency[bucketIndex(LatencyToBucket(latency))].Add(1)
}

// RecordEarlyTermination counts a segment collection that terminated
// early.
func (m *Metrics) RecordEarlyTermination() {
	m.earlyTerminations.Add(1)
}

// CacheHit counts a forward-cache hit.
func (m *Metrics) CacheHit() {
	m.cacheHits.Add(1)
}

// CacheMiss counts a forward-cache miss.
func (m *Metrics) CacheMiss() {
	m.cacheMisses.Add(1)
}

// Snapshot is a point-in-time view of the counters.
type Snapshot struct {
	Queries           int64
	Hits              int64
	EarlyTerminations int64
	CacheHits         int64
	CacheMisses       int64
	Latency           map[LatencyBucket]int64
}

// Snapshot reads every counter.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Queries:           m.queries.Load(),
		Hits:              m.hits.Load(),
		EarlyTerminations: m.earlyTerminations.Load(),
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
		Latency: map[LatencyBucket]int64{
			BucketP10:   m.latency[0].Load(),
			BucketP50:   m.latency[1].Load(),
			BucketP100:  m.latency[2].Load(),
			BucketP500:  m.latency[3].Load(),
			BucketP1000: m.latency[4].Load(),
		},
	}
}

func bucketIndex(b LatencyBucket) int {
	switch b {
	case BucketP10:
		return 0
	case BucketP50:
		return 1
	case BucketP100:
		return 2
	case BucketP500:
		return 3
	default:
		return 4
	}
}
