package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyToBucket(t *testing.T) {
	assert.Equal(t, BucketP10, LatencyToBucket(5*time.Millisecond))
	assert.Equal(t, BucketP50, LatencyToBucket(10*time.Millisecond))
	assert.Equal(t, BucketP100, LatencyToBucket(99*time.Millisecond))
	assert.Equal(t, BucketP500, LatencyToBucket(100*time.Millisecond))
	assert.Equal(t, BucketP1000, LatencyToBucket(2*time.Second))
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordQuery(5*time.Millisecond, 3)
	m.RecordQuery(700*time.Millisecond, 0)
	m.RecordEarlyTermination()
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Queries)
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(1), s.EarlyTerminations)
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	assert.Equal(t, int64(1), s.Latency[BucketP10])
	assert.Equal(t, int64(1), s.Latency[BucketP1000])
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m := NewMetrics()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				m.RecordQuery(time.Millisecond, 1)
				m.CacheHit()
			}
		}()
	}
	wg.Wait()

	s := m.Snapshot()
	assert.Equal(t, int64(4000), s.Queries)
	assert.Equal(t, int64(4000), s.CacheHits)
}
