package forward

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// approxEntryBytes is the nominal in-memory cost of one cached vector,
// used to translate the byte budget into an LRU entry capacity.
const approxEntryBytes = 1024

// CacheKey identifies one cached vector process-wide.
type CacheKey struct {
	SegmentID string
	Field     string
	DocID     uint32
}

// Cache is the process-wide forward-index cache. It may be disabled
// entirely (zero byte limit), in which case every lookup misses and the
// cached reader behaves exactly like its fallback source.
type Cache struct {
	entries *lru.Cache[CacheKey, *sparsevec.SparseVector]
	limit   int64
	breaker *errors.CircuitBreaker

	hits   func()
	misses func()
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithBreaker installs a circuit breaker guarding cache population.
func WithBreaker(cb *errors.CircuitBreaker) CacheOption {
	return func(c *Cache) { c.breaker = cb }
}

// WithCounters installs hit/miss callbacks for telemetry.
func WithCounters(hit, miss func()) CacheOption {
	return func(c *Cache) {
		c.hits = hit
		c.misses = miss
	}
}

// NewCache creates a cache holding at most limitBytes worth of vectors.
// A non-positive limit disables the cache.
func NewCache(limitBytes int64, opts ...CacheOption) (*Cache, error) {
	c := &Cache{limit: limitBytes}
	for _, opt := range opts {
		opt(c)
	}

	capacity := int(limitBytes / approxEntryBytes)
	if capacity <= 0 {
		// Disabled: entries stays nil and every lookup misses.
		return c, nil
	}

	entries, err := lru.New[CacheKey, *sparsevec.SparseVector](capacity)
	if err != nil {
		return nil, errors.ResourceExhausted("forward cache allocation failed: " + err.Error())
	}
	c.entries = entries
	return c, nil
}

// Enabled reports whether the cache holds entries at all.
func (c *Cache) Enabled() bool {
	return c != nil && c.entries != nil
}

// Get returns the cached vector for the key, if present.
func (c *Cache) Get(key CacheKey) (*sparsevec.SparseVector, bool) {
	if !c.Enabled() {
		return nil, false
	}
	vec, ok := c.entries.Get(key)
	if ok {
		if c.hits != nil {
			c.hits()
		}
	} else if c.misses != nil {
		c.misses()
	}
	return vec, ok
}

// Add populates the cache. Population is skipped when the cache is
// disabled, when the breaker is open, or when the vector alone exceeds
// the byte budget (which records a breaker failure).
func (c *Cache) Add(key CacheKey, vec *sparsevec.SparseVector) {
	if !c.Enabled() {
		return
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return
	}
	if int64(vectorBytes(vec)) > c.limit {
		if c.breaker != nil {
			c.breaker.Failure()
		}
		return
	}
	c.entries.Add(key, vec)
	if c.breaker != nil {
		c.breaker.Success()
	}
}

// Purge drops every cached entry.
func (c *Cache) Purge() {
	if c.Enabled() {
		c.entries.Purge()
	}
}

func vectorBytes(vec *sparsevec.SparseVector) int {
	// Token and weight plus slice bookkeeping, rounded up.
	return 64 + 4*vec.Size()
}

// CachedReader composes the process-wide cache with a pass-through
// source: first try the cache, else populate from the fallback. With the
// cache disabled, results are identical to reading the source directly.
type CachedReader struct {
	segmentID string
	field     string
	cache     *Cache
	source    Reader
}

// NewCachedReader wraps source with the cache for one (segment, field).
func NewCachedReader(segmentID, field string, cache *Cache, source Reader) *CachedReader {
	return &CachedReader{
		segmentID: segmentID,
		field:     field,
		cache:     cache,
		source:    source,
	}
}

// Read implements Reader.
func (r *CachedReader) Read(docID uint32) (*sparsevec.SparseVector, error) {
	key := CacheKey{SegmentID: r.segmentID, Field: r.field, DocID: docID}
	if vec, ok := r.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := r.source.Read(docID)
	if err != nil {
		return nil, err
	}
	if vec != nil {
		r.cache.Add(key, vec)
	}
	return vec, nil
}
