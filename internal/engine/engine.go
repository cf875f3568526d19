// Package engine orchestrates sparse-vector search across segments:
// scorer selection, parallel per-segment collection, and the final
// merge of ranked results.
package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/seismicd/internal/config"
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/forward"
	"github.com/Aman-CERP/seismicd/internal/logging"
	"github.com/Aman-CERP/seismicd/internal/postings"
	"github.com/Aman-CERP/seismicd/internal/telemetry"
)

// Segment is one immutable unit of the index: a forward reader, the
// clustered postings, and the metadata the scorer selector needs.
type Segment struct {
	ID     string
	Field  string
	MaxDoc uint32

	// Sparse reports whether the segment carries SEISMIC-indexed
	// postings for the field.
	Sparse bool

	// CeilIngest is the quantization ceiling the segment's vectors were
	// ingested with.
	CeilIngest float32

	Forward  forward.Reader
	Postings *postings.Store

	// LiveDocs excludes tombstoned documents; nil means all live.
	LiveDocs *roaring.Bitmap

	// docBase is assigned when the segment joins the engine.
	docBase uint32
}

// FilterRewriter materializes a query filter as a per-segment bitset.
// Rewrites run in parallel across segments.
type FilterRewriter func(ctx context.Context, seg *Segment) (*roaring.Bitmap, error)

// Engine owns the open segments and the process-wide forward cache.
type Engine struct {
	log     *slog.Logger
	cfg     *config.Config
	cache   *forward.Cache
	metrics *telemetry.Metrics

	mu       sync.RWMutex
	segments []*Segment
	nextBase uint32
}

// New creates an engine from the configuration. logger may be nil.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}

	metrics := telemetry.NewMetrics()
	breaker := errors.NewCircuitBreaker("forward-cache")
	cache, err := forward.NewCache(cfg.CacheLimitBytes(),
		forward.WithBreaker(breaker),
		forward.WithCounters(metrics.CacheHit, metrics.CacheMiss),
	)
	if err != nil {
		return nil, err
	}

	logger.Info("engine created",
		"cache_limit_bytes", cfg.CacheLimitBytes(),
		"cache_enabled", cache.Enabled(),
	)

	return &Engine{
		log:     logger,
		cfg:     cfg,
		cache:   cache,
		metrics: metrics,
	}, nil
}

// Metrics exposes the engine counters.
func (e *Engine) Metrics() *telemetry.Metrics {
	return e.metrics
}

// AddSegment registers a segment, assigning its doc base and gating its
// forward reader through the process-wide cache.
func (e *Engine) AddSegment(seg *Segment) error {
	if seg == nil {
		return errors.InvalidArgument("segment must not be nil")
	}
	if seg.Forward == nil {
		seg.Forward = forward.NoopReader{}
	}
	if seg.Postings == nil {
		seg.Postings = postings.NewStore()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	seg.docBase = e.nextBase
	e.nextBase += seg.MaxDoc
	seg.Forward = forward.NewCachedReader(seg.ID, seg.Field, e.cache, seg.Forward)
	e.segments = append(e.segments, seg)

	e.log.Debug("segment added", "segment", seg.ID, "max_doc", seg.MaxDoc, "doc_base", seg.docBase)
	return nil
}

// Segments snapshots the open segments.
func (e *Engine) Segments() []*Segment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]*Segment(nil), e.segments...)
}

// rewriteFilters runs the filter rewrite across segments in parallel,
// aggregating (segment id, bitset) pairs keyed by segment identity.
func (e *Engine) rewriteFilters(ctx context.Context, segs []*Segment, rewrite FilterRewriter) (map[string]*roaring.Bitmap, error) {
	if rewrite == nil {
		return nil, nil
	}

	filters := make(map[string]*roaring.Bitmap, len(segs))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for _, seg := range segs {
		g.Go(func() error {
			bits, err := rewrite(ctx, seg)
			if err != nil {
				return err
			}
			mu.Lock()
			filters[seg.ID] = bits
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// acceptedDocs intersects a rewritten filter with the segment's live
// docs. Returns nil when neither constrains the segment.
func acceptedDocs(seg *Segment, filter *roaring.Bitmap) *roaring.Bitmap {
	switch {
	case filter == nil && seg.LiveDocs == nil:
		return nil
	case filter == nil:
		return seg.LiveDocs
	case seg.LiveDocs == nil:
		return filter
	default:
		return roaring.And(filter, seg.LiveDocs)
	}
}
