// Package seismic is the embeddable surface of the sparse-vector
// search core. A host engine builds segments from wire-format sparse
// fields, registers them, and runs neural_sparse queries against them.
package seismic

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Aman-CERP/seismicd/internal/config"
	"github.com/Aman-CERP/seismicd/internal/engine"
	"github.com/Aman-CERP/seismicd/internal/merger"
	"github.com/Aman-CERP/seismicd/internal/query"
	"github.com/Aman-CERP/seismicd/internal/request"
	"github.com/Aman-CERP/seismicd/internal/telemetry"
)

// ErrNilSegment is returned when registering a nil segment.
var ErrNilSegment = errors.New("segment is required")

// Searcher executes sparse queries over registered segments.
//
// Implementations of the host side must treat a Searcher as
// thread-safe: queries may run concurrently with segment registration.
type Searcher struct {
	engine *engine.Engine
}

// Options configures a Searcher.
type Options struct {
	// Config overrides the default configuration.
	Config *config.Config

	// Logger receives structured engine logs. Nil discards them.
	Logger *slog.Logger
}

// New creates a Searcher.
func New(opts Options) (*Searcher, error) {
	eng, err := engine.New(opts.Config, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &Searcher{engine: eng}, nil
}

// AddSegment registers a built segment.
func (s *Searcher) AddSegment(seg *engine.Segment) error {
	if seg == nil {
		return ErrNilSegment
	}
	return s.engine.AddSegment(seg)
}

// Search parses a neural_sparse clause and answers the top-k query.
//
// Returns an empty result (not nil) when nothing matches.
func (s *Searcher) Search(ctx context.Context, clause []byte, opts ...SearchOption) (*merger.TopDocsAndMaxScore, error) {
	parsed, err := query.ParseNeuralSparse(clause)
	if err != nil {
		return nil, err
	}

	req := &engine.Request{Query: parsed}
	for _, opt := range opts {
		opt(req)
	}
	return s.engine.Search(ctx, req)
}

// SearchOption adjusts one search execution.
type SearchOption func(*engine.Request)

// WithBoost scales the final scores.
func WithBoost(boost float32) SearchOption {
	return func(r *engine.Request) { r.Boost = boost }
}

// WithSearchCeiling sets the search-time quantization ceiling.
func WithSearchCeiling(ceiling float32) SearchOption {
	return func(r *engine.Request) { r.CeilSearch = ceiling }
}

// WithFilter installs a per-segment filter rewriter.
func WithFilter(rewrite engine.FilterRewriter) SearchOption {
	return func(r *engine.Request) { r.Filter = rewrite }
}

// WithTotalHitsThreshold sets the threshold beyond which total hit
// counts become lower bounds.
func WithTotalHitsThreshold(threshold int) SearchOption {
	return func(r *engine.Request) { r.Threshold = threshold }
}

// HybridSearch parses several neural_sparse clauses as the sub-queries
// of one hybrid query and returns the per-sub-query ranked lists.
func (s *Searcher) HybridSearch(ctx context.Context, clauses [][]byte, numHits int) (*merger.CompoundTopDocs, error) {
	queries := make([]*query.NeuralSparse, len(clauses))
	for i, clause := range clauses {
		parsed, err := query.ParseNeuralSparse(clause)
		if err != nil {
			return nil, err
		}
		queries[i] = parsed
	}
	return s.engine.HybridSearch(ctx, &engine.HybridRequest{
		Queries: queries,
		NumHits: numHits,
	})
}

// PrepareRequest applies request-level rewrites: a request carrying a
// hybrid query has batched reduction disabled.
func (s *Searcher) PrepareRequest(req *request.SearchRequest) {
	request.FilterHybridRequest(req)
}

// Explain scores one global doc id against a parsed clause.
func (s *Searcher) Explain(clause []byte, doc uint32) (*engine.Explanation, error) {
	parsed, err := query.ParseNeuralSparse(clause)
	if err != nil {
		return nil, err
	}
	return s.engine.Explain(&engine.Request{Query: parsed}, doc)
}

// Metrics snapshots the engine counters.
func (s *Searcher) Metrics() telemetry.Snapshot {
	return s.engine.Metrics().Snapshot()
}
