package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/seismicd/internal/collector"
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/merger"
	"github.com/Aman-CERP/seismicd/internal/quantize"
	"github.com/Aman-CERP/seismicd/internal/query"
	"github.com/Aman-CERP/seismicd/internal/scorer"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Request is one sparse search execution.
type Request struct {
	Query *query.NeuralSparse

	// Boost scales the final scores; defaults to 1.
	Boost float32

	// CeilSearch is the search-time quantization ceiling; defaults to 1.
	CeilSearch float32

	// Filter rewrites the query filter per segment; nil means no filter.
	Filter FilterRewriter

	// Threshold is the total-hits threshold governing when counts become
	// lower bounds.
	Threshold int
}

func (r *Request) defaults() {
	if r.Boost == 0 {
		r.Boost = 1
	}
	if r.CeilSearch == 0 {
		r.CeilSearch = 1
	}
	if r.Threshold == 0 {
		r.Threshold = 1000
	}
}

// segmentResult pairs a segment's ranked output with its identity.
type segmentResult struct {
	id     string
	result merger.TopDocsAndMaxScore
}

// Search answers a top-k query over every open segment. Segments score
// in parallel; scoring within a segment is single-threaded.
func (e *Engine) Search(ctx context.Context, req *Request) (*merger.TopDocsAndMaxScore, error) {
	if req == nil || req.Query == nil {
		return nil, errors.InvalidArgument("search request requires a query")
	}
	req.defaults()
	start := time.Now()

	qctx, err := buildQueryContext(req.Query, req.CeilSearch)
	if err != nil {
		return nil, err
	}

	segs := e.Segments()
	filters, err := e.rewriteFilters(ctx, segs, req.Filter)
	if err != nil {
		return nil, err
	}

	results := make([]segmentResult, len(segs))
	g, ctx := errgroup.WithContext(ctx)
	for i, seg := range segs {
		g.Go(func() error {
			res, err := e.searchSegment(ctx, seg, qctx, req, filters[seg.ID])
			if err != nil {
				e.log.Error("segment search failed", "segment", seg.ID, "error", err)
				return fmt.Errorf("segment %s: %w", seg.ID, err)
			}
			results[i] = segmentResult{id: seg.ID, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ranked := make([]merger.TopDocsAndMaxScore, len(results))
	for i, r := range results {
		ranked[i] = r.result
	}
	merged := merger.MergeAll(ranked, merger.ByScoreDesc, qctx.K)

	e.metrics.RecordQuery(time.Since(start), len(merged.TopDocs.ScoreDocs))
	return &merged, nil
}

// buildQueryContext quantizes a clause's tokens at the search ceiling
// and assembles the immutable query context.
func buildQueryContext(q *query.NeuralSparse, ceilSearch float32) (*query.Context, error) {
	quantizer, err := quantize.NewByteQuantizer(ceilSearch)
	if err != nil {
		return nil, err
	}
	vec, err := sparsevec.FromWeights(q.Tokens, quantizer)
	if err != nil {
		return nil, err
	}
	qv := sparsevec.NewQueryVector(vec)
	return query.NewContext(qv, q.TopN, q.K, q.HeapFactor)
}

// searchSegment scores one segment and collects its top k hits. Early
// termination from the collector is absorbed here: already-collected
// hits are kept and the total becomes a lower bound.
func (e *Engine) searchSegment(ctx context.Context, seg *Segment, qctx *query.Context, req *Request, filter *roaring.Bitmap) (merger.TopDocsAndMaxScore, error) {
	// An empty query vector matches nothing on the segment; not an error.
	if len(qctx.Tokens) == 0 {
		return merger.TopDocsAndMaxScore{}, nil
	}

	accepted := acceptedDocs(seg, filter)

	// A zero-doc filter is an empty result, not an error.
	if accepted != nil && accepted.IsEmpty() {
		return merger.TopDocsAndMaxScore{}, nil
	}

	s, err := scorer.Select(scorer.SelectParams{
		HasSparseData: seg.Sparse && seg.Postings.HasField(seg.Field),
		Field:         seg.Field,
		Postings:      seg.Postings,
		Forward:       seg.Forward,
		MaxDoc:        seg.MaxDoc,
		Query:         qctx,
		TwoPhase:      req.Query.TwoPhase,
		Filter:        accepted,
		Boost:         req.Boost,
		CeilIngest:    seg.CeilIngest,
		CeilSearch:    req.CeilSearch,
	})
	if err != nil {
		return merger.TopDocsAndMaxScore{}, err
	}

	checker, err := collector.NewHitsThresholdChecker(req.Threshold)
	if err != nil {
		return merger.TopDocsAndMaxScore{}, err
	}

	queue := collector.NewHitQueue(qctx.K)
	relation := merger.RelationEqualTo
	var collected uint64
	var maxScore float32

	const checkCancelEvery = 1024
	err = scorer.Drain(s, func(hit scorer.Hit) error {
		collected++
		if collected%checkCancelEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		checker.IncrementHitCount()
		if checker.HitCount() > req.Threshold {
			relation = merger.RelationGTE
		}
		queue.Insert(merger.ScoreDoc{Doc: seg.docBase + hit.Doc, Score: hit.Score, ShardIndex: -1})
		if hit.Score > maxScore {
			maxScore = hit.Score
		}
		return nil
	})
	if err != nil {
		if errors.IsTerminated(err) {
			e.metrics.RecordEarlyTermination()
			relation = merger.RelationGTE
		} else {
			return merger.TopDocsAndMaxScore{}, err
		}
	}

	return merger.TopDocsAndMaxScore{
		TopDocs: merger.TopDocs{
			TotalHits: merger.TotalHits{Value: collected, Relation: relation},
			ScoreDocs: queue.PopAll(),
		},
		MaxScore: maxScore,
	}, nil
}
