package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/seismicd/internal/collector"
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/merger"
	"github.com/Aman-CERP/seismicd/internal/query"
	"github.com/Aman-CERP/seismicd/internal/scorer"
)

// HybridRequest is a compound query: each document's contribution is a
// fixed-length array of per-sub-query scores, combined downstream by a
// normalization processor.
type HybridRequest struct {
	Queries    []*query.NeuralSparse
	NumHits    int
	Threshold  int
	Boost      float32
	CeilSearch float32

	// Filter rewrites a query filter per segment and applies to every
	// sub-query; nil means no filter.
	Filter FilterRewriter
}

func (r *HybridRequest) defaults() {
	if r.NumHits == 0 {
		r.NumHits = query.DefaultK
	}
	if r.Threshold == 0 {
		r.Threshold = 1000
	}
	if r.Boost == 0 {
		r.Boost = 1
	}
	if r.CeilSearch == 0 {
		r.CeilSearch = 1
	}
}

// HybridSearch collects per-sub-query ranked lists across every
// segment and merges them into a CompoundTopDocs. Each sub-query runs
// through the same per-segment scorer selection as a standalone query
// (SEISMIC, exact match, two-phase, or the fallback); the min-competitive
// accumulator is shared across segment workers.
func (e *Engine) HybridSearch(ctx context.Context, req *HybridRequest) (*merger.CompoundTopDocs, error) {
	if req == nil || len(req.Queries) == 0 {
		return nil, errors.InvalidArgument("hybrid search requires at least one sub-query")
	}
	req.defaults()
	start := time.Now()

	qctxs := make([]*query.Context, len(req.Queries))
	for i, q := range req.Queries {
		qctx, err := buildQueryContext(q, req.CeilSearch)
		if err != nil {
			return nil, err
		}
		qctxs[i] = qctx
	}

	segs := e.Segments()
	filters, err := e.rewriteFilters(ctx, segs, req.Filter)
	if err != nil {
		return nil, err
	}

	minScore := collector.NewMinCompetitiveAccumulator()

	perSegment := make([][]merger.TopDocsAndMaxScore, len(segs))
	g, ctx := errgroup.WithContext(ctx)
	for i, seg := range segs {
		g.Go(func() error {
			results, err := e.hybridSegment(ctx, seg, qctxs, req, filters[seg.ID], minScore)
			if err != nil {
				return fmt.Errorf("segment %s: %w", seg.ID, err)
			}
			perSegment[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Merge sub-query by sub-query across segments.
	subResults := make([]merger.TopDocs, len(req.Queries))
	for sub := range req.Queries {
		var ranked []merger.TopDocsAndMaxScore
		for _, segResults := range perSegment {
			if segResults != nil {
				ranked = append(ranked, segResults[sub])
			}
		}
		merged := merger.MergeAll(ranked, merger.ByScoreDesc, req.NumHits)
		subResults[sub] = merged.TopDocs
	}

	compound := merger.NewCompoundTopDocs(subResults)
	e.metrics.RecordQuery(time.Since(start), len(compound.TopDocs().ScoreDocs))
	return compound, nil
}

// hybridSegment builds one selected scorer per sub-query, drains them,
// and joins their hit streams by doc id into the per-document score
// arrays the hybrid collector consumes. A sub-query that did not score
// a document contributes 0 at that slot.
func (e *Engine) hybridSegment(ctx context.Context, seg *Segment, qctxs []*query.Context, req *HybridRequest, filter *roaring.Bitmap, minScore *collector.MinCompetitiveAccumulator) ([]merger.TopDocsAndMaxScore, error) {
	checker, err := collector.NewHitsThresholdChecker(req.Threshold)
	if err != nil {
		return nil, err
	}
	coll, err := collector.NewHybridScoreCollector(req.NumHits, checker, collector.WithMinCompetitive(minScore))
	if err != nil {
		return nil, err
	}
	coll.SetDocBase(seg.docBase)

	accepted := acceptedDocs(seg, filter)
	if accepted != nil && accepted.IsEmpty() {
		return make([]merger.TopDocsAndMaxScore, len(qctxs)), nil
	}

	rows := make(map[uint32][]float32)
	for i, qctx := range qctxs {
		if len(qctx.Tokens) == 0 {
			continue
		}

		s, err := scorer.Select(scorer.SelectParams{
			HasSparseData: seg.Sparse && seg.Postings.HasField(seg.Field),
			Field:         seg.Field,
			Postings:      seg.Postings,
			Forward:       seg.Forward,
			MaxDoc:        seg.MaxDoc,
			Query:         qctx,
			TwoPhase:      req.Queries[i].TwoPhase,
			Filter:        accepted,
			Boost:         req.Boost,
			CeilIngest:    seg.CeilIngest,
			CeilSearch:    req.CeilSearch,
		})
		if err != nil {
			return nil, err
		}

		var drained uint64
		err = scorer.Drain(s, func(hit scorer.Hit) error {
			drained++
			if drained%1024 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			row, ok := rows[hit.Doc]
			if !ok {
				row = make([]float32, len(qctxs))
				rows[hit.Doc] = row
			}
			row[i] = hit.Score
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	docs := make([]uint32, 0, len(rows))
	for doc := range rows {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })

	for _, doc := range docs {
		row := rows[doc]
		var matched bool
		for _, score := range row {
			if score != 0 {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if err := coll.Collect(doc, row); err != nil {
			if errors.IsTerminated(err) {
				e.metrics.RecordEarlyTermination()
				break
			}
			return nil, err
		}
	}

	results := coll.TopDocs()
	if len(results) != len(qctxs) {
		// No document matched: the collector never learned the
		// sub-query count.
		results = make([]merger.TopDocsAndMaxScore, len(qctxs))
	}
	return results, nil
}
