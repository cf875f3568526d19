package scorer

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Aman-CERP/seismicd/internal/forward"
	"github.com/Aman-CERP/seismicd/internal/postings"
	"github.com/Aman-CERP/seismicd/internal/quantize"
	"github.com/Aman-CERP/seismicd/internal/query"
)

// SelectParams carries the per-segment inputs of the scorer decision.
type SelectParams struct {
	// HasSparseData reports whether the segment carries SEISMIC-indexed
	// postings for the field.
	HasSparseData bool

	Field    string
	Postings *postings.Store
	Forward  forward.Reader
	MaxDoc   uint32

	Query    *query.Context
	TwoPhase *query.TwoPhaseParams

	// Filter is the pre-computed filter bitset, nil when the query has
	// no filter.
	Filter *roaring.Bitmap

	// Boost plus the two quantization ceilings determine the rescaled
	// boost factor, computed once per segment.
	Boost      float32
	CeilIngest float32
	CeilSearch float32

	// HeapSize overrides the SEISMIC skip heap capacity when positive.
	HeapSize int
}

// Select picks the scoring path for one segment:
//
//   - no SEISMIC data, two-phase params present and both phases produce
//     scorers: two-phase over the fallback pair;
//   - no SEISMIC data otherwise: the exhaustive fallback;
//   - filter cardinality at most k: exact match over the filter;
//   - otherwise: SEISMIC.
func Select(p SelectParams) (Scorer, error) {
	rescale := quantize.RescaleFactor(p.Boost, p.CeilIngest, p.CeilSearch)

	if !p.HasSparseData {
		if p.TwoPhase != nil {
			high, low := p.TwoPhase.Prune(p.Query.Tokens)
			if len(high) > 0 && len(low) > 0 {
				p1 := NewRankFeature(p.Forward, p.MaxDoc, query.Dense(high), rescale, p.Filter)
				p2 := NewRankFeature(p.Forward, p.MaxDoc, query.Dense(low), rescale, nil)
				return NewTwoPhase(p1, p2, p.TwoPhase.WindowSize(p.Query.K), nil), nil
			}
		}
		return NewRankFeature(p.Forward, p.MaxDoc, query.Dense(p.Query.Tokens), rescale, p.Filter), nil
	}

	if p.Filter != nil && p.Filter.GetCardinality() <= uint64(p.Query.K) {
		return NewExactMatch(p.Filter, p.Forward, query.Dense(p.Query.Tokens), rescale), nil
	}

	return NewSeismic(SeismicParams{
		Field:    p.Field,
		Postings: p.Postings,
		Forward:  p.Forward,
		Query:    p.Query,
		Dense:    query.Dense(p.Query.Tokens),
		Accepted: p.Filter,
		Rescale:  rescale,
		MaxDoc:   p.MaxDoc,
		HeapSize: p.HeapSize,
	}), nil
}
