package scorer

import (
	"sort"
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/seismicd/internal/config"
	"github.com/Aman-CERP/seismicd/internal/forward"
	"github.com/Aman-CERP/seismicd/internal/postings"
	"github.com/Aman-CERP/seismicd/internal/query"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// buildSegment indexes docs (doc id -> items) and clusters the postings
// for every token with the given method parameters.
func buildSegment(t *testing.T, docs map[uint32][]sparsevec.Item, params config.MethodParameters) (*forward.Index, *postings.Store) {
	t.Helper()

	idx := forward.NewIndex("embedding")
	byToken := make(map[uint16][]postings.Posting)
	for docID, items := range docs {
		vec, err := sparsevec.New(items)
		require.NoError(t, err)
		require.NoError(t, idx.Write(docID, vec))
		for _, item := range items {
			byToken[item.Token] = append(byToken[item.Token], postings.Posting{DocID: docID, Weight: item.Weight})
		}
	}

	store := postings.NewStore()
	for token, posting := range byToken {
		sort.Slice(posting, func(i, j int) bool { return posting[i].DocID < posting[j].DocID })
		clusters, err := postings.Build(posting, idx.Read, params)
		require.NoError(t, err)
		store.Put("embedding", token, clusters)
	}
	return idx, store
}

func queryCtx(t *testing.T, tokens []query.TokenWeight, k int, heapFactor float32) *query.Context {
	t.Helper()
	items := make([]sparsevec.Item, len(tokens))
	for i, tw := range tokens {
		items[i] = sparsevec.Item{Token: tw.Token, Weight: tw.Weight}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Token < items[j].Token })
	vec, err := sparsevec.New(items)
	require.NoError(t, err)
	ctx, err := query.NewContext(sparsevec.NewQueryVector(vec), len(tokens), k, heapFactor)
	require.NoError(t, err)
	return ctx
}

func drainAll(t *testing.T, s Scorer) []Hit {
	t.Helper()
	var hits []Hit
	require.NoError(t, Drain(s, func(h Hit) error {
		hits = append(hits, h)
		return nil
	}))
	return hits
}

func topDocsByScore(hits []Hit, k int) []uint32 {
	sorted := append([]Hit(nil), hits...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].Doc < sorted[j].Doc
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	docs := make([]uint32, len(sorted))
	for i, h := range sorted {
		docs[i] = h.Doc
	}
	return docs
}

// Ten docs carrying weight i on token 1; the top five by descending
// token weight are docs 10..6.
func TestSeismic_SingleTokenRanking(t *testing.T) {
	docs := make(map[uint32][]sparsevec.Item)
	for i := uint32(1); i <= 10; i++ {
		docs[i] = []sparsevec.Item{{Token: 1, Weight: uint8(i)}}
	}
	idx, store := buildSegment(t, docs, config.DefaultMethodParameters())

	ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 255}}, 5, 1.0)
	s := NewSeismic(SeismicParams{
		Field:    "embedding",
		Postings: store,
		Forward:  idx,
		Query:    ctx,
		Dense:    query.Dense(ctx.Tokens),
		Rescale:  1.0,
		MaxDoc:   11,
	})

	hits := drainAll(t, s)
	assert.Equal(t, []uint32{10, 9, 8, 7, 6}, topDocsByScore(hits, 5))
}

func TestSeismic_DeduplicatesAcrossTokens(t *testing.T) {
	docs := map[uint32][]sparsevec.Item{
		1: {{Token: 1, Weight: 10}, {Token: 2, Weight: 20}},
		2: {{Token: 1, Weight: 5}},
		3: {{Token: 2, Weight: 7}},
	}
	idx, store := buildSegment(t, docs, config.DefaultMethodParameters())

	ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 100}, {Token: 2, Weight: 90}}, 3, 1.0)
	s := NewSeismic(SeismicParams{
		Field:    "embedding",
		Postings: store,
		Forward:  idx,
		Query:    ctx,
		Dense:    query.Dense(ctx.Tokens),
		Rescale:  1.0,
		MaxDoc:   4,
	})

	hits := drainAll(t, s)
	seen := make(map[uint32]int)
	for _, h := range hits {
		seen[h.Doc]++
	}
	// Doc 1 appears in both tokens' postings but is scored once, with
	// the full dot product across both tokens.
	assert.Equal(t, map[uint32]int{1: 1, 2: 1, 3: 1}, seen)
	for _, h := range hits {
		if h.Doc == 1 {
			assert.InDelta(t, float64(10*100+20*90), float64(h.Score), 0.01)
		}
	}
}

func TestSeismic_FilterWinsOverShouldNotSkip(t *testing.T) {
	docs := map[uint32][]sparsevec.Item{
		1: {{Token: 1, Weight: 10}},
		2: {{Token: 1, Weight: 20}},
	}
	// Default approximate threshold keeps the posting in one
	// always-entered cluster.
	idx, store := buildSegment(t, docs, config.DefaultMethodParameters())

	accepted := roaring.BitmapOf(2)
	ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 255}}, 2, 1.0)
	s := NewSeismic(SeismicParams{
		Field:    "embedding",
		Postings: store,
		Forward:  idx,
		Query:    ctx,
		Dense:    query.Dense(ctx.Tokens),
		Accepted: accepted,
		Rescale:  1.0,
		MaxDoc:   3,
	})

	hits := drainAll(t, s)
	require.Len(t, hits, 1)
	assert.Equal(t, uint32(2), hits[0].Doc)
}

func TestSeismic_HeapFactorSkipsWeakClusters(t *testing.T) {
	// Force tiny clusters: ratio 1.0 means one cluster per posting
	// entry; threshold 1 enables clustering (no should-not-skip).
	params := config.DefaultMethodParameters()
	params.ClusterRatio = 1.0
	params.ApproximateThreshold = 1

	docs := make(map[uint32][]sparsevec.Item)
	for i := uint32(1); i <= 20; i++ {
		weight := uint8(1)
		if i <= 2 {
			weight = 200
		}
		docs[i] = []sparsevec.Item{{Token: 1, Weight: weight}}
	}
	idx, store := buildSegment(t, docs, params)

	ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 255}}, 2, 1.0)
	s := NewSeismic(SeismicParams{
		Field:    "embedding",
		Postings: store,
		Forward:  idx,
		Query:    ctx,
		Dense:    query.Dense(ctx.Tokens),
		Rescale:  1.0,
		MaxDoc:   21,
		HeapSize: 2,
	})

	hits := drainAll(t, s)
	// Docs 1 and 2 fill the heap with strong scores; every weight-1
	// cluster after them falls below the heap minimum and is skipped.
	require.Len(t, hits, 2)
	assert.Equal(t, []uint32{1, 2}, []uint32{hits[0].Doc, hits[1].Doc})
}

func TestSeismic_AdvanceUnsupported(t *testing.T) {
	idx, store := buildSegment(t, map[uint32][]sparsevec.Item{1: {{Token: 1, Weight: 1}}}, config.DefaultMethodParameters())
	ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 255}}, 1, 1.0)
	s := NewSeismic(SeismicParams{
		Field: "embedding", Postings: store, Forward: idx,
		Query: ctx, Dense: query.Dense(ctx.Tokens), Rescale: 1.0, MaxDoc: 2,
	})

	_, _, err := s.Advance(0)
	assert.ErrorIs(t, err, ErrAdvanceUnsupported)
}

func TestSeismic_EmptyQueryMatchesNothing(t *testing.T) {
	idx, store := buildSegment(t, map[uint32][]sparsevec.Item{1: {{Token: 1, Weight: 1}}}, config.DefaultMethodParameters())

	vec, err := sparsevec.New(nil)
	require.NoError(t, err)
	ctx, err := query.NewContext(sparsevec.NewQueryVector(vec), 10, 5, 1.0)
	require.NoError(t, err)

	s := NewSeismic(SeismicParams{
		Field: "embedding", Postings: store, Forward: idx,
		Query: ctx, Dense: query.Dense(ctx.Tokens), Rescale: 1.0, MaxDoc: 2,
	})

	hits := drainAll(t, s)
	assert.Empty(t, hits)
}

func TestSeismic_DeterministicWithinSegmentLifetime(t *testing.T) {
	docs := make(map[uint32][]sparsevec.Item)
	for i := uint32(1); i <= 30; i++ {
		docs[i] = []sparsevec.Item{{Token: 1, Weight: uint8(i * 3)}, {Token: 2, Weight: uint8(40 - i)}}
	}
	params := config.DefaultMethodParameters()
	params.ClusterRatio = 0.2
	params.ApproximateThreshold = 5
	idx, store := buildSegment(t, docs, params)

	run := func() []Hit {
		ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 200}, {Token: 2, Weight: 100}}, 5, 1.2)
		s := NewSeismic(SeismicParams{
			Field: "embedding", Postings: store, Forward: idx,
			Query: ctx, Dense: query.Dense(ctx.Tokens), Rescale: 0.5, MaxDoc: 31,
		})
		return drainAll(t, s)
	}

	assert.Equal(t, run(), run())
}

// Filter docs {5,7,9} with dot products 3,1,2: exact match emits all
// three; the top-3 by score is 5, 9, 7.
func TestExactMatch_ScoresFilterDocs(t *testing.T) {
	idx := forward.NewIndex("embedding")
	for doc, w := range map[uint32]uint8{5: 3, 7: 1, 9: 2} {
		vec, err := sparsevec.New([]sparsevec.Item{{Token: 1, Weight: w}})
		require.NoError(t, err)
		require.NoError(t, idx.Write(doc, vec))
	}

	dense := make([]uint8, sparsevec.DenseSize)
	dense[1] = 1
	s := NewExactMatch(roaring.BitmapOf(5, 7, 9), idx, dense, 1.0)

	hits := drainAll(t, s)
	require.Len(t, hits, 3)
	assert.Equal(t, []uint32{5, 9, 7}, topDocsByScore(hits, 3))
}

func TestExactMatch_DocWithoutVectorScoresZero(t *testing.T) {
	idx := forward.NewIndex("embedding")
	dense := make([]uint8, sparsevec.DenseSize)

	s := NewExactMatch(roaring.BitmapOf(4), idx, dense, 1.0)
	hits := drainAll(t, s)
	require.Len(t, hits, 1)
	assert.Equal(t, float32(0), hits[0].Score)
}

// sliceScorer is a doc-ordered fake used by the two-phase tests.
type sliceScorer struct {
	hits []Hit
	pos  int
	max  float32
}

func (s *sliceScorer) Next() (Hit, bool, error) {
	if s.pos >= len(s.hits) {
		return Hit{}, false, nil
	}
	h := s.hits[s.pos]
	s.pos++
	return h, true, nil
}

func (s *sliceScorer) Advance(target uint32) (Hit, bool, error) {
	for {
		h, ok, err := s.Next()
		if err != nil || !ok {
			return Hit{}, false, err
		}
		if h.Doc >= target {
			return h, true, nil
		}
	}
}

func (s *sliceScorer) MaxScore() float32 { return s.max }

// Phase one yields four candidates with k=2 and expansion 2.0 (window
// 4); phase two refines only doc 2. Emission is doc-ascending with
// combined scores 1.0, 2.5, 3.0, 0.5.
func TestTwoPhase_CombinesPhases(t *testing.T) {
	p1 := &sliceScorer{hits: []Hit{{1, 1.0}, {2, 2.0}, {3, 3.0}, {4, 0.5}}}
	p2 := &sliceScorer{hits: []Hit{{2, 0.5}}}

	s := NewTwoPhase(p1, p2, 4, nil)
	hits := drainAll(t, s)

	require.Equal(t, []Hit{{1, 1.0}, {2, 2.5}, {3, 3.0}, {4, 0.5}}, hits)
	assert.Equal(t, []uint32{3, 2}, topDocsByScore(hits, 2))
}

func TestTwoPhase_WindowDropsWeakest(t *testing.T) {
	p1 := &sliceScorer{hits: []Hit{{1, 1.0}, {2, 2.0}, {3, 3.0}, {4, 0.5}}}
	p2 := &sliceScorer{}

	// Window 2 retains only docs 2 and 3.
	s := NewTwoPhase(p1, p2, 2, nil)
	hits := drainAll(t, s)
	assert.Equal(t, []Hit{{2, 2.0}, {3, 3.0}}, hits)
}

func TestTwoPhase_OvershootRefinementIsNotLost(t *testing.T) {
	p1 := &sliceScorer{hits: []Hit{{5, 1.0}, {7, 1.0}}}
	p2 := &sliceScorer{hits: []Hit{{7, 2.0}}}

	s := NewTwoPhase(p1, p2, 4, nil)
	hits := drainAll(t, s)
	require.Equal(t, []Hit{{5, 1.0}, {7, 3.0}}, hits)
}

func TestTwoPhase_FilterIntersectsPhaseOne(t *testing.T) {
	p1 := &sliceScorer{hits: []Hit{{1, 1.0}, {2, 2.0}, {3, 3.0}}}
	p2 := &sliceScorer{}

	s := NewTwoPhase(p1, p2, 4, roaring.BitmapOf(1, 3))
	hits := drainAll(t, s)
	assert.Equal(t, []Hit{{1, 1.0}, {3, 3.0}}, hits)
}

func TestSelect_DecisionTable(t *testing.T) {
	docs := map[uint32][]sparsevec.Item{
		1: {{Token: 1, Weight: 10}},
		2: {{Token: 1, Weight: 20}},
		3: {{Token: 1, Weight: 30}},
		4: {{Token: 1, Weight: 40}},
	}
	idx, store := buildSegment(t, docs, config.DefaultMethodParameters())
	ctx := queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 255}}, 3, 1.0)

	base := SelectParams{
		HasSparseData: true,
		Field:         "embedding",
		Postings:      store,
		Forward:       idx,
		MaxDoc:        5,
		Query:         ctx,
		Boost:         1.0,
		CeilIngest:    1.0,
		CeilSearch:    1.0,
	}

	t.Run("filter cardinality k selects exact match", func(t *testing.T) {
		p := base
		p.Filter = roaring.BitmapOf(1, 2, 3)
		s, err := Select(p)
		require.NoError(t, err)
		assert.IsType(t, &ExactMatchScorer{}, s)
	})

	t.Run("filter cardinality k+1 selects seismic", func(t *testing.T) {
		p := base
		p.Filter = roaring.BitmapOf(1, 2, 3, 4)
		s, err := Select(p)
		require.NoError(t, err)
		assert.IsType(t, &SeismicScorer{}, s)
	})

	t.Run("no filter selects seismic", func(t *testing.T) {
		s, err := Select(base)
		require.NoError(t, err)
		assert.IsType(t, &SeismicScorer{}, s)
	})

	t.Run("no sparse data selects fallback", func(t *testing.T) {
		p := base
		p.HasSparseData = false
		s, err := Select(p)
		require.NoError(t, err)
		assert.IsType(t, &RankFeatureScorer{}, s)
	})

	t.Run("no sparse data with two-phase selects two-phase", func(t *testing.T) {
		p := base
		p.HasSparseData = false
		p.Query = queryCtx(t, []query.TokenWeight{{Token: 1, Weight: 200}, {Token: 2, Weight: 10}}, 3, 1.0)
		p.TwoPhase = &query.TwoPhaseParams{
			PruneType:     query.PruneMaxRatio,
			PruneRatio:    0.5,
			ExpansionRate: 2.0,
			MaxWindowSize: 50,
		}
		s, err := Select(p)
		require.NoError(t, err)
		assert.IsType(t, &TwoPhaseScorer{}, s)
	})

	t.Run("two-phase with one-sided prune falls back", func(t *testing.T) {
		p := base
		p.HasSparseData = false
		p.TwoPhase = &query.TwoPhaseParams{
			PruneType:     query.PruneMaxRatio,
			PruneRatio:    0.0,
			ExpansionRate: 2.0,
			MaxWindowSize: 50,
		}
		s, err := Select(p)
		require.NoError(t, err)
		assert.IsType(t, &RankFeatureScorer{}, s)
	})
}

func TestRankFeature_DocOrderedWithFilter(t *testing.T) {
	idx := forward.NewIndex("embedding")
	for doc, w := range map[uint32]uint8{1: 3, 3: 5, 6: 7} {
		vec, err := sparsevec.New([]sparsevec.Item{{Token: 2, Weight: w}})
		require.NoError(t, err)
		require.NoError(t, idx.Write(doc, vec))
	}
	dense := make([]uint8, sparsevec.DenseSize)
	dense[2] = 10

	s := NewRankFeature(idx, 10, dense, 1.0, roaring.BitmapOf(3, 6))
	hits := drainAll(t, s)
	assert.Equal(t, []Hit{{3, 50}, {6, 70}}, hits)

	// Advance lands on the first doc at or past the target.
	s = NewRankFeature(idx, 10, dense, 1.0, nil)
	h, ok, err := s.Advance(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(3), h.Doc)
}
