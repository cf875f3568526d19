package scorer

import (
	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/forward"
	"github.com/Aman-CERP/seismicd/internal/postings"
	"github.com/Aman-CERP/seismicd/internal/query"
)

// DefaultHeapSize is the capacity of the running top-candidate heap used
// for cluster-skip decisions.
const DefaultHeapSize = 10

// SeismicParams configures a SeismicScorer for one segment.
type SeismicParams struct {
	Field    string
	Postings *postings.Store
	Forward  forward.Reader
	Query    *query.Context
	Dense    []uint8

	// Accepted restricts scoring to the given docs. The filter always
	// wins: clusters flagged should-not-skip bypass only the summary
	// gate, never the filter.
	Accepted *roaring.Bitmap

	// Rescale converts integer dot products to float scores; computed
	// once per segment from boost and the two quantization ceilings.
	Rescale float32

	// MaxDoc sizes the visited bitset.
	MaxDoc uint32

	// HeapSize overrides DefaultHeapSize when positive.
	HeapSize int
}

// SeismicScorer iterates the clustered postings of each query token in
// descending query-weight order, entering a cluster only when its
// summary score clears the heap-factor gate, and deduplicating documents
// across tokens.
type SeismicScorer struct {
	params  SeismicParams
	heap    *ScoreHeap
	visited *bitset.BitSet

	tokenIdx   int
	clusterIt  *postings.ClusterIterator
	cluster    *postings.DocumentCluster
	postingIdx int

	maxScore float32
}

// NewSeismic creates the scorer. Query tokens absent from the segment's
// postings contribute no sub-scorer.
func NewSeismic(params SeismicParams) *SeismicScorer {
	heapSize := params.HeapSize
	if heapSize <= 0 {
		heapSize = DefaultHeapSize
	}

	var bound uint64
	for _, tw := range params.Query.Tokens {
		bound += uint64(tw.Weight) * 255
	}

	return &SeismicScorer{
		params:   params,
		heap:     NewScoreHeap(heapSize),
		visited:  bitset.New(uint(params.MaxDoc)),
		maxScore: float32(bound) * params.Rescale,
	}
}

// MaxScore implements Scorer.
func (s *SeismicScorer) MaxScore() float32 {
	return s.maxScore
}

// Advance implements Scorer. Emission order follows cluster visitation,
// not doc ids, so advancing by target is not supported.
func (s *SeismicScorer) Advance(uint32) (Hit, bool, error) {
	return Hit{}, false, ErrAdvanceUnsupported
}

// Next implements Scorer.
func (s *SeismicScorer) Next() (Hit, bool, error) {
	for {
		// Emit from the current cluster first.
		for s.cluster != nil && s.postingIdx < len(s.cluster.Postings) {
			posting := s.cluster.Postings[s.postingIdx]
			s.postingIdx++

			doc := posting.DocID
			if s.params.Accepted != nil && !s.params.Accepted.Contains(doc) {
				continue
			}
			if s.visited.Test(uint(doc)) {
				continue
			}
			s.visited.Set(uint(doc))

			vec, err := s.params.Forward.Read(doc)
			if err != nil {
				return Hit{}, false, errors.IOFailure("reading forward vector", err)
			}
			if vec == nil {
				continue
			}

			raw := vec.Dot(s.params.Dense)
			s.heap.Insert(doc, raw)
			return Hit{Doc: doc, Score: float32(raw) * s.params.Rescale}, true, nil
		}

		cluster, err := s.nextCluster()
		if err != nil {
			return Hit{}, false, err
		}
		if cluster == nil {
			return Hit{}, false, nil
		}
		s.cluster = cluster
		s.postingIdx = 0
	}
}

// nextCluster walks clusters in their stored order across the query's
// tokens, applying the heap-factor skip gate, and returns nil when every
// token is exhausted.
func (s *SeismicScorer) nextCluster() (*postings.DocumentCluster, error) {
	for {
		if s.clusterIt == nil {
			if s.tokenIdx >= len(s.params.Query.Tokens) {
				return nil, nil
			}
			token := s.params.Query.Tokens[s.tokenIdx].Token
			s.tokenIdx++
			clusters, ok := s.params.Postings.Clusters(s.params.Field, token)
			if !ok {
				continue
			}
			s.clusterIt = clusters.Iterator()
		}

		cluster := s.clusterIt.Next()
		if cluster == nil {
			s.clusterIt = nil
			continue
		}
		if s.shouldEnter(cluster) {
			return cluster, nil
		}
	}
}

// shouldEnter applies the skip gate: should-not-skip clusters are always
// entered; otherwise the summary score must reach min_heap_score divided
// by the heap factor, and the gate is open while the heap is not full.
func (s *SeismicScorer) shouldEnter(cluster *postings.DocumentCluster) bool {
	if cluster.ShouldNotSkip {
		return true
	}
	if !s.heap.Full() {
		return true
	}
	summaryScore := cluster.Summary.Dot(s.params.Dense)
	return float64(summaryScore) >= float64(s.heap.Min())/float64(s.params.Query.HeapFactor)
}
