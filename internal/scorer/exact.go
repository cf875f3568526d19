package scorer

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/forward"
)

// ExactMatchScorer scores every candidate of a filter bitset by full dot
// product. Used when the filter pre-selects at most k documents, where
// approximation gains nothing.
type ExactMatchScorer struct {
	it       roaring.IntPeekable
	forward  forward.Reader
	dense    []uint8
	rescale  float32
	maxScore float32
}

// NewExactMatch creates the scorer over the filter's documents.
func NewExactMatch(filter *roaring.Bitmap, fwd forward.Reader, dense []uint8, rescale float32) *ExactMatchScorer {
	var bound uint64
	for _, w := range dense {
		bound += uint64(w) * 255
	}
	return &ExactMatchScorer{
		it:       filter.Iterator(),
		forward:  fwd,
		dense:    dense,
		rescale:  rescale,
		maxScore: float32(bound) * rescale,
	}
}

// Next implements Scorer. Documents without a vector score 0.
func (s *ExactMatchScorer) Next() (Hit, bool, error) {
	if !s.it.HasNext() {
		return Hit{}, false, nil
	}
	doc := s.it.Next()

	vec, err := s.forward.Read(doc)
	if err != nil {
		return Hit{}, false, errors.IOFailure("reading forward vector", err)
	}
	var score float32
	if vec != nil {
		score = float32(vec.Dot(s.dense)) * s.rescale
	}
	return Hit{Doc: doc, Score: score}, true, nil
}

// Advance implements Scorer; the filter iterator is doc-ordered.
func (s *ExactMatchScorer) Advance(target uint32) (Hit, bool, error) {
	s.it.AdvanceIfNeeded(target)
	return s.Next()
}

// MaxScore implements Scorer.
func (s *ExactMatchScorer) MaxScore() float32 {
	return s.maxScore
}
