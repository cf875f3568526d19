package scorer

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/forward"
)

// RankFeatureScorer is the exhaustive fallback for segments without
// SEISMIC-indexed data: a doc-ordered scan of the forward values, scored
// by full dot product against the (possibly pruned) query buffer.
type RankFeatureScorer struct {
	forward  forward.Reader
	dense    []uint8
	rescale  float32
	accepted *roaring.Bitmap
	maxDoc   uint32
	next     uint32
	maxScore float32
}

// NewRankFeature creates the fallback scorer. accepted may be nil.
func NewRankFeature(fwd forward.Reader, maxDoc uint32, dense []uint8, rescale float32, accepted *roaring.Bitmap) *RankFeatureScorer {
	var bound uint64
	for _, w := range dense {
		bound += uint64(w) * 255
	}
	return &RankFeatureScorer{
		forward:  fwd,
		dense:    dense,
		rescale:  rescale,
		accepted: accepted,
		maxDoc:   maxDoc,
		maxScore: float32(bound) * rescale,
	}
}

// Next implements Scorer, emitting docs in ascending order. Documents
// without a vector do not match.
func (s *RankFeatureScorer) Next() (Hit, bool, error) {
	for s.next < s.maxDoc {
		doc := s.next
		s.next++

		if s.accepted != nil && !s.accepted.Contains(doc) {
			continue
		}
		vec, err := s.forward.Read(doc)
		if err != nil {
			return Hit{}, false, errors.IOFailure("reading forward vector", err)
		}
		if vec == nil {
			continue
		}
		return Hit{Doc: doc, Score: float32(vec.Dot(s.dense)) * s.rescale}, true, nil
	}
	return Hit{}, false, nil
}

// Advance implements Scorer.
func (s *RankFeatureScorer) Advance(target uint32) (Hit, bool, error) {
	if target > s.next {
		s.next = target
	}
	return s.Next()
}

// MaxScore implements Scorer.
func (s *RankFeatureScorer) MaxScore() float32 {
	return s.maxScore
}
