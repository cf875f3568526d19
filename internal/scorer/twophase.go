package scorer

import (
	"errors"
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

// TwoPhaseScorer runs a candidate-selection phase over P1, retains the
// strongest window entries, then rescans them in ascending doc order
// combining each with P2's refinement: score(d) = p1(d) + p2(d) when P2
// contains d, else p1(d).
type TwoPhaseScorer struct {
	p1, p2 Scorer
	window int
	filter *roaring.Bitmap

	prepared bool
	hits     []Hit
	pos      int
}

// NewTwoPhase creates the scorer. window is the phase-one retention
// size; filter, when non-nil, is intersected with P1 before collection.
func NewTwoPhase(p1, p2 Scorer, window int, filter *roaring.Bitmap) *TwoPhaseScorer {
	return &TwoPhaseScorer{p1: p1, p2: p2, window: window, filter: filter}
}

// prepare drains phase one through the packed window heap, sorts the
// retained candidates by ascending doc id, and attaches phase-two
// refinements.
func (s *TwoPhaseScorer) prepare() error {
	heap := newPackedHeap(s.window)
	err := Drain(s.p1, func(hit Hit) error {
		if s.filter != nil && !s.filter.Contains(hit.Doc) {
			return nil
		}
		heap.insert(PackScoreDoc(hit.Score, hit.Doc))
		return nil
	})
	if err != nil {
		return err
	}

	s.hits = make([]Hit, 0, len(heap.keys))
	for _, key := range heap.keys {
		score, doc := UnpackScoreDoc(key)
		s.hits = append(s.hits, Hit{Doc: doc, Score: score})
	}
	sort.Slice(s.hits, func(i, j int) bool { return s.hits[i].Doc < s.hits[j].Doc })

	// P2's Advance consumes the document it lands on; an overshoot is
	// buffered so a later target can still claim it.
	var pending *Hit
	for i := range s.hits {
		target := s.hits[i].Doc
		if pending != nil && pending.Doc < target {
			pending = nil
		}
		if pending == nil {
			refine, ok, err := s.p2.Advance(target)
			if errors.Is(err, ErrAdvanceUnsupported) {
				return err
			}
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			pending = &refine
		}
		if pending.Doc == target {
			s.hits[i].Score += pending.Score
			pending = nil
		}
	}
	return nil
}

// Next implements Scorer, emitting the combined window in ascending doc
// order.
func (s *TwoPhaseScorer) Next() (Hit, bool, error) {
	if !s.prepared {
		if err := s.prepare(); err != nil {
			return Hit{}, false, err
		}
		s.prepared = true
	}
	if s.pos >= len(s.hits) {
		return Hit{}, false, nil
	}
	hit := s.hits[s.pos]
	s.pos++
	return hit, true, nil
}

// Advance implements Scorer over the doc-ordered window.
func (s *TwoPhaseScorer) Advance(target uint32) (Hit, bool, error) {
	for {
		hit, ok, err := s.Next()
		if err != nil || !ok {
			return Hit{}, false, err
		}
		if hit.Doc >= target {
			return hit, true, nil
		}
	}
}

// MaxScore implements Scorer.
func (s *TwoPhaseScorer) MaxScore() float32 {
	return s.p1.MaxScore() + s.p2.MaxScore()
}
