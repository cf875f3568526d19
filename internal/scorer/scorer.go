// Package scorer implements the per-segment scoring paths: the SEISMIC
// clustered-posting scorer, the exact-match filter scorer, the two-phase
// candidate/rescore pipeline, the exhaustive fallback, and the selector
// that picks among them per segment.
package scorer

import (
	"errors"
)

// ErrAdvanceUnsupported is returned by scorers whose emission order
// carries no doc-id meaning. The SEISMIC iterator is forward-only;
// advancing by target is not supported.
var ErrAdvanceUnsupported = errors.New("advance by target is not supported by this scorer")

// Hit is one scored document.
type Hit struct {
	Doc   uint32
	Score float32
}

// Scorer produces scored documents for one segment. Implementations are
// single-threaded; a scorer is owned by one query execution.
type Scorer interface {
	// Next returns the next scored document. The second result is false
	// when the scorer is exhausted.
	Next() (Hit, bool, error)

	// Advance positions the scorer at the first document >= target and
	// returns it. Scorers without doc-ordered emission return
	// ErrAdvanceUnsupported.
	Advance(target uint32) (Hit, bool, error)

	// MaxScore returns an upper bound on any score this scorer can emit.
	MaxScore() float32
}

// Drain runs a scorer to exhaustion, passing every hit to collect.
// A collect error stops the drain and is returned as-is, so sentinel
// signals (early termination) pass through the bulk-scorer boundary.
func Drain(s Scorer, collect func(Hit) error) error {
	for {
		hit, ok, err := s.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := collect(hit); err != nil {
			return err
		}
	}
}
