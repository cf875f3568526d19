// Package collector implements hit collection for hybrid queries: the
// hits-threshold bookkeeping, the shared min-competitive-score
// accumulator, and the per-sub-query priority queues.
package collector

import (
	"math"

	"github.com/Aman-CERP/seismicd/internal/errors"
)

// ScoreMode describes how a collector consumes scores.
type ScoreMode int

const (
	// ScoreModeTopScores collects non-exhaustively: scorers may skip
	// documents that cannot make the top hits.
	ScoreModeTopScores ScoreMode = iota
)

// HitsThresholdChecker counts collected hits and reports when the
// configured threshold is crossed, at which point total hit counts
// become lower bounds.
type HitsThresholdChecker struct {
	threshold int
	count     int
}

// NewHitsThresholdChecker creates a checker. The threshold must be
// non-negative and below MaxInt32.
func NewHitsThresholdChecker(threshold int) (*HitsThresholdChecker, error) {
	if threshold < 0 {
		return nil, errors.InvalidArgumentf("hits threshold must be non-negative, got %d", threshold)
	}
	if threshold >= math.MaxInt32 {
		return nil, errors.InvalidArgumentf("hits threshold must be below MaxInt32, got %d", threshold)
	}
	return &HitsThresholdChecker{threshold: threshold}, nil
}

// IncrementHitCount records one collected hit.
func (c *HitsThresholdChecker) IncrementHitCount() {
	c.count++
}

// IsThresholdReached reports whether the count has reached the
// threshold.
func (c *HitsThresholdChecker) IsThresholdReached() bool {
	return c.count >= c.threshold
}

// HitCount returns the number of recorded hits.
func (c *HitsThresholdChecker) HitCount() int {
	return c.count
}

// ScoreMode returns the collection mode implied by thresholded
// counting.
func (c *HitsThresholdChecker) ScoreMode() ScoreMode {
	return ScoreModeTopScores
}
