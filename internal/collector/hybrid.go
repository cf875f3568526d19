package collector

import (
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/merger"
)

// HybridScoreCollector collects the per-sub-query score arrays a hybrid
// query produces for each document. A score of 0 means "no hit for this
// sub-query at this doc". Queues are sized once when the sub-query
// count is first known and never re-allocated.
type HybridScoreCollector struct {
	numHits  int
	checker  *HitsThresholdChecker
	minScore *MinCompetitiveAccumulator

	queues    []*HitQueue
	collected []int
	maxScore  float32
	relation  merger.TotalHitsRelation

	// indexSortPrefix enables early termination: once the threshold is
	// reached, a document that cannot improve any sub-query's queue
	// terminates the segment's collection.
	indexSortPrefix bool

	docBase uint32
}

// HybridCollectorOption configures the collector.
type HybridCollectorOption func(*HybridScoreCollector)

// WithMinCompetitive shares the accumulator across segments.
func WithMinCompetitive(acc *MinCompetitiveAccumulator) HybridCollectorOption {
	return func(c *HybridScoreCollector) { c.minScore = acc }
}

// WithIndexSortPrefix marks the search sort as a prefix of the segment's
// index sort, enabling early termination.
func WithIndexSortPrefix() HybridCollectorOption {
	return func(c *HybridScoreCollector) { c.indexSortPrefix = true }
}

// NewHybridScoreCollector creates a collector retaining numHits hits per
// sub-query.
func NewHybridScoreCollector(numHits int, checker *HitsThresholdChecker, opts ...HybridCollectorOption) (*HybridScoreCollector, error) {
	if numHits < 1 {
		return nil, errors.InvalidArgumentf("numHits must be positive, got %d", numHits)
	}
	if checker == nil {
		return nil, errors.InvalidArgument("hits threshold checker is required")
	}
	c := &HybridScoreCollector{
		numHits:  numHits,
		checker:  checker,
		relation: merger.RelationEqualTo,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetDocBase positions the collector at a new segment.
func (c *HybridScoreCollector) SetDocBase(docBase uint32) {
	c.docBase = docBase
}

// ensureQueues sizes the per-sub-query queues on first use.
func (c *HybridScoreCollector) ensureQueues(subQueries int) error {
	if c.queues != nil {
		if len(c.queues) != subQueries {
			return errors.InvalidState("sub-query count changed mid-collection")
		}
		return nil
	}
	c.queues = make([]*HitQueue, subQueries)
	c.collected = make([]int, subQueries)
	for i := range c.queues {
		c.queues[i] = NewHitQueue(c.numHits)
	}
	return nil
}

// Collect records one document's sub-query scores. The returned error
// is ErrTerminated when collection of the current segment should stop.
func (c *HybridScoreCollector) Collect(doc uint32, scores []float32) error {
	if err := c.ensureQueues(len(scores)); err != nil {
		return err
	}

	globalDoc := c.docBase + doc

	if c.indexSortPrefix && c.relation == merger.RelationGTE && !c.couldImprove(scores) {
		return errors.ErrTerminated
	}

	for i, score := range scores {
		if score == 0 {
			continue
		}
		c.collected[i]++
		c.queues[i].Insert(merger.ScoreDoc{Doc: globalDoc, Score: score, ShardIndex: -1})
		if score > c.maxScore {
			c.maxScore = score
		}
	}

	c.checker.IncrementHitCount()
	if c.checker.count > c.checker.threshold {
		// First crossing flips the relation; from here on counts are
		// lower bounds and minimum competitive scores are enforced.
		c.relation = merger.RelationGTE
		c.publishMinCompetitive()
	}
	return nil
}

// couldImprove reports whether any non-zero sub-query score could enter
// its queue.
func (c *HybridScoreCollector) couldImprove(scores []float32) bool {
	for i, score := range scores {
		if score == 0 {
			continue
		}
		if c.queues[i].WouldAccept(score) {
			return true
		}
	}
	return false
}

// publishMinCompetitive offers the bottom of every full queue to the
// shared accumulator at the configured interval.
func (c *HybridScoreCollector) publishMinCompetitive() {
	if c.minScore == nil {
		return
	}
	// Always publish on the first crossing, then at the sample interval.
	if c.checker.count != c.checker.threshold+1 && c.checker.count&SampleInterval != 0 {
		return
	}
	for _, q := range c.queues {
		if !q.Full() {
			continue
		}
		if bottom, ok := q.Bottom(); ok {
			c.minScore.Accumulate(bottom.Score, c.docBase)
		}
	}
}

// MinCompetitiveScore returns the current enforced minimum, 0 before
// the threshold is reached.
func (c *HybridScoreCollector) MinCompetitiveScore() float32 {
	if c.minScore == nil || c.relation != merger.RelationGTE {
		return 0
	}
	score, _, ok := c.minScore.Get()
	if !ok {
		return 0
	}
	return score
}

// CollectedHits returns the per-sub-query hit counts.
func (c *HybridScoreCollector) CollectedHits() []int {
	return c.collected
}

// MaxScore returns the maximum non-zero sub-query score observed.
func (c *HybridScoreCollector) MaxScore() float32 {
	return c.maxScore
}

// TopDocs drains the per-sub-query queues into ranked results,
// score-descending with ascending doc id on ties.
func (c *HybridScoreCollector) TopDocs() []merger.TopDocsAndMaxScore {
	out := make([]merger.TopDocsAndMaxScore, len(c.queues))
	for i, q := range c.queues {
		docs := q.PopAll()
		var max float32
		if len(docs) > 0 {
			max = docs[0].Score
		}
		out[i] = merger.TopDocsAndMaxScore{
			TopDocs: merger.TopDocs{
				TotalHits: merger.TotalHits{Value: uint64(c.collected[i]), Relation: c.relation},
				ScoreDocs: docs,
			},
			MaxScore: max,
		}
	}
	return out
}
