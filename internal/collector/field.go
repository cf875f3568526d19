package collector

import (
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/merger"
)

// SortType is the numeric type of a sort field.
type SortType int

const (
	SortInt SortType = iota
	SortLong
	SortFloat
	SortDouble
)

// WidenSortType reconciles mismatched mappings across shards: Int widens
// to Long, Float widens to Double, and a mixed integer/floating pair
// widens to Double.
func WidenSortType(a, b SortType) SortType {
	if a == b {
		return a
	}
	integer := func(t SortType) bool { return t == SortInt || t == SortLong }
	if integer(a) && integer(b) {
		return SortLong
	}
	return SortDouble
}

// SortField is one sort criterion. Reverse flips the comparison.
type SortField struct {
	Type    SortType
	Reverse bool
}

// FieldDoc is a document with its sort-field values, widened to the
// double domain.
type FieldDoc struct {
	Doc    uint32
	Values []float64
}

// compareFieldDocs orders a against b under the sort: negative when a
// ranks before b. Ties break on ascending doc id.
func compareFieldDocs(sort []SortField, a, b FieldDoc) int {
	for i, sf := range sort {
		mul := 1.0
		if sf.Reverse {
			mul = -1.0
		}
		diff := (a.Values[i] - b.Values[i]) * mul
		if diff < 0 {
			return -1
		}
		if diff > 0 {
			return 1
		}
	}
	if a.Doc != b.Doc {
		if a.Doc < b.Doc {
			return -1
		}
		return 1
	}
	return 0
}

// FieldHitQueue is a bounded heap over field docs, weakest at the root.
type FieldHitQueue struct {
	sort     []SortField
	docs     []FieldDoc
	capacity int
}

// NewFieldHitQueue creates a queue for the sort with fixed capacity.
func NewFieldHitQueue(sort []SortField, capacity int) *FieldHitQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FieldHitQueue{
		sort:     sort,
		docs:     make([]FieldDoc, 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of retained docs.
func (q *FieldHitQueue) Len() int { return len(q.docs) }

// Full reports whether the queue is at capacity.
func (q *FieldHitQueue) Full() bool { return len(q.docs) == q.capacity }

// Bottom returns the weakest retained doc.
func (q *FieldHitQueue) Bottom() (FieldDoc, bool) {
	if len(q.docs) == 0 {
		return FieldDoc{}, false
	}
	return q.docs[0], true
}

// Insert offers a doc, evicting the weakest when full.
func (q *FieldHitQueue) Insert(doc FieldDoc) bool {
	if len(q.docs) < q.capacity {
		q.docs = append(q.docs, doc)
		q.up(len(q.docs) - 1)
		return true
	}
	// The root is the weakest: a doc ranking at or after it is rejected.
	if compareFieldDocs(q.sort, doc, q.docs[0]) >= 0 {
		return false
	}
	q.docs[0] = doc
	q.down(0)
	return true
}

// PopAll drains the queue in rank order.
func (q *FieldHitQueue) PopAll() []FieldDoc {
	out := make([]FieldDoc, len(q.docs))
	for i := len(q.docs) - 1; i >= 0; i-- {
		out[i] = q.docs[0]
		last := len(q.docs) - 1
		q.docs[0] = q.docs[last]
		q.docs = q.docs[:last]
		if last > 0 {
			q.down(0)
		}
	}
	return out
}

// fieldWeaker reports whether a ranks below b (later in the sort).
func (q *FieldHitQueue) fieldWeaker(a, b FieldDoc) bool {
	return compareFieldDocs(q.sort, a, b) > 0
}

func (q *FieldHitQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.fieldWeaker(q.docs[i], q.docs[parent]) {
			break
		}
		q.docs[i], q.docs[parent] = q.docs[parent], q.docs[i]
		i = parent
	}
}

func (q *FieldHitQueue) down(i int) {
	n := len(q.docs)
	for {
		left, right := 2*i+1, 2*i+2
		weakest := i
		if left < n && q.fieldWeaker(q.docs[left], q.docs[weakest]) {
			weakest = left
		}
		if right < n && q.fieldWeaker(q.docs[right], q.docs[weakest]) {
			weakest = right
		}
		if weakest == i {
			return
		}
		q.docs[i], q.docs[weakest] = q.docs[weakest], q.docs[i]
		i = weakest
	}
}

// HybridFieldCollector mirrors HybridScoreCollector for sorted hybrid
// queries: one field-value queue per sub-query, with search-after
// paging.
type HybridFieldCollector struct {
	numHits int
	sort    []SortField
	checker *HitsThresholdChecker

	// after resumes paging: docs sorting at or before it are skipped.
	after *FieldDoc

	queues    []*FieldHitQueue
	collected []int
	relation  merger.TotalHitsRelation

	indexSortPrefix bool
	docBase         uint32
}

// NewHybridFieldCollector creates a sorted hybrid collector. after may
// be nil for the first page.
func NewHybridFieldCollector(numHits int, sort []SortField, checker *HitsThresholdChecker, after *FieldDoc) (*HybridFieldCollector, error) {
	if numHits < 1 {
		return nil, errors.InvalidArgumentf("numHits must be positive, got %d", numHits)
	}
	if len(sort) == 0 {
		return nil, errors.InvalidArgument("sort criteria are required")
	}
	if checker == nil {
		return nil, errors.InvalidArgument("hits threshold checker is required")
	}
	return &HybridFieldCollector{
		numHits:  numHits,
		sort:     sort,
		checker:  checker,
		after:    after,
		relation: merger.RelationEqualTo,
	}, nil
}

// EnableIndexSortPrefix turns on early termination.
func (c *HybridFieldCollector) EnableIndexSortPrefix() {
	c.indexSortPrefix = true
}

// SetDocBase positions the collector at a new segment.
func (c *HybridFieldCollector) SetDocBase(docBase uint32) {
	c.docBase = docBase
}

func (c *HybridFieldCollector) ensureQueues(subQueries int) error {
	if c.queues != nil {
		if len(c.queues) != subQueries {
			return errors.InvalidState("sub-query count changed mid-collection")
		}
		return nil
	}
	c.queues = make([]*FieldHitQueue, subQueries)
	c.collected = make([]int, subQueries)
	for i := range c.queues {
		c.queues[i] = NewFieldHitQueue(c.sort, c.numHits)
	}
	return nil
}

// Collect records a document. hits[i] marks whether sub-query i matched
// the doc; values are the doc's sort-field values.
func (c *HybridFieldCollector) Collect(doc uint32, hits []bool, values []float64) error {
	if err := c.ensureQueues(len(hits)); err != nil {
		return err
	}
	if len(values) != len(c.sort) {
		return errors.InvalidState("sort value count does not match sort criteria")
	}

	fd := FieldDoc{Doc: c.docBase + doc, Values: values}

	// Paging: anything at or before the resume point is skipped.
	if c.after != nil && compareFieldDocs(c.sort, fd, *c.after) <= 0 {
		return nil
	}

	if c.indexSortPrefix && c.relation == merger.RelationGTE && !c.couldImprove(fd, hits) {
		return errors.ErrTerminated
	}

	for i, hit := range hits {
		if !hit {
			continue
		}
		c.collected[i]++
		c.queues[i].Insert(fd)
	}

	c.checker.IncrementHitCount()
	if c.checker.count > c.checker.threshold {
		c.relation = merger.RelationGTE
	}
	return nil
}

func (c *HybridFieldCollector) couldImprove(fd FieldDoc, hits []bool) bool {
	for i, hit := range hits {
		if !hit {
			continue
		}
		q := c.queues[i]
		if !q.Full() {
			return true
		}
		bottom, _ := q.Bottom()
		if compareFieldDocs(c.sort, fd, bottom) < 0 {
			return true
		}
	}
	return false
}

// TopDocs drains the per-sub-query queues. Scores are NaN-free zeros;
// rank is carried by the sort values.
func (c *HybridFieldCollector) TopDocs() []merger.TopDocsAndMaxScore {
	out := make([]merger.TopDocsAndMaxScore, len(c.queues))
	for i, q := range c.queues {
		fieldDocs := q.PopAll()
		docs := make([]merger.ScoreDoc, len(fieldDocs))
		for j, fd := range fieldDocs {
			docs[j] = merger.ScoreDoc{Doc: fd.Doc, ShardIndex: -1}
		}
		out[i] = merger.TopDocsAndMaxScore{
			TopDocs: merger.TopDocs{
				TotalHits: merger.TotalHits{Value: uint64(c.collected[i]), Relation: c.relation},
				ScoreDocs: docs,
			},
		}
	}
	return out
}
