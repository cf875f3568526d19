// Package merger defines the ranked-result value types (ScoreDoc,
// TopDocs, CompoundTopDocs) and merges per-shard or per-sub-query
// results into a single ranked list.
package merger

// TotalHitsRelation qualifies a total-hits count.
type TotalHitsRelation int

const (
	// RelationEqualTo means the count is exact.
	RelationEqualTo TotalHitsRelation = iota
	// RelationGTE means the count is a lower bound, the consequence of
	// early termination.
	RelationGTE
)

// String returns the wire name of the relation.
func (r TotalHitsRelation) String() string {
	if r == RelationEqualTo {
		return "eq"
	}
	return "gte"
}

// CombineRelations applies the relation algebra: the result is exact
// only when both sides are exact.
func CombineRelations(a, b TotalHitsRelation) TotalHitsRelation {
	if a == RelationEqualTo && b == RelationEqualTo {
		return RelationEqualTo
	}
	return RelationGTE
}

// TotalHits is the qualified hit count of a result.
type TotalHits struct {
	Value    uint64
	Relation TotalHitsRelation
}

// ScoreDoc is one ranked document. ShardIndex is -1 until the
// coordinator assigns shard identities.
type ScoreDoc struct {
	Doc        uint32
	Score      float32
	ShardIndex int32
}

// TopDocs is a ranked result list.
type TopDocs struct {
	TotalHits TotalHits
	ScoreDocs []ScoreDoc
}

// TopDocsAndMaxScore pairs a result list with its maximum score.
type TopDocsAndMaxScore struct {
	TopDocs  TopDocs
	MaxScore float32
}

// CopyScoreDocs deep-copies a ScoreDoc slice; the result never aliases
// the source.
func CopyScoreDocs(docs []ScoreDoc) []ScoreDoc {
	if docs == nil {
		return nil
	}
	out := make([]ScoreDoc, len(docs))
	copy(out, docs)
	return out
}

// CompoundTopDocs is the result of a hybrid query: one TopDocs per
// sub-query plus a canonical TopDocs derived from the largest sub-query
// result.
type CompoundTopDocs struct {
	SubResults []TopDocs
	canonical  TopDocs
}

// NewCompoundTopDocs derives the canonical docs as a deep copy of the
// largest sub-query's ScoreDocs; total hits and relation aggregate over
// every sub-query.
func NewCompoundTopDocs(subResults []TopDocs) *CompoundTopDocs {
	var total uint64
	relation := RelationEqualTo
	largest := -1
	for i, td := range subResults {
		total += td.TotalHits.Value
		relation = CombineRelations(relation, td.TotalHits.Relation)
		if largest < 0 || len(td.ScoreDocs) > len(subResults[largest].ScoreDocs) {
			largest = i
		}
	}

	canonical := TopDocs{TotalHits: TotalHits{Value: total, Relation: relation}}
	if largest >= 0 {
		canonical.ScoreDocs = CopyScoreDocs(subResults[largest].ScoreDocs)
	}

	return &CompoundTopDocs{SubResults: subResults, canonical: canonical}
}

// TopDocs returns the canonical result.
func (c *CompoundTopDocs) TopDocs() TopDocs {
	return c.canonical
}
