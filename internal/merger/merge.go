package merger

// Comparator orders two score docs; it reports whether a ranks before b.
type Comparator func(a, b ScoreDoc) bool

// ByScoreDesc is the default ordering: descending score, ascending doc
// id on ties.
func ByScoreDesc(a, b ScoreDoc) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.Doc < b.Doc
}

// Merge combines two ranked results into one: the score docs are merged
// under the comparator, total hits sum, the relation follows the
// combine algebra, and the max score is the maximum of both sides.
// Both inputs must already be ordered by the same comparator.
func Merge(source, next TopDocsAndMaxScore, cmp Comparator) TopDocsAndMaxScore {
	if cmp == nil {
		cmp = ByScoreDesc
	}

	a, b := source.TopDocs.ScoreDocs, next.TopDocs.ScoreDocs
	merged := make([]ScoreDoc, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if cmp(b[j], a[i]) {
			merged = append(merged, b[j])
			j++
		} else {
			merged = append(merged, a[i])
			i++
		}
	}
	merged = append(merged, a[i:]...)
	merged = append(merged, b[j:]...)

	maxScore := source.MaxScore
	if next.MaxScore > maxScore {
		maxScore = next.MaxScore
	}

	return TopDocsAndMaxScore{
		TopDocs: TopDocs{
			TotalHits: TotalHits{
				Value:    source.TopDocs.TotalHits.Value + next.TopDocs.TotalHits.Value,
				Relation: CombineRelations(source.TopDocs.TotalHits.Relation, next.TopDocs.TotalHits.Relation),
			},
			ScoreDocs: merged,
		},
		MaxScore: maxScore,
	}
}

// MergeAll folds a sequence of per-shard results under the comparator,
// optionally truncating to size when size is positive.
func MergeAll(results []TopDocsAndMaxScore, cmp Comparator, size int) TopDocsAndMaxScore {
	var out TopDocsAndMaxScore
	for i, r := range results {
		if i == 0 {
			out = r
			continue
		}
		out = Merge(out, r, cmp)
	}
	if size > 0 && len(out.TopDocs.ScoreDocs) > size {
		out.TopDocs.ScoreDocs = out.TopDocs.ScoreDocs[:size]
	}
	return out
}
