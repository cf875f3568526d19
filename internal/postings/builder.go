package postings

import (
	"math"
	"sort"

	"github.com/Aman-CERP/seismicd/internal/config"
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// VectorReader resolves a doc id to its forward vector during cluster
// building. Every posted doc must resolve; clusters only reference live
// docs at build time.
type VectorReader func(docID uint32) (*sparsevec.SparseVector, error)

// Build clusters a token's posting list.
//
// The posting is first capped to the n_postings highest weighted
// entries. Postings shorter than approximate_threshold become a single
// always-entered cluster. Otherwise the posting is split into contiguous
// clusters of ceil(len / ceil(len * cluster_ratio)) entries each (so at
// most ceil(len * cluster_ratio) clusters; the last one may be shorter),
// each carrying an alpha-pruned summary built from the member docs'
// forward vectors.
func Build(postings []Posting, read VectorReader, params config.MethodParameters) (*PostingClusters, error) {
	if len(postings) == 0 {
		return NewPostingClusters(nil), nil
	}

	entries := make([]Posting, len(postings))
	copy(entries, postings)

	// Cap to the strongest n_postings entries, then restore doc order.
	if uint32(len(entries)) > params.NPostings {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].Weight > entries[j].Weight })
		entries = entries[:params.NPostings]
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DocID < entries[j].DocID })
	for i := 1; i < len(entries); i++ {
		if entries[i].DocID == entries[i-1].DocID {
			return nil, errors.InvalidState("duplicate doc id in posting list")
		}
	}

	if uint32(len(entries)) < params.ApproximateThreshold {
		cluster, err := buildCluster(entries, read, params.SummaryPruneRatio)
		if err != nil {
			return nil, err
		}
		cluster.ShouldNotSkip = true
		return NewPostingClusters([]*DocumentCluster{cluster}), nil
	}

	numClusters := int(math.Ceil(float64(float32(len(entries)) * params.ClusterRatio)))
	if numClusters < 1 {
		numClusters = 1
	}
	size := (len(entries) + numClusters - 1) / numClusters

	clusters := make([]*DocumentCluster, 0, numClusters)
	for start := 0; start < len(entries); start += size {
		end := start + size
		if end > len(entries) {
			end = len(entries)
		}
		cluster, err := buildCluster(entries[start:end], read, params.SummaryPruneRatio)
		if err != nil {
			return nil, err
		}
		clusters = append(clusters, cluster)
	}
	return NewPostingClusters(clusters), nil
}

// buildCluster assembles one cluster: the member postings plus the
// pruned summary.
func buildCluster(members []Posting, read VectorReader, alpha float32) (*DocumentCluster, error) {
	maxWeights := make(map[uint16]uint8)
	for _, p := range members {
		vec, err := read(p.DocID)
		if err != nil {
			return nil, err
		}
		if vec == nil {
			return nil, errors.InvalidState("posted doc missing from forward index")
		}
		for _, item := range vec.Items() {
			if item.Weight > maxWeights[item.Token] {
				maxWeights[item.Token] = item.Weight
			}
		}
	}

	summary, err := pruneSummary(maxWeights, alpha, len(members))
	if err != nil {
		return nil, err
	}

	cluster := &DocumentCluster{
		Summary:  summary,
		Postings: append([]Posting(nil), members...),
	}
	if err := cluster.Validate(); err != nil {
		return nil, err
	}
	return cluster, nil
}

// pruneSummary keeps the highest weights until their cumulative mass
// reaches alpha of the total, capped so the summary never exceeds the
// cluster's posting cardinality.
func pruneSummary(maxWeights map[uint16]uint8, alpha float32, maxSize int) (*sparsevec.SparseVector, error) {
	items := make([]sparsevec.Item, 0, len(maxWeights))
	var total float64
	for token, weight := range maxWeights {
		items = append(items, sparsevec.Item{Token: token, Weight: weight})
		total += float64(weight)
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Weight != items[j].Weight {
			return items[i].Weight > items[j].Weight
		}
		return items[i].Token < items[j].Token
	})

	var mass float64
	kept := 0
	for _, item := range items {
		if kept >= maxSize {
			break
		}
		if kept > 0 && mass >= float64(alpha)*total {
			break
		}
		mass += float64(item.Weight)
		kept++
	}

	pruned := items[:kept]
	sort.Slice(pruned, func(i, j int) bool { return pruned[i].Token < pruned[j].Token })
	return sparsevec.New(pruned)
}
