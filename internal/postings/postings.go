// Package postings implements the per-token clustered posting lists at
// the heart of the SEISMIC index: each token's posting is split into
// document clusters carrying a pruned summary vector used for skip
// decisions at query time.
package postings

import (
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Posting is one (doc, weight) entry of a token's posting list.
type Posting struct {
	DocID  uint32
	Weight uint8
}

// DocumentCluster groups a contiguous run of a token's posting under a
// representative summary vector.
//
// Invariants: postings are strictly ascending by doc id and unique
// within the cluster; the summary never has more entries than the
// cluster's source postings contributed.
type DocumentCluster struct {
	Summary       *sparsevec.SparseVector
	Postings      []Posting
	ShouldNotSkip bool
}

// Validate checks the cluster invariants.
func (c *DocumentCluster) Validate() error {
	for i := 1; i < len(c.Postings); i++ {
		if c.Postings[i].DocID <= c.Postings[i-1].DocID {
			return errors.InvalidState("cluster postings must be strictly ascending by doc id")
		}
	}
	return nil
}

// PostingClusters is the ordered sequence of clusters for one
// (field, token) pair. The union of the clusters' postings covers
// exactly the token's full posting on the segment; readers must not
// assume any score ordering among clusters, only the order fixed at
// build time.
type PostingClusters struct {
	clusters []*DocumentCluster
}

// NewPostingClusters wraps a build-ordered cluster sequence.
func NewPostingClusters(clusters []*DocumentCluster) *PostingClusters {
	return &PostingClusters{clusters: clusters}
}

// Len returns the number of clusters.
func (p *PostingClusters) Len() int {
	return len(p.clusters)
}

// Iterator returns a forward-only iterator over the clusters in their
// stored order.
func (p *PostingClusters) Iterator() *ClusterIterator {
	return &ClusterIterator{clusters: p.clusters}
}

// ClusterIterator traverses clusters sequentially. It does not support
// advancing by target; the posting order is fixed at build time and
// carries no doc-id meaning across clusters.
type ClusterIterator struct {
	clusters []*DocumentCluster
	pos      int
}

// Next returns the next cluster, or nil when exhausted.
func (it *ClusterIterator) Next() *DocumentCluster {
	if it.pos >= len(it.clusters) {
		return nil
	}
	c := it.clusters[it.pos]
	it.pos++
	return c
}

// Store holds the posting clusters of one segment, keyed by field and
// token.
type Store struct {
	byField map[string]map[uint16]*PostingClusters
}

// NewStore creates an empty posting store.
func NewStore() *Store {
	return &Store{byField: make(map[string]map[uint16]*PostingClusters)}
}

// Put registers the clusters for a (field, token) pair.
func (s *Store) Put(field string, token uint16, clusters *PostingClusters) {
	tokens, ok := s.byField[field]
	if !ok {
		tokens = make(map[uint16]*PostingClusters)
		s.byField[field] = tokens
	}
	tokens[token] = clusters
}

// Clusters returns the posting clusters for a (field, token) pair.
// The second result is false if the token was never posted.
func (s *Store) Clusters(field string, token uint16) (*PostingClusters, bool) {
	tokens, ok := s.byField[field]
	if !ok {
		return nil, false
	}
	clusters, ok := tokens[token]
	return clusters, ok
}

// HasField reports whether any token was posted for the field.
func (s *Store) HasField(field string) bool {
	tokens, ok := s.byField[field]
	return ok && len(tokens) > 0
}

// Tokens returns the number of posted tokens for a field.
func (s *Store) Tokens(field string) int {
	return len(s.byField[field])
}
