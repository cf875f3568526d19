// Package forward implements the per-segment forward index mapping
// doc id to sparse vector, together with the cache-gated reader used on
// the search path.
package forward

import (
	"sort"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Reader reads sparse vectors by doc id. A nil vector with nil error
// means the document does not exist in this segment or has no value for
// this field.
type Reader interface {
	Read(docID uint32) (*sparsevec.SparseVector, error)
}

// Index is the in-memory forward index for one (field, segment) pair.
// It is built at flush or merge time and closed when the segment is
// released.
type Index struct {
	field   string
	vectors map[uint32]*sparsevec.SparseVector
	closed  bool
}

// NewIndex creates an empty forward index for the given field.
func NewIndex(field string) *Index {
	return &Index{
		field:   field,
		vectors: make(map[uint32]*sparsevec.SparseVector),
	}
}

// Field returns the field this index belongs to.
func (idx *Index) Field() string {
	return idx.field
}

// Write stores the vector for a doc id, replacing any previous value.
func (idx *Index) Write(docID uint32, vec *sparsevec.SparseVector) error {
	if idx.closed {
		return errors.InvalidState("write to closed forward index")
	}
	if vec == nil {
		return errors.InvalidArgument("forward index value must not be nil")
	}
	idx.vectors[docID] = vec
	return nil
}

// Read implements Reader.
func (idx *Index) Read(docID uint32) (*sparsevec.SparseVector, error) {
	if idx.closed {
		return nil, errors.InvalidState("read from closed forward index")
	}
	return idx.vectors[docID], nil
}

// Docs returns the indexed doc ids in ascending order.
func (idx *Index) Docs() []uint32 {
	docs := make([]uint32, 0, len(idx.vectors))
	for docID := range idx.vectors {
		docs = append(docs, docID)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i] < docs[j] })
	return docs
}

// Size returns the number of indexed documents.
func (idx *Index) Size() int {
	return len(idx.vectors)
}

// Close releases the index. Subsequent reads fail with InvalidState.
func (idx *Index) Close() {
	idx.closed = true
	idx.vectors = nil
}

// NoopReader is the reader for segments lacking sparse data; every
// lookup reports an absent document.
type NoopReader struct{}

// Read implements Reader.
func (NoopReader) Read(uint32) (*sparsevec.SparseVector, error) {
	return nil, nil
}
