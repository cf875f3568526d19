// Package sparsevec implements the sparse vector value type: an ordered
// list of (token, byte-weight) items with dense materialization and
// integer dot products against a dense query buffer.
package sparsevec

import (
	"sort"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/quantize"
)

// DenseSize is the length of a materialized dense buffer: one slot per
// possible token id in the short range.
const DenseSize = 1 << 16

// Item is a single non-zero entry of a sparse vector.
type Item struct {
	Token  uint16
	Weight uint8
}

// SparseVector is an immutable ordered sequence of items, strictly
// ascending by token. The empty vector is legal; its dot product is 0.
type SparseVector struct {
	items []Item
}

// New creates a SparseVector from items that must already be strictly
// ascending by token. Duplicates and disorder are rejected.
func New(items []Item) (*SparseVector, error) {
	for i := 1; i < len(items); i++ {
		if items[i].Token <= items[i-1].Token {
			return nil, errors.InvalidArgumentf(
				"sparse vector tokens must be strictly increasing: %d after %d",
				items[i].Token, items[i-1].Token)
		}
	}
	return &SparseVector{items: items}, nil
}

// FromWeights builds a SparseVector from raw (token id, float weight)
// pairs. Token ids are normalized into the short range; collisions keep
// the maximum weight. Negative token ids are rejected.
func FromWeights(weights map[int64]float32, q *quantize.ByteQuantizer) (*SparseVector, error) {
	byToken := make(map[uint16]float32, len(weights))
	for token, weight := range weights {
		if token < 0 {
			return nil, errors.InvalidArgumentf("token id must be non-negative, got %d", token)
		}
		short := TokenForShortRange(token)
		if existing, ok := byToken[short]; !ok || weight > existing {
			byToken[short] = weight
		}
	}

	items := make([]Item, 0, len(byToken))
	for token, weight := range byToken {
		if b := q.Quantize(weight); b > 0 {
			items = append(items, Item{Token: token, Weight: b})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Token < items[j].Token })

	return &SparseVector{items: items}, nil
}

// TokenForShortRange normalizes a token id into the short-type range by
// taking its lowest 16 bits.
func TokenForShortRange(token int64) uint16 {
	return uint16(token & 0xFFFF)
}

// Items returns the items in ascending token order. The returned slice
// must not be mutated.
func (v *SparseVector) Items() []Item {
	return v.items
}

// Size returns the number of non-zero entries.
func (v *SparseVector) Size() int {
	return len(v.items)
}

// Weight returns the byte weight of the given token, 0 when absent.
func (v *SparseVector) Weight(token uint16) uint8 {
	i := sort.Search(len(v.items), func(i int) bool { return v.items[i].Token >= token })
	if i < len(v.items) && v.items[i].Token == token {
		return v.items[i].Weight
	}
	return 0
}

// Dense materializes the vector as a dense byte buffer of length 65536
// where buffer[token] = weight.
func (v *SparseVector) Dense() []uint8 {
	buf := make([]uint8, DenseSize)
	for _, item := range v.items {
		buf[item.Token] = item.Weight
	}
	return buf
}

// Dot computes the integer dot product against a dense query buffer,
// accumulated as uint32. Each term is at most 255*255.
func (v *SparseVector) Dot(dense []uint8) uint32 {
	var sum uint32
	for _, item := range v.items {
		sum += quantize.MultiplyUnsigned(item.Weight, dense[item.Token])
	}
	return sum
}
