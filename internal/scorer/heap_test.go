package scorer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreHeap_KeepsStrongest(t *testing.T) {
	h := NewScoreHeap(3)

	h.Insert(1, 10)
	h.Insert(2, 30)
	assert.False(t, h.Full())
	h.Insert(3, 20)
	assert.True(t, h.Full())
	assert.Equal(t, uint32(10), h.Min())

	// Stronger entry evicts the weakest.
	h.Insert(4, 40)
	assert.Equal(t, uint32(20), h.Min())

	// Weaker entry is ignored.
	h.Insert(5, 5)
	assert.Equal(t, uint32(20), h.Min())
}

func TestScoreHeap_EqualScoresKeepSmallerDoc(t *testing.T) {
	h := NewScoreHeap(1)

	h.Insert(7, 50)
	// Equal score, larger doc: the retained smaller doc stays.
	h.Insert(9, 50)
	assert.Equal(t, uint32(50), h.Min())

	// Equal score, smaller doc: wins the tie-break.
	h.Insert(3, 50)
	assert.Equal(t, 1, h.Len())
}

func TestScoreHeap_QueueFullAtFirstInsert(t *testing.T) {
	// Capacity 1 exercises the "full at first insert" path.
	h := NewScoreHeap(1)
	h.Insert(5, 100)
	assert.True(t, h.Full())
	assert.Equal(t, uint32(100), h.Min())

	h.Insert(6, 200)
	assert.Equal(t, uint32(200), h.Min())
}

func TestSortableFloatBits_PreservesOrder(t *testing.T) {
	values := []float32{float32(math.Inf(-1)), -100, -1, -0.001, 0, 0.001, 1, 100, float32(math.Inf(1))}
	for i := 1; i < len(values); i++ {
		assert.Less(t, SortableFloatBits(values[i-1]), SortableFloatBits(values[i]),
			"%v vs %v", values[i-1], values[i])
	}
}

func TestSortableFloatBits_RoundTrip(t *testing.T) {
	for _, f := range []float32{0, 1.5, -2.25, 1e-9, -1e9, math.MaxFloat32} {
		assert.Equal(t, f, FloatFromSortableBits(SortableFloatBits(f)))
	}
}

func TestPackScoreDoc_OrdersByScoreThenSmallerDoc(t *testing.T) {
	// Higher score packs greater.
	assert.Greater(t, PackScoreDoc(2.0, 5), PackScoreDoc(1.0, 1))
	// Equal scores: smaller doc packs greater, so it survives a max.
	assert.Greater(t, PackScoreDoc(1.0, 3), PackScoreDoc(1.0, 8))
	// Negative scores still order correctly.
	assert.Greater(t, PackScoreDoc(-1.0, 0), PackScoreDoc(-2.0, 0))
}

func TestPackScoreDoc_RoundTripBoundaries(t *testing.T) {
	cases := []struct {
		score float32
		doc   uint32
	}{
		{0, 0},
		{0, math.MaxInt32},
		{-0.5, 42},
		{math.MaxFloat32, 1},
		{-math.MaxFloat32, math.MaxInt32 - 1},
	}
	for _, c := range cases {
		score, doc := UnpackScoreDoc(PackScoreDoc(c.score, c.doc))
		assert.Equal(t, c.score, score)
		assert.Equal(t, c.doc, doc)
	}
}

func TestPackedHeap_RetainsTopWindow(t *testing.T) {
	h := newPackedHeap(2)
	h.insert(PackScoreDoc(1.0, 1))
	h.insert(PackScoreDoc(3.0, 3))
	h.insert(PackScoreDoc(2.0, 2))

	var docs []uint32
	for _, key := range h.keys {
		_, doc := UnpackScoreDoc(key)
		docs = append(docs, doc)
	}
	assert.ElementsMatch(t, []uint32{2, 3}, docs)
}
