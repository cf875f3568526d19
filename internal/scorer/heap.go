package scorer

import "math"

// scoreEntry is one (doc, integer score) pair in the skip-decision heap.
type scoreEntry struct {
	doc   uint32
	score uint32
}

// ScoreHeap is a bounded array-backed min-heap over (doc, integer score)
// pairs, used by the SEISMIC scorer to maintain a running top-k estimate
// for cluster-skip decisions. The root holds the weakest retained entry.
// Equal scores tie-break by smaller doc id: the smaller doc is the
// stronger entry and survives.
type ScoreHeap struct {
	entries  []scoreEntry
	capacity int
}

// NewScoreHeap creates a heap retaining at most capacity entries.
func NewScoreHeap(capacity int) *ScoreHeap {
	if capacity < 1 {
		capacity = 1
	}
	return &ScoreHeap{
		entries:  make([]scoreEntry, 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of retained entries.
func (h *ScoreHeap) Len() int {
	return len(h.entries)
}

// Full reports whether the heap has reached capacity.
func (h *ScoreHeap) Full() bool {
	return len(h.entries) == h.capacity
}

// Min returns the weakest retained score, or 0 when empty.
func (h *ScoreHeap) Min() uint32 {
	if len(h.entries) == 0 {
		return 0
	}
	return h.entries[0].score
}

// Insert offers an entry. When full, the entry replaces the root only if
// it is stronger than the weakest retained entry.
func (h *ScoreHeap) Insert(doc uint32, score uint32) {
	entry := scoreEntry{doc: doc, score: score}
	if len(h.entries) < h.capacity {
		h.entries = append(h.entries, entry)
		h.up(len(h.entries) - 1)
		return
	}
	if !weaker(h.entries[0], entry) {
		return
	}
	h.entries[0] = entry
	h.down(0)
}

// weaker reports whether a loses to b: lower score, or equal score with
// a larger doc id.
func weaker(a, b scoreEntry) bool {
	if a.score != b.score {
		return a.score < b.score
	}
	return a.doc > b.doc
}

func (h *ScoreHeap) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !weaker(h.entries[i], h.entries[parent]) {
			break
		}
		h.entries[i], h.entries[parent] = h.entries[parent], h.entries[i]
		i = parent
	}
}

func (h *ScoreHeap) down(i int) {
	n := len(h.entries)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && weaker(h.entries[left], h.entries[smallest]) {
			smallest = left
		}
		if right < n && weaker(h.entries[right], h.entries[smallest]) {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.entries[i], h.entries[smallest] = h.entries[smallest], h.entries[i]
		i = smallest
	}
}

// SortableFloatBits maps a float32 onto an unsigned order-preserving
// integer: larger floats map to larger integers across the sign split.
func SortableFloatBits(f float32) uint32 {
	bits := math.Float32bits(f)
	if bits&0x80000000 != 0 {
		return ^bits
	}
	return bits | 0x80000000
}

// FloatFromSortableBits inverts SortableFloatBits.
func FloatFromSortableBits(bits uint32) float32 {
	if bits&0x80000000 != 0 {
		return math.Float32frombits(bits &^ 0x80000000)
	}
	return math.Float32frombits(^bits)
}

// PackScoreDoc encodes a (score, doc) pair into one int64 key ordered by
// score first, then by smaller doc id:
// (sortable_float_bits(score) << 32) | (MaxInt32 - doc), with the top bit
// flipped so that signed int64 order matches score order across signs.
// Equal scores compare by the negated doc, so the smaller doc id wins.
func PackScoreDoc(score float32, doc uint32) int64 {
	return int64(uint64(SortableFloatBits(score)^0x80000000)<<32 | uint64(uint32(math.MaxInt32)-doc))
}

// UnpackScoreDoc inverts PackScoreDoc.
func UnpackScoreDoc(key int64) (float32, uint32) {
	score := FloatFromSortableBits(uint32(uint64(key)>>32) ^ 0x80000000)
	doc := uint32(math.MaxInt32) - uint32(uint64(key)&0xFFFFFFFF)
	return score, doc
}

// packedHeap is a bounded min-heap over packed (score, doc) keys, used
// to retain the phase-one window of the two-phase scorer.
type packedHeap struct {
	keys     []int64
	capacity int
}

func newPackedHeap(capacity int) *packedHeap {
	if capacity < 1 {
		capacity = 1
	}
	return &packedHeap{keys: make([]int64, 0, capacity), capacity: capacity}
}

func (h *packedHeap) insert(key int64) {
	if len(h.keys) < h.capacity {
		h.keys = append(h.keys, key)
		i := len(h.keys) - 1
		for i > 0 {
			parent := (i - 1) / 2
			if h.keys[i] >= h.keys[parent] {
				break
			}
			h.keys[i], h.keys[parent] = h.keys[parent], h.keys[i]
			i = parent
		}
		return
	}
	if key <= h.keys[0] {
		return
	}
	h.keys[0] = key
	i, n := 0, len(h.keys)
	for {
		left, right := 2*i+1, 2*i+2
		smallest := i
		if left < n && h.keys[left] < h.keys[smallest] {
			smallest = left
		}
		if right < n && h.keys[right] < h.keys[smallest] {
			smallest = right
		}
		if smallest == i {
			return
		}
		h.keys[i], h.keys[smallest] = h.keys[smallest], h.keys[i]
		i = smallest
	}
}
