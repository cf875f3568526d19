package collector

import (
	"github.com/Aman-CERP/seismicd/internal/merger"
)

// HitQueue is a bounded array-backed binary heap over (doc, score)
// pairs. The root holds the weakest retained hit: lowest score, larger
// doc id on ties, so the final pop order is score-descending with the
// lower doc id winning equal scores.
type HitQueue struct {
	hits     []merger.ScoreDoc
	capacity int
}

// NewHitQueue creates a queue retaining at most capacity hits. The
// backing array is sized once; the queue never re-allocates.
func NewHitQueue(capacity int) *HitQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &HitQueue{
		hits:     make([]merger.ScoreDoc, 0, capacity),
		capacity: capacity,
	}
}

// Len returns the number of retained hits.
func (q *HitQueue) Len() int {
	return len(q.hits)
}

// Full reports whether the queue is at capacity.
func (q *HitQueue) Full() bool {
	return len(q.hits) == q.capacity
}

// Bottom returns the weakest retained hit; ok is false while empty.
func (q *HitQueue) Bottom() (merger.ScoreDoc, bool) {
	if len(q.hits) == 0 {
		return merger.ScoreDoc{}, false
	}
	return q.hits[0], true
}

// WouldAccept reports whether offering a hit with this score could
// change the queue.
func (q *HitQueue) WouldAccept(score float32) bool {
	if !q.Full() {
		return true
	}
	return score >= q.hits[0].Score
}

// Insert offers a hit, evicting the weakest retained hit when full.
// Returns false if the hit was rejected.
func (q *HitQueue) Insert(hit merger.ScoreDoc) bool {
	if len(q.hits) < q.capacity {
		q.hits = append(q.hits, hit)
		q.up(len(q.hits) - 1)
		return true
	}
	if !hitWeaker(q.hits[0], hit) {
		return false
	}
	q.hits[0] = hit
	q.down(0)
	return true
}

// PopAll drains the queue in rank order: descending score, ascending
// doc id on equal scores. The queue is empty afterwards.
func (q *HitQueue) PopAll() []merger.ScoreDoc {
	out := make([]merger.ScoreDoc, len(q.hits))
	for i := len(q.hits) - 1; i >= 0; i-- {
		out[i] = q.hits[0]
		last := len(q.hits) - 1
		q.hits[0] = q.hits[last]
		q.hits = q.hits[:last]
		if last > 0 {
			q.down(0)
		}
	}
	return out
}

// hitWeaker reports whether a ranks below b.
func hitWeaker(a, b merger.ScoreDoc) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Doc > b.Doc
}

func (q *HitQueue) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !hitWeaker(q.hits[i], q.hits[parent]) {
			break
		}
		q.hits[i], q.hits[parent] = q.hits[parent], q.hits[i]
		i = parent
	}
}

func (q *HitQueue) down(i int) {
	n := len(q.hits)
	for {
		left, right := 2*i+1, 2*i+2
		weakest := i
		if left < n && hitWeaker(q.hits[left], q.hits[weakest]) {
			weakest = left
		}
		if right < n && hitWeaker(q.hits[right], q.hits[weakest]) {
			weakest = right
		}
		if weakest == i {
			return
		}
		q.hits[i], q.hits[weakest] = q.hits[weakest], q.hits[i]
		i = weakest
	}
}
