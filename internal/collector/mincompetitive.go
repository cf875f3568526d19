package collector

import (
	"math"
	"sync/atomic"
)

// SampleInterval is the bitmask collectors apply to their hit count to
// decide when to consult the shared accumulator: every 1024th hit.
const SampleInterval = 1<<10 - 1

// unsetWord marks an empty accumulator. No packed value collides with
// it: the high word of a real entry is a float's bit pattern, and doc
// bases never fill the low word with all ones.
const unsetWord = int64(-1)

// MinCompetitiveAccumulator shares the rising minimum competitive score
// across every segment of one query. One 64-bit word packs
// (float_bits_of_score << 32) | doc_base so updates can race through a
// lock-free compare-and-swap; the maximum score wins, and equal scores
// keep the minimum doc base.
type MinCompetitiveAccumulator struct {
	word atomic.Int64
}

// NewMinCompetitiveAccumulator creates an empty accumulator.
func NewMinCompetitiveAccumulator() *MinCompetitiveAccumulator {
	acc := &MinCompetitiveAccumulator{}
	acc.word.Store(unsetWord)
	return acc
}

// Pack encodes a (score, docBase) pair into the shared word layout.
func Pack(score float32, docBase uint32) int64 {
	return int64(uint64(math.Float32bits(score))<<32 | uint64(docBase))
}

// Unpack inverts Pack.
func Unpack(word int64) (float32, uint32) {
	return math.Float32frombits(uint32(uint64(word) >> 32)), uint32(uint64(word) & 0xFFFFFFFF)
}

// Accumulate offers a (score, docBase) observation, retaining the
// maximum score; ties break on the minimum doc base.
func (a *MinCompetitiveAccumulator) Accumulate(score float32, docBase uint32) {
	offered := Pack(score, docBase)
	for {
		current := a.word.Load()
		if current != unsetWord {
			curScore, curBase := Unpack(current)
			if curScore > score || (curScore == score && curBase <= docBase) {
				return
			}
		}
		if a.word.CompareAndSwap(current, offered) {
			return
		}
	}
}

// Get returns the retained (score, docBase), with ok false while the
// accumulator is empty.
func (a *MinCompetitiveAccumulator) Get() (score float32, docBase uint32, ok bool) {
	word := a.word.Load()
	if word == unsetWord {
		return 0, 0, false
	}
	score, docBase = Unpack(word)
	return score, docBase, true
}
