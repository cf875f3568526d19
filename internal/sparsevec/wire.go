package sparsevec

import (
	"encoding/json"
	"strconv"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/quantize"
)

// ParseWire parses the ingest wire representation of a sparse field
// value: a JSON object mapping decimal token-id strings to positive
// float weights, quantized with the field's ingest ceiling.
func ParseWire(data []byte, q *quantize.ByteQuantizer) (*SparseVector, error) {
	var raw map[string]float32
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.KindInvalidArgument, "sparse field value must be a JSON object of token to weight", err)
	}

	weights := make(map[int64]float32, len(raw))
	for key, weight := range raw {
		token, err := strconv.ParseInt(key, 10, 64)
		if err != nil || token < 0 {
			return nil, errors.InvalidArgumentf("token id must be a non-negative integer, got %q", key)
		}
		if weight <= 0 {
			return nil, errors.InvalidArgumentf("token %s weight must be positive, got %v", key, weight)
		}
		// Short-range collisions aggregate by max inside FromWeights.
		if existing, ok := weights[token]; !ok || weight > existing {
			weights[token] = weight
		}
	}

	return FromWeights(weights, q)
}

// QueryVector is a sparse vector plus its dense materialization, kept
// for O(|doc|) dot products during scoring.
type QueryVector struct {
	vec   *SparseVector
	dense []uint8
}

// NewQueryVector materializes the dense buffer for a query-side vector.
func NewQueryVector(vec *SparseVector) *QueryVector {
	return &QueryVector{vec: vec, dense: vec.Dense()}
}

// Vector returns the underlying sparse vector.
func (qv *QueryVector) Vector() *SparseVector {
	return qv.vec
}

// Dense returns the dense buffer. The returned slice must not be mutated.
func (qv *QueryVector) Dense() []uint8 {
	return qv.dense
}
