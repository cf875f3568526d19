// Package quantize maps float sparse-vector weights into unsigned bytes
// and provides the integer dot-product helpers used by the scorers.
package quantize

import (
	"math"

	"github.com/Aman-CERP/seismicd/internal/errors"
)

// MaxByteWeight is the top of the quantized range.
const MaxByteWeight = 255

// ByteQuantizer linearly maps [0, ceiling] onto [0, 255] with clamping.
type ByteQuantizer struct {
	ceiling float32
}

// NewByteQuantizer creates a quantizer for the given ceiling.
// The ceiling must be a positive finite number.
func NewByteQuantizer(ceiling float32) (*ByteQuantizer, error) {
	if math.IsNaN(float64(ceiling)) || math.IsInf(float64(ceiling), 0) || ceiling <= 0 {
		return nil, errors.InvalidArgumentf("quantization ceiling must be positive, got %v", ceiling)
	}
	return &ByteQuantizer{ceiling: ceiling}, nil
}

// Ceiling returns the configured ceiling.
func (q *ByteQuantizer) Ceiling() float32 {
	return q.ceiling
}

// Quantize maps f into the byte range. Inputs below 0 map to 0, inputs
// at or above the ceiling map to 255.
func (q *ByteQuantizer) Quantize(f float32) uint8 {
	if f <= 0 || math.IsNaN(float64(f)) {
		return 0
	}
	if f >= q.ceiling {
		return MaxByteWeight
	}
	return uint8(f / q.ceiling * MaxByteWeight)
}

// Dequantize recovers the approximate float weight of a quantized byte.
func (q *ByteQuantizer) Dequantize(b uint8) float32 {
	return float32(b) / MaxByteWeight * q.ceiling
}

// RescaleFactor converts an integer byte-quantized dot product back to
// the approximate float-domain score: boost * ceilIngest * ceilSearch / 255^2.
func RescaleFactor(boost, ceilIngest, ceilSearch float32) float32 {
	return boost * ceilIngest * ceilSearch / MaxByteWeight / MaxByteWeight
}

// MultiplyUnsigned returns the unsigned product of two byte weights.
func MultiplyUnsigned(a, b uint8) uint32 {
	return uint32(a) * uint32(b)
}
