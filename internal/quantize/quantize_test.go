package quantize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/seismicd/internal/errors"
)

func TestNewByteQuantizer_RejectsBadCeilings(t *testing.T) {
	for _, ceiling := range []float32{0, -1, float32(math.NaN()), float32(math.Inf(1))} {
		_, err := NewByteQuantizer(ceiling)
		assert.True(t, errors.IsInvalidArgument(err), "ceiling %v", ceiling)
	}
}

func TestQuantize_ClampsAndScales(t *testing.T) {
	q, err := NewByteQuantizer(4.0)
	require.NoError(t, err)

	assert.Equal(t, uint8(0), q.Quantize(-1.0))
	assert.Equal(t, uint8(0), q.Quantize(0))
	assert.Equal(t, uint8(255), q.Quantize(4.0))
	assert.Equal(t, uint8(255), q.Quantize(100.0))
	assert.Equal(t, uint8(127), q.Quantize(2.0))
}

func TestQuantize_RoundTripError(t *testing.T) {
	// For any f in [0, ceiling], |dequantize(quantize(f)) - f| <= ceiling/255.
	const ceiling = 3.7
	q, err := NewByteQuantizer(ceiling)
	require.NoError(t, err)

	for i := 0; i <= 1000; i++ {
		f := float32(i) / 1000 * ceiling
		got := q.Dequantize(q.Quantize(f))
		assert.LessOrEqual(t, math.Abs(float64(got-f)), float64(ceiling)/255+1e-6, "f=%v", f)
	}
}

func TestRescaleFactor(t *testing.T) {
	got := RescaleFactor(2.0, 3.0, 5.0)
	assert.InDelta(t, 2.0*3.0*5.0/255.0/255.0, got, 1e-9)
}

func TestMultiplyUnsigned(t *testing.T) {
	assert.Equal(t, uint32(65025), MultiplyUnsigned(255, 255))
	assert.Equal(t, uint32(0), MultiplyUnsigned(0, 255))
	assert.Equal(t, uint32(6), MultiplyUnsigned(2, 3))
}
