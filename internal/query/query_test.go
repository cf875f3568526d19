package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/quantize"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

func queryVector(t *testing.T, weights map[int64]float32) *sparsevec.QueryVector {
	t.Helper()
	q, err := quantize.NewByteQuantizer(1.0)
	require.NoError(t, err)
	v, err := sparsevec.FromWeights(weights, q)
	require.NoError(t, err)
	return sparsevec.NewQueryVector(v)
}

func TestNewContext_SortsByDescendingWeight(t *testing.T) {
	qv := queryVector(t, map[int64]float32{1: 0.2, 2: 0.9, 3: 0.5})

	ctx, err := NewContext(qv, 10, 5, 1.0)
	require.NoError(t, err)

	require.Len(t, ctx.Tokens, 3)
	assert.Equal(t, uint16(2), ctx.Tokens[0].Token)
	assert.Equal(t, uint16(3), ctx.Tokens[1].Token)
	assert.Equal(t, uint16(1), ctx.Tokens[2].Token)
	assert.Equal(t, 5, ctx.K)
}

func TestNewContext_TruncatesToTopN(t *testing.T) {
	qv := queryVector(t, map[int64]float32{1: 0.2, 2: 0.9, 3: 0.5})

	ctx, err := NewContext(qv, 2, 5, 1.0)
	require.NoError(t, err)

	require.Len(t, ctx.Tokens, 2)
	assert.Equal(t, uint16(2), ctx.Tokens[0].Token)
	assert.Equal(t, uint16(3), ctx.Tokens[1].Token)
}

func TestNewContext_Validation(t *testing.T) {
	qv := queryVector(t, map[int64]float32{1: 0.5})

	_, err := NewContext(qv, 0, 5, 1.0)
	assert.True(t, errors.IsInvalidArgument(err))
	_, err = NewContext(qv, 10, 0, 1.0)
	assert.True(t, errors.IsInvalidArgument(err))
	_, err = NewContext(qv, 10, 5, 0)
	assert.True(t, errors.IsInvalidArgument(err))
}

func TestParseNeuralSparse_Defaults(t *testing.T) {
	q, err := ParseNeuralSparse([]byte(`{
		"field": "embedding",
		"query_tokens": {"100": 1.5, "200": 0.5}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "embedding", q.Field)
	assert.Equal(t, DefaultTopN, q.TopN)
	assert.Equal(t, DefaultK, q.K)
	assert.InDelta(t, DefaultHeapFactor, q.HeapFactor, 1e-9)
	assert.Nil(t, q.TwoPhase)
	assert.InDelta(t, 1.5, q.Tokens[100], 1e-6)
}

func TestParseNeuralSparse_MethodParameters(t *testing.T) {
	q, err := ParseNeuralSparse([]byte(`{
		"field": "embedding",
		"query_tokens": {"1": 1.0},
		"method_parameters": {"top_n": 3, "k": 7, "heap_factor": 1.5}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 3, q.TopN)
	assert.Equal(t, 7, q.K)
	assert.InDelta(t, 1.5, q.HeapFactor, 1e-6)
}

func TestParseNeuralSparse_Rejections(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"missing field", `{"query_tokens": {"1": 1.0}}`},
		{"missing tokens", `{"field": "embedding"}`},
		{"negative k", `{"field": "f", "query_tokens": {"1": 1.0}, "method_parameters": {"k": -2}}`},
		{"zero top_n", `{"field": "f", "query_tokens": {"1": 1.0}, "method_parameters": {"top_n": 0}}`},
		{"zero heap_factor", `{"field": "f", "query_tokens": {"1": 1.0}, "method_parameters": {"heap_factor": 0}}`},
		{"bad token id", `{"field": "f", "query_tokens": {"x1": 1.0}}`},
		{"negative token id", `{"field": "f", "query_tokens": {"-3": 1.0}}`},
		{"unknown prune type", `{"field": "f", "query_tokens": {"1": 1.0}, "two_phase_parameter": {"prune_type": "best"}}`},
		{"low expansion", `{"field": "f", "query_tokens": {"1": 1.0}, "two_phase_parameter": {"expansion_rate": 0.5}}`},
		{"small window", `{"field": "f", "query_tokens": {"1": 1.0}, "two_phase_parameter": {"max_window_size": 10}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseNeuralSparse([]byte(tt.in))
			assert.True(t, errors.IsInvalidArgument(err), "got %v", err)
		})
	}
}

func TestParseNeuralSparse_TwoPhaseDefaults(t *testing.T) {
	q, err := ParseNeuralSparse([]byte(`{
		"field": "f",
		"query_tokens": {"1": 1.0},
		"two_phase_parameter": {}
	}`))
	require.NoError(t, err)
	require.NotNil(t, q.TwoPhase)

	assert.Equal(t, PruneMaxRatio, q.TwoPhase.PruneType)
	assert.InDelta(t, 0.4, q.TwoPhase.PruneRatio, 1e-6)
}

func TestWindowSize(t *testing.T) {
	p := &TwoPhaseParams{PruneType: PruneMaxRatio, PruneRatio: 0.4, ExpansionRate: 2.0, MaxWindowSize: 50}
	assert.Equal(t, 20, p.WindowSize(10))

	// expansion_rate 1.0 keeps the window at k: no over-retrieval.
	p = &TwoPhaseParams{PruneType: PruneMaxRatio, PruneRatio: 0.4, ExpansionRate: 1.0, MaxWindowSize: 50}
	assert.Equal(t, 10, p.WindowSize(10))

	p = &TwoPhaseParams{PruneType: PruneMaxRatio, PruneRatio: 0.4, ExpansionRate: 10.0, MaxWindowSize: 50}
	assert.Equal(t, 50, p.WindowSize(10))
}

func TestPrune_MaxRatio(t *testing.T) {
	p := &TwoPhaseParams{PruneType: PruneMaxRatio, PruneRatio: 0.5, ExpansionRate: 2, MaxWindowSize: 50}
	tokens := []TokenWeight{{1, 200}, {2, 120}, {3, 80}}

	high, low := p.Prune(tokens)
	assert.Equal(t, []TokenWeight{{1, 200}, {2, 120}}, high)
	assert.Equal(t, []TokenWeight{{3, 80}}, low)
}

func TestPrune_TopDocs(t *testing.T) {
	p := &TwoPhaseParams{PruneType: PruneTopDocs, PruneRatio: 1, ExpansionRate: 2, MaxWindowSize: 50}
	tokens := []TokenWeight{{1, 200}, {2, 120}}

	high, low := p.Prune(tokens)
	assert.Equal(t, []TokenWeight{{1, 200}}, high)
	assert.Equal(t, []TokenWeight{{2, 120}}, low)
}

func TestPrune_AlphaMass(t *testing.T) {
	p := &TwoPhaseParams{PruneType: PruneAlphaMass, PruneRatio: 0.5, ExpansionRate: 2, MaxWindowSize: 50}
	tokens := []TokenWeight{{1, 100}, {2, 60}, {3, 40}}

	// Total mass 200; the first two reach 160 >= 100 after the first.
	high, low := p.Prune(tokens)
	assert.Equal(t, []TokenWeight{{1, 100}}, high)
	assert.Equal(t, []TokenWeight{{2, 60}, {3, 40}}, low)
}

func TestDense(t *testing.T) {
	buf := Dense([]TokenWeight{{7, 9}, {100, 3}})
	assert.Equal(t, uint8(9), buf[7])
	assert.Equal(t, uint8(3), buf[100])
	assert.Equal(t, uint8(0), buf[8])
}
