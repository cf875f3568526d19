// Package query parses the neural_sparse query DSL and builds the
// immutable per-execution query context consumed by the scorers.
package query

import (
	"encoding/json"
	"sort"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Defaults applied when method_parameters are omitted.
const (
	DefaultTopN       = 10
	DefaultK          = 10
	DefaultHeapFactor = 1.0
)

// TokenWeight is one query token with its quantized weight.
type TokenWeight struct {
	Token  uint16
	Weight uint8
}

// Context is the immutable sparse query context: the up-to-top-n query
// tokens with non-zero weights sorted by descending weight, the desired
// k, and the heap factor controlling cluster skipping.
type Context struct {
	Tokens     []TokenWeight
	K          int
	HeapFactor float32
}

// NewContext builds a Context from a query vector. Tokens are ordered by
// descending weight (ascending token id on equal weight) and truncated
// to topN.
func NewContext(qv *sparsevec.QueryVector, topN, k int, heapFactor float32) (*Context, error) {
	if topN <= 0 {
		return nil, errors.InvalidArgumentf("top_n must be positive, got %d", topN)
	}
	if k <= 0 {
		return nil, errors.InvalidArgumentf("k must be positive, got %d", k)
	}
	if heapFactor <= 0 {
		return nil, errors.InvalidArgumentf("heap_factor must be positive, got %v", heapFactor)
	}

	items := qv.Vector().Items()
	tokens := make([]TokenWeight, 0, len(items))
	for _, item := range items {
		tokens = append(tokens, TokenWeight{Token: item.Token, Weight: item.Weight})
	}
	sort.SliceStable(tokens, func(i, j int) bool {
		if tokens[i].Weight != tokens[j].Weight {
			return tokens[i].Weight > tokens[j].Weight
		}
		return tokens[i].Token < tokens[j].Token
	})
	if len(tokens) > topN {
		tokens = tokens[:topN]
	}

	return &Context{Tokens: tokens, K: k, HeapFactor: heapFactor}, nil
}

// NeuralSparse is the parsed form of a neural_sparse query clause.
type NeuralSparse struct {
	Field      string
	Tokens     map[int64]float32
	TopN       int
	K          int
	HeapFactor float32
	Filter     json.RawMessage
	TwoPhase   *TwoPhaseParams
}

type rawNeuralSparse struct {
	Field            string             `json:"field"`
	QueryTokens      map[string]float32 `json:"query_tokens"`
	MethodParameters *rawMethodParams   `json:"method_parameters"`
	Filter           json.RawMessage    `json:"filter"`
	TwoPhaseParam    *rawTwoPhase       `json:"two_phase_parameter"`
}

type rawMethodParams struct {
	TopN       *int     `json:"top_n"`
	K          *int     `json:"k"`
	HeapFactor *float32 `json:"heap_factor"`
}

type rawTwoPhase struct {
	PruneType     string   `json:"prune_type"`
	PruneRatio    *float32 `json:"prune_ratio"`
	ExpansionRate *float32 `json:"expansion_rate"`
	MaxWindowSize *int     `json:"max_window_size"`
}

// ParseNeuralSparse parses and validates a neural_sparse clause.
func ParseNeuralSparse(data []byte) (*NeuralSparse, error) {
	var raw rawNeuralSparse
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.New(errors.KindInvalidArgument, "malformed neural_sparse clause", err)
	}
	if raw.Field == "" {
		return nil, errors.InvalidArgument("neural_sparse requires a field")
	}
	if len(raw.QueryTokens) == 0 {
		return nil, errors.InvalidArgument("neural_sparse requires query_tokens")
	}

	q := &NeuralSparse{
		Field:      raw.Field,
		Tokens:     make(map[int64]float32, len(raw.QueryTokens)),
		TopN:       DefaultTopN,
		K:          DefaultK,
		HeapFactor: DefaultHeapFactor,
		Filter:     raw.Filter,
	}

	for key, weight := range raw.QueryTokens {
		token, err := parseToken(key)
		if err != nil {
			return nil, err
		}
		if existing, ok := q.Tokens[token]; !ok || weight > existing {
			q.Tokens[token] = weight
		}
	}

	if mp := raw.MethodParameters; mp != nil {
		if mp.TopN != nil {
			if *mp.TopN <= 0 {
				return nil, errors.InvalidArgumentf("top_n must be positive, got %d", *mp.TopN)
			}
			q.TopN = *mp.TopN
		}
		if mp.K != nil {
			if *mp.K <= 0 {
				return nil, errors.InvalidArgumentf("k must be positive, got %d", *mp.K)
			}
			q.K = *mp.K
		}
		if mp.HeapFactor != nil {
			if *mp.HeapFactor <= 0 {
				return nil, errors.InvalidArgumentf("heap_factor must be positive, got %v", *mp.HeapFactor)
			}
			q.HeapFactor = *mp.HeapFactor
		}
	}

	if tp := raw.TwoPhaseParam; tp != nil {
		params, err := parseTwoPhase(tp)
		if err != nil {
			return nil, err
		}
		q.TwoPhase = params
	}

	return q, nil
}

func parseToken(key string) (int64, error) {
	var token int64
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < '0' || c > '9' {
			return 0, errors.InvalidArgumentf("token id must be a non-negative integer, got %q", key)
		}
		token = token*10 + int64(c-'0')
		if token > 1<<40 {
			return 0, errors.InvalidArgumentf("token id out of range: %s", key)
		}
	}
	if len(key) == 0 {
		return 0, errors.InvalidArgument("token id must not be empty")
	}
	return token, nil
}
