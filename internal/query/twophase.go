package query

import (
	"math"
	"sort"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/quantize"
)

// PruneType selects how the query is split into a high-weight phase-one
// part and a low-weight phase-two remainder.
type PruneType string

const (
	// PruneMaxRatio keeps tokens whose weight is at least
	// prune_ratio times the maximum query weight.
	PruneMaxRatio PruneType = "max_ratio"
	// PruneAlphaMass keeps the heaviest tokens until their cumulative
	// mass reaches prune_ratio of the total.
	PruneAlphaMass PruneType = "alpha_mass"
	// PruneTopDocs keeps the prune_ratio heaviest tokens (a count).
	PruneTopDocs PruneType = "top_docs"
	// PruneAbsValue keeps tokens whose weight is at least prune_ratio
	// in the quantized byte domain.
	PruneAbsValue PruneType = "abs_value"
)

// Limits on the phase-one window.
const (
	MinExpansionRate = 1.0
	MinMaxWindowSize = 50
)

// TwoPhaseParams configures the candidate/rescore split.
type TwoPhaseParams struct {
	PruneType     PruneType
	PruneRatio    float32
	ExpansionRate float32
	MaxWindowSize int
}

func parseTwoPhase(raw *rawTwoPhase) (*TwoPhaseParams, error) {
	p := &TwoPhaseParams{
		PruneType:     PruneMaxRatio,
		PruneRatio:    0.4,
		ExpansionRate: 5.0,
		MaxWindowSize: 10000,
	}
	if raw.PruneType != "" {
		p.PruneType = PruneType(raw.PruneType)
	}
	if raw.PruneRatio != nil {
		p.PruneRatio = *raw.PruneRatio
	}
	if raw.ExpansionRate != nil {
		p.ExpansionRate = *raw.ExpansionRate
	}
	if raw.MaxWindowSize != nil {
		p.MaxWindowSize = *raw.MaxWindowSize
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks ranges per prune type.
func (p *TwoPhaseParams) Validate() error {
	switch p.PruneType {
	case PruneMaxRatio, PruneAlphaMass:
		if p.PruneRatio < 0 || p.PruneRatio >= 1 {
			return errors.InvalidArgumentf("prune_ratio for %s must be in [0, 1), got %v", p.PruneType, p.PruneRatio)
		}
	case PruneTopDocs:
		if p.PruneRatio < 1 || p.PruneRatio != float32(math.Trunc(float64(p.PruneRatio))) {
			return errors.InvalidArgumentf("prune_ratio for top_docs must be a positive integer, got %v", p.PruneRatio)
		}
	case PruneAbsValue:
		if p.PruneRatio < 0 {
			return errors.InvalidArgumentf("prune_ratio for abs_value must be non-negative, got %v", p.PruneRatio)
		}
	default:
		return errors.InvalidArgumentf("unknown prune_type %q", string(p.PruneType))
	}
	if p.ExpansionRate < MinExpansionRate {
		return errors.InvalidArgumentf("expansion_rate must be at least %v, got %v", MinExpansionRate, p.ExpansionRate)
	}
	if p.MaxWindowSize < MinMaxWindowSize {
		return errors.InvalidArgumentf("max_window_size must be at least %d, got %d", MinMaxWindowSize, p.MaxWindowSize)
	}
	return nil
}

// WindowSize returns the phase-one result set size:
// ceil(k * expansion_rate), capped at max_window_size.
func (p *TwoPhaseParams) WindowSize(k int) int {
	window := int(math.Ceil(float64(k) * float64(p.ExpansionRate)))
	if window > p.MaxWindowSize {
		window = p.MaxWindowSize
	}
	return window
}

// Prune splits the query tokens into the high-weight phase-one part and
// the low-weight phase-two remainder. Token order is preserved.
func (p *TwoPhaseParams) Prune(tokens []TokenWeight) (high, low []TokenWeight) {
	if len(tokens) == 0 {
		return nil, nil
	}

	keep := func(threshold float64) {
		for _, tw := range tokens {
			if float64(tw.Weight) >= threshold {
				high = append(high, tw)
			} else {
				low = append(low, tw)
			}
		}
	}

	switch p.PruneType {
	case PruneMaxRatio:
		var maxWeight uint8
		for _, tw := range tokens {
			if tw.Weight > maxWeight {
				maxWeight = tw.Weight
			}
		}
		keep(float64(p.PruneRatio) * float64(maxWeight))
	case PruneAbsValue:
		keep(float64(p.PruneRatio) * quantize.MaxByteWeight)
	case PruneAlphaMass:
		ranked := make([]TokenWeight, len(tokens))
		copy(ranked, tokens)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Weight > ranked[j].Weight })
		var total float64
		for _, tw := range ranked {
			total += float64(tw.Weight)
		}
		var mass float64
		threshold := float64(quantize.MaxByteWeight) + 1
		for i, tw := range ranked {
			if i > 0 && mass >= float64(p.PruneRatio)*total {
				break
			}
			mass += float64(tw.Weight)
			threshold = float64(tw.Weight)
		}
		keep(threshold)
	case PruneTopDocs:
		n := int(p.PruneRatio)
		ranked := make([]TokenWeight, len(tokens))
		copy(ranked, tokens)
		sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Weight > ranked[j].Weight })
		if n > len(ranked) {
			n = len(ranked)
		}
		kept := make(map[uint16]bool, n)
		for _, tw := range ranked[:n] {
			kept[tw.Token] = true
		}
		for _, tw := range tokens {
			if kept[tw.Token] {
				high = append(high, tw)
			} else {
				low = append(low, tw)
			}
		}
	}
	return high, low
}
