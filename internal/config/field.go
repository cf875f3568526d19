package config

import (
	"math"

	"github.com/Aman-CERP/seismicd/internal/errors"
)

// MethodParameters are the index-time parameters of a sparse field.
type MethodParameters struct {
	// NPostings caps the posting length retained per token; the lowest
	// weighted entries beyond the cap are dropped at build time.
	NPostings uint32

	// SummaryPruneRatio (alpha) keeps the highest summary weights until
	// their cumulative mass reaches this fraction of the total.
	SummaryPruneRatio float32

	// ClusterRatio sets the cluster count per posting as a fraction of
	// the posting length.
	ClusterRatio float32

	// ApproximateThreshold is the minimum posting length before a token's
	// posting is clustered at all; shorter postings become a single
	// always-entered cluster.
	ApproximateThreshold uint32
}

// DefaultMethodParameters returns the index-time defaults.
func DefaultMethodParameters() MethodParameters {
	return MethodParameters{
		NPostings:            4000,
		SummaryPruneRatio:    0.4,
		ClusterRatio:         0.1,
		ApproximateThreshold: 1000000,
	}
}

// ParseMethodParameters validates a raw parameter map as supplied at
// index creation. Unknown parameters fail index creation.
func ParseMethodParameters(raw map[string]any) (MethodParameters, error) {
	p := DefaultMethodParameters()
	for key, value := range raw {
		switch key {
		case "n_postings":
			n, err := toPositiveInt(key, value)
			if err != nil {
				return p, err
			}
			p.NPostings = uint32(n)
		case "summary_prune_ratio":
			f, err := toRatio(key, value)
			if err != nil {
				return p, err
			}
			p.SummaryPruneRatio = f
		case "cluster_ratio":
			f, err := toRatio(key, value)
			if err != nil {
				return p, err
			}
			p.ClusterRatio = f
		case "approximate_threshold":
			n, err := toPositiveInt(key, value)
			if err != nil {
				return p, err
			}
			p.ApproximateThreshold = uint32(n)
		default:
			return p, errors.InvalidArgumentf("unknown method parameter %q", key)
		}
	}
	return p, nil
}

func toPositiveInt(key string, value any) (int64, error) {
	f, ok := toFloat(value)
	if !ok || f != math.Trunc(f) || f <= 0 || f > math.MaxUint32 {
		return 0, errors.InvalidArgumentf("parameter %q must be a positive integer, got %v", key, value)
	}
	return int64(f), nil
}

func toRatio(key string, value any) (float32, error) {
	f, ok := toFloat(value)
	if !ok || f <= 0 || f > 1 {
		return 0, errors.InvalidArgumentf("parameter %q must be in (0, 1], got %v", key, value)
	}
	return float32(f), nil
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// IndexSettings are the per-index settings fixed at creation time.
type IndexSettings struct {
	sparse bool
}

// NewIndexSettings creates the settings for a new index.
func NewIndexSettings(sparse bool) *IndexSettings {
	return &IndexSettings{sparse: sparse}
}

// Sparse reports whether the index stores sparse vector fields.
func (s *IndexSettings) Sparse() bool {
	return s.sparse
}

// Update applies a settings change. "index.sparse" is final at creation
// time; any attempt to change it fails.
func (s *IndexSettings) Update(key string, value bool) error {
	switch key {
	case "index.sparse":
		if value != s.sparse {
			return errors.InvalidArgument("index.sparse is final and cannot be updated after index creation")
		}
		return nil
	default:
		return errors.InvalidArgumentf("unknown index setting %q", key)
	}
}
