package engine

import (
	"fmt"

	"github.com/Aman-CERP/seismicd/internal/quantize"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Explanation describes how a document scored against a query.
type Explanation struct {
	Match       bool
	Value       float32
	Description string
}

// Explain scores one global doc id against the request's query. An
// invalid doc id yields a no-match explanation, not an error.
func (e *Engine) Explain(req *Request, globalDoc uint32) (*Explanation, error) {
	if req == nil || req.Query == nil {
		return nil, fmt.Errorf("explain requires a query")
	}
	req.defaults()

	seg := e.segmentFor(globalDoc)
	if seg == nil {
		return &Explanation{
			Match:       false,
			Description: fmt.Sprintf("doc %d does not exist in any open segment", globalDoc),
		}, nil
	}

	quantizer, err := quantize.NewByteQuantizer(req.CeilSearch)
	if err != nil {
		return nil, err
	}
	vec, err := sparsevec.FromWeights(req.Query.Tokens, quantizer)
	if err != nil {
		return nil, err
	}
	dense := vec.Dense()

	docVec, err := seg.Forward.Read(globalDoc - seg.docBase)
	if err != nil {
		return nil, err
	}
	if docVec == nil {
		return &Explanation{
			Match:       false,
			Description: fmt.Sprintf("doc %d has no sparse vector for field %s", globalDoc, seg.Field),
		}, nil
	}

	raw := docVec.Dot(dense)
	rescale := quantize.RescaleFactor(req.Boost, seg.CeilIngest, req.CeilSearch)
	return &Explanation{
		Match: true,
		Value: float32(raw) * rescale,
		Description: fmt.Sprintf("byte dot product %d rescaled by %v (boost %v, ceilings %v and %v)",
			raw, rescale, req.Boost, seg.CeilIngest, req.CeilSearch),
	}, nil
}

// segmentFor locates the segment owning a global doc id.
func (e *Engine) segmentFor(globalDoc uint32) *Segment {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, seg := range e.segments {
		if globalDoc >= seg.docBase && globalDoc < seg.docBase+seg.MaxDoc {
			return seg
		}
	}
	return nil
}
