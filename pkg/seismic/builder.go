package seismic

import (
	"sort"

	"github.com/Aman-CERP/seismicd/internal/config"
	"github.com/Aman-CERP/seismicd/internal/engine"
	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/forward"
	"github.com/Aman-CERP/seismicd/internal/postings"
	"github.com/Aman-CERP/seismicd/internal/quantize"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// SegmentBuilder assembles a segment at flush or merge time from
// wire-format sparse field values.
type SegmentBuilder struct {
	id        string
	field     string
	quantizer *quantize.ByteQuantizer
	params    config.MethodParameters

	index   *forward.Index
	byToken map[uint16][]postings.Posting
	maxDoc  uint32
	built   bool
}

// NewSegmentBuilder creates a builder. ceilIngest is the field's ingest
// quantization ceiling; rawParams are the field's method parameters
// (unknown keys fail).
func NewSegmentBuilder(id, field string, ceilIngest float32, rawParams map[string]any) (*SegmentBuilder, error) {
	quantizer, err := quantize.NewByteQuantizer(ceilIngest)
	if err != nil {
		return nil, err
	}
	params, err := config.ParseMethodParameters(rawParams)
	if err != nil {
		return nil, err
	}
	return &SegmentBuilder{
		id:        id,
		field:     field,
		quantizer: quantizer,
		params:    params,
		index:     forward.NewIndex(field),
		byToken:   make(map[uint16][]postings.Posting),
	}, nil
}

// AddDocument parses a wire-format sparse field value and indexes it
// under the doc id. Doc ids must arrive in ascending order.
func (b *SegmentBuilder) AddDocument(docID uint32, wire []byte) error {
	if b.built {
		return errors.InvalidState("segment already built")
	}
	if docID < b.maxDoc {
		return errors.InvalidArgumentf("doc ids must be ascending: %d after %d", docID, b.maxDoc-1)
	}

	vec, err := sparsevec.ParseWire(wire, b.quantizer)
	if err != nil {
		return err
	}
	if err := b.index.Write(docID, vec); err != nil {
		return err
	}
	for _, item := range vec.Items() {
		b.byToken[item.Token] = append(b.byToken[item.Token], postings.Posting{DocID: docID, Weight: item.Weight})
	}
	b.maxDoc = docID + 1
	return nil
}

// Build clusters every token's posting and seals the segment.
func (b *SegmentBuilder) Build() (*engine.Segment, error) {
	if b.built {
		return nil, errors.InvalidState("segment already built")
	}
	b.built = true

	store := postings.NewStore()
	tokens := make([]uint16, 0, len(b.byToken))
	for token := range b.byToken {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })

	for _, token := range tokens {
		clusters, err := postings.Build(b.byToken[token], b.index.Read, b.params)
		if err != nil {
			return nil, err
		}
		store.Put(b.field, token, clusters)
	}

	return &engine.Segment{
		ID:         b.id,
		Field:      b.field,
		MaxDoc:     b.maxDoc,
		Sparse:     len(tokens) > 0,
		CeilIngest: b.quantizer.Ceiling(),
		Forward:    b.index,
		Postings:   store,
	}, nil
}
