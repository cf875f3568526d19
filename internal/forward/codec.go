package forward

import (
	"encoding/binary"
	"io"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Binary doc-values layout, all integers little-endian:
//
//	u32 doc count
//	per doc: u32 doc id, u16 item count, then (u16 token, u8 weight) items
//
// Docs are written in ascending doc id order.

// EncodeIndex writes the forward index through w.
func EncodeIndex(w io.Writer, idx *Index) error {
	docs := idx.Docs()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(docs))); err != nil {
		return errors.IOFailure("writing forward index header", err)
	}
	for _, docID := range docs {
		vec, err := idx.Read(docID)
		if err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, docID); err != nil {
			return errors.IOFailure("writing forward index doc", err)
		}
		if err := encodeVector(w, vec); err != nil {
			return err
		}
	}
	return nil
}

// DecodeIndex reads a forward index previously written by EncodeIndex.
func DecodeIndex(r io.Reader, field string) (*Index, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.IOFailure("reading forward index header", err)
	}

	idx := NewIndex(field)
	var prev uint32
	for i := uint32(0); i < count; i++ {
		var docID uint32
		if err := binary.Read(r, binary.LittleEndian, &docID); err != nil {
			return nil, errors.IOFailure("reading forward index doc", err)
		}
		if i > 0 && docID <= prev {
			return nil, errors.InvalidState("forward index docs out of order")
		}
		prev = docID

		vec, err := decodeVector(r)
		if err != nil {
			return nil, err
		}
		if err := idx.Write(docID, vec); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func encodeVector(w io.Writer, vec *sparsevec.SparseVector) error {
	items := vec.Items()
	if err := binary.Write(w, binary.LittleEndian, uint16(len(items))); err != nil {
		return errors.IOFailure("writing vector length", err)
	}
	for _, item := range items {
		if err := binary.Write(w, binary.LittleEndian, item.Token); err != nil {
			return errors.IOFailure("writing vector token", err)
		}
		if err := binary.Write(w, binary.LittleEndian, item.Weight); err != nil {
			return errors.IOFailure("writing vector weight", err)
		}
	}
	return nil
}

func decodeVector(r io.Reader) (*sparsevec.SparseVector, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.IOFailure("reading vector length", err)
	}
	items := make([]sparsevec.Item, n)
	for i := range items {
		if err := binary.Read(r, binary.LittleEndian, &items[i].Token); err != nil {
			return nil, errors.IOFailure("reading vector token", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &items[i].Weight); err != nil {
			return nil, errors.IOFailure("reading vector weight", err)
		}
	}
	vec, err := sparsevec.New(items)
	if err != nil {
		return nil, errors.New(errors.KindInvalidState, "vector tokens out of order", err)
	}
	return vec, nil
}
