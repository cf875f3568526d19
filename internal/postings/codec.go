package postings

import (
	"encoding/binary"
	"io"

	"github.com/Aman-CERP/seismicd/internal/errors"
	"github.com/Aman-CERP/seismicd/internal/sparsevec"
)

// Binary posting layout for one token, all integers little-endian:
//
//	u32 cluster count
//	per cluster:
//	  u8 should-not-skip flag
//	  u16 summary item count, then (u16 token, u8 weight) items
//	  u32 posting count, then (u32 doc id, u8 weight) entries

// Encode writes a token's posting clusters through w.
func Encode(w io.Writer, p *PostingClusters) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(p.Len())); err != nil {
		return errors.IOFailure("writing posting header", err)
	}
	for _, cluster := range p.clusters {
		flag := uint8(0)
		if cluster.ShouldNotSkip {
			flag = 1
		}
		if err := binary.Write(w, binary.LittleEndian, flag); err != nil {
			return errors.IOFailure("writing cluster flag", err)
		}
		if err := encodeSummary(w, cluster.Summary); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(cluster.Postings))); err != nil {
			return errors.IOFailure("writing cluster posting count", err)
		}
		for _, posting := range cluster.Postings {
			if err := binary.Write(w, binary.LittleEndian, posting.DocID); err != nil {
				return errors.IOFailure("writing posting doc id", err)
			}
			if err := binary.Write(w, binary.LittleEndian, posting.Weight); err != nil {
				return errors.IOFailure("writing posting weight", err)
			}
		}
	}
	return nil
}

// Decode reads posting clusters previously written by Encode.
func Decode(r io.Reader) (*PostingClusters, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.IOFailure("reading posting header", err)
	}

	clusters := make([]*DocumentCluster, 0, count)
	for i := uint32(0); i < count; i++ {
		var flag uint8
		if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
			return nil, errors.IOFailure("reading cluster flag", err)
		}
		if flag > 1 {
			return nil, errors.InvalidState("invalid cluster flag")
		}

		summary, err := decodeSummary(r)
		if err != nil {
			return nil, err
		}

		var postingCount uint32
		if err := binary.Read(r, binary.LittleEndian, &postingCount); err != nil {
			return nil, errors.IOFailure("reading cluster posting count", err)
		}
		postings := make([]Posting, postingCount)
		for j := range postings {
			if err := binary.Read(r, binary.LittleEndian, &postings[j].DocID); err != nil {
				return nil, errors.IOFailure("reading posting doc id", err)
			}
			if err := binary.Read(r, binary.LittleEndian, &postings[j].Weight); err != nil {
				return nil, errors.IOFailure("reading posting weight", err)
			}
		}

		cluster := &DocumentCluster{
			Summary:       summary,
			Postings:      postings,
			ShouldNotSkip: flag == 1,
		}
		if err := cluster.Validate(); err != nil {
			return nil, errors.New(errors.KindInvalidState, "cluster postings out of order", err)
		}
		clusters = append(clusters, cluster)
	}
	return NewPostingClusters(clusters), nil
}

func encodeSummary(w io.Writer, summary *sparsevec.SparseVector) error {
	items := summary.Items()
	if err := binary.Write(w, binary.LittleEndian, uint16(len(items))); err != nil {
		return errors.IOFailure("writing summary length", err)
	}
	for _, item := range items {
		if err := binary.Write(w, binary.LittleEndian, item.Token); err != nil {
			return errors.IOFailure("writing summary token", err)
		}
		if err := binary.Write(w, binary.LittleEndian, item.Weight); err != nil {
			return errors.IOFailure("writing summary weight", err)
		}
	}
	return nil
}

func decodeSummary(r io.Reader) (*sparsevec.SparseVector, error) {
	var n uint16
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, errors.IOFailure("reading summary length", err)
	}
	items := make([]sparsevec.Item, n)
	for i := range items {
		if err := binary.Read(r, binary.LittleEndian, &items[i].Token); err != nil {
			return nil, errors.IOFailure("reading summary token", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &items[i].Weight); err != nil {
			return nil, errors.IOFailure("reading summary weight", err)
		}
	}
	summary, err := sparsevec.New(items)
	if err != nil {
		return nil, errors.New(errors.KindInvalidState, "summary tokens out of order", err)
	}
	return summary, nil
}
