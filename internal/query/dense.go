package query

import "github.com/Aman-CERP/seismicd/internal/sparsevec"

// Dense materializes a token subset as a dense query buffer, used when
// the two-phase split scores each phase against its own part of the
// query.
func Dense(tokens []TokenWeight) []uint8 {
	buf := make([]uint8, sparsevec.DenseSize)
	for _, tw := range tokens {
		buf[tw.Token] = tw.Weight
	}
	return buf
}
