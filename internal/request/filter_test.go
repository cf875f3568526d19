package request

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterHybridRequest_OverridesBatchedReduceSize(t *testing.T) {
	req := &SearchRequest{BatchedReduceSize: 2, Hybrid: true}
	FilterHybridRequest(req)
	assert.Equal(t, MaxBatchedReduceSize, req.BatchedReduceSize)
}

func TestFilterHybridRequest_LeavesNonHybridAlone(t *testing.T) {
	req := &SearchRequest{BatchedReduceSize: 2}
	FilterHybridRequest(req)
	assert.Equal(t, 2, req.BatchedReduceSize)
}

func TestFilterHybridRequest_NilIsSafe(t *testing.T) {
	assert.NotPanics(t, func() { FilterHybridRequest(nil) })
}
