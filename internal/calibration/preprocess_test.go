package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-similarity/internal/embeddings"
)

var sampleBatch = []embeddings.Vector{
	{0.9, 0.1, 0.3, 0.2},
	{0.8, 0.2, 0.4, 0.1},
	{0.1, 0.9, 0.2, 0.5},
	{0.2, 0.1, 0.9, 0.7},
	{0.5, 0.5, 0.5, 0.5},
}

func TestPreprocessValidation(t *testing.T) {
	tests := []struct {
		name    string
		batch   []embeddings.Vector
		wantErr error
	}{
		{"empty batch", nil, ErrEmptyBatch},
		{"zero dimension", []embeddings.Vector{{}, {}}, embeddings.ErrEmptyVector},
		{"dimension mismatch", []embeddings.Vector{{1, 2, 3, 4}, {1, 2, 3}, {4, 3, 2, 1}}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Preprocess(tt.batch, nil)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, out)
		})
	}
}

func TestPreprocessOutputsUnitVectors(t *testing.T) {
	out, err := Preprocess(sampleBatch, nil)
	require.NoError(t, err)
	require.Len(t, out, len(sampleBatch))

	for i, v := range out {
		assert.Len(t, v, 4)
		assert.InDelta(t, 1.0, embeddings.Norm(v), 1e-5, "member %d", i)
	}
}

func TestPreprocessRemovesDominantDirection(t *testing.T) {
	mean := embeddings.Mean(sampleBatch)
	centered := make([]embeddings.Vector, len(sampleBatch))
	for i, v := range sampleBatch {
		centered[i] = make(embeddings.Vector, len(v))
		for j := range v {
			centered[i][j] = v[j] - mean[j]
		}
	}
	dir := DominantDirection(centered, DefaultIterations)

	out, err := Preprocess(sampleBatch, nil)
	require.NoError(t, err)
	for i, v := range out {
		assert.InDelta(t, 0.0, embeddings.DotProduct(v, dir), 1e-5, "member %d", i)
	}
}

func TestPreprocessDoesNotMutateInput(t *testing.T) {
	batch := []embeddings.Vector{{1, 2}, {3, 5}, {-1, 0}}
	_, err := Preprocess(batch, nil)
	require.NoError(t, err)
	assert.Equal(t, []embeddings.Vector{{1, 2}, {3, 5}, {-1, 0}}, batch)
}

func TestPreprocessPreservesOrder(t *testing.T) {
	batch := []embeddings.Vector{{0.9, 0.1, 0.3}, {0.2, 0.8, 0.4}, {0.9, 0.1, 0.3}, {0.1, 0.3, 0.9}, {0.4, 0.4, 0.1}}
	out, err := Preprocess(batch, nil)
	require.NoError(t, err)
	require.Len(t, out, 5)
	// Identical inputs land on identical outputs at their own positions.
	assert.Equal(t, out[0], out[2])
	assert.NotEqual(t, out[0], out[1])
}

func TestPreprocessIdenticalBatchIsDegenerate(t *testing.T) {
	// Centering leaves only zero vectors, which stay zero.
	out, err := Preprocess([]embeddings.Vector{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}, nil)
	require.NoError(t, err)
	for _, v := range out {
		assert.Equal(t, embeddings.Vector{0, 0, 0}, v)
	}
}
