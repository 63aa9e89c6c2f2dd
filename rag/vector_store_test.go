package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	assert.Zero(t, cosineSimilarity([]float64{1, 0}, []float64{1}), "dimension mismatch")
	assert.Zero(t, cosineSimilarity([]float64{0, 0}, []float64{1, 0}), "zero vector")
}

func TestInMemorySearchOrdering(t *testing.T) {
	s := NewInMemoryVectorStore(nil)
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []Chunk{
		{ID: "far", Embedding: []float64{0, 1}},
		{ID: "near", Embedding: []float64{1, 0}},
		{ID: "mid", Embedding: []float64{1, 1}},
	}))

	got, err := s.Search(ctx, []float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "near", got[0].Chunk.ID)
	assert.Equal(t, "mid", got[1].Chunk.ID)
	assert.Greater(t, got[0].Score, got[1].Score)
}

func TestInMemorySearchTopKClamped(t *testing.T) {
	s := NewInMemoryVectorStore(nil)
	ctx := context.Background()

	require.NoError(t, s.AddChunks(ctx, []Chunk{{ID: "only", Embedding: []float64{1}}}))

	got, err := s.Search(ctx, []float64{1}, 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryAddRejectsMissingEmbedding(t *testing.T) {
	s := NewInMemoryVectorStore(nil)
	err := s.AddChunks(context.Background(), []Chunk{{ID: "bare"}})
	assert.Error(t, err)
}

func TestInMemorySearchEmptyStore(t *testing.T) {
	s := NewInMemoryVectorStore(nil)
	got, err := s.Search(context.Background(), []float64{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
