package rag

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
)

func chunkWithVec(sourceID string, ordinal int, vec []float32) core.Chunk {
	return core.Chunk{
		ID:        core.ChunkID(sourceID, ordinal),
		SourceID:  sourceID,
		Ordinal:   ordinal,
		Text:      "text",
		Embedding: vec,
	}
}

func TestNearestNeighborsRanksByCosine(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSource(ctx, "doc", []core.Chunk{
		chunkWithVec("doc", 0, []float32{1, 0}),
		chunkWithVec("doc", 1, []float32{0, 1}),
		chunkWithVec("doc", 2, []float32{0.7, 0.7}),
	}))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, 0, results[0].Chunk.Ordinal)
	assert.Equal(t, 2, results[1].Chunk.Ordinal)
	assert.Equal(t, 1, results[2].Chunk.Ordinal)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestNearestNeighborsTruncatesToK(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSource(ctx, "doc", []core.Chunk{
		chunkWithVec("doc", 0, []float32{1, 0}),
		chunkWithVec("doc", 1, []float32{0.9, 0.1}),
		chunkWithVec("doc", 2, []float32{0.8, 0.2}),
	}))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestNearestNeighborsEmptyStore(t *testing.T) {
	s := NewMemoryStore(2)

	results, err := s.NearestNeighbors(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestNearestNeighborsRejectsInvalidK(t *testing.T) {
	s := NewMemoryStore(2)

	_, err := s.NearestNeighbors(context.Background(), []float32{1, 0}, 0)
	assert.Error(t, err)
}

func TestNearestNeighborsTiesKeepIngestionOrder(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	// Identical vectors score identically; order must follow (source, ordinal).
	require.NoError(t, s.ReplaceSource(ctx, "b-doc", []core.Chunk{
		chunkWithVec("b-doc", 0, []float32{1, 0}),
	}))
	require.NoError(t, s.ReplaceSource(ctx, "a-doc", []core.Chunk{
		chunkWithVec("a-doc", 0, []float32{1, 0}),
		chunkWithVec("a-doc", 1, []float32{1, 0}),
	}))

	results, err := s.NearestNeighbors(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "a-doc", results[0].Chunk.SourceID)
	assert.Equal(t, 0, results[0].Chunk.Ordinal)
	assert.Equal(t, "a-doc", results[1].Chunk.SourceID)
	assert.Equal(t, 1, results[1].Chunk.Ordinal)
	assert.Equal(t, "b-doc", results[2].Chunk.SourceID)
}

func TestReplaceSourceIsIdempotent(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()
	chunks := []core.Chunk{
		chunkWithVec("doc", 0, []float32{1, 0}),
		chunkWithVec("doc", 1, []float32{0, 1}),
	}

	require.NoError(t, s.ReplaceSource(ctx, "doc", chunks))
	require.NoError(t, s.ReplaceSource(ctx, "doc", chunks))

	assert.Equal(t, 2, s.Len())
}

func TestReplaceSourceSwapsOldChunks(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSource(ctx, "doc", []core.Chunk{
		chunkWithVec("doc", 0, []float32{1, 0}),
		chunkWithVec("doc", 1, []float32{1, 0}),
		chunkWithVec("doc", 2, []float32{1, 0}),
	}))
	require.NoError(t, s.ReplaceSource(ctx, "doc", []core.Chunk{
		chunkWithVec("doc", 0, []float32{0, 1}),
	}))

	assert.Equal(t, 1, s.Len())
	results, err := s.NearestNeighbors(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
}

func TestReplaceSourceEmptyChunksRemovesSource(t *testing.T) {
	s := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, s.ReplaceSource(ctx, "doc", []core.Chunk{
		chunkWithVec("doc", 0, []float32{1, 0}),
	}))
	require.NoError(t, s.ReplaceSource(ctx, "doc", nil))

	assert.Equal(t, 0, s.Len())
}

func TestReplaceSourceRejectsEmptyID(t *testing.T) {
	s := NewMemoryStore(2)

	err := s.ReplaceSource(context.Background(), "", nil)
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	s := NewMemoryStore(2)
	assert.NoError(t, s.Ping(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, s.Ping(ctx))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, float64(cosine([]float32{1, 0}, []float32{2, 0})), 1e-6)
	assert.InDelta(t, 0.0, float64(cosine([]float32{1, 0}, []float32{0, 1})), 1e-6)
	assert.InDelta(t, -1.0, float64(cosine([]float32{1, 0}, []float32{-1, 0})), 1e-6)
	assert.Zero(t, cosine([]float32{1, 0}, []float32{1}))
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 0}))
}
