package rag

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
)

// MemoryStore is an in-memory core.VectorStore used for offline mode and
// tests. Search is exact cosine similarity over every stored chunk.
type MemoryStore struct {
	mu           sync.RWMutex
	sources      map[string][]core.Chunk
	embeddingDim int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(embeddingDim int) *MemoryStore {
	if embeddingDim <= 0 {
		embeddingDim = core.DefaultEmbeddingDim
	}
	return &MemoryStore{
		sources:      make(map[string][]core.Chunk),
		embeddingDim: embeddingDim,
	}
}

// NearestNeighbors scores every chunk against the query vector and returns
// the top k, descending, ties in ingestion order.
func (s *MemoryStore) NearestNeighbors(ctx context.Context, vector []float32, k int) ([]core.ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be at least 1, got %d", k)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]core.ScoredChunk, 0)
	for _, chunks := range s.sources {
		for _, ch := range chunks {
			results = append(results, core.ScoredChunk{
				Chunk: ch,
				Score: cosine(vector, ch.Embedding),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.SourceID != results[j].Chunk.SourceID {
			return results[i].Chunk.SourceID < results[j].Chunk.SourceID
		}
		return results[i].Chunk.Ordinal < results[j].Chunk.Ordinal
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// ReplaceSource swaps the chunk set stored for a source id.
func (s *MemoryStore) ReplaceSource(ctx context.Context, sourceID string, chunks []core.Chunk) error {
	if sourceID == "" {
		return fmt.Errorf("source id must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	copied := make([]core.Chunk, len(chunks))
	copy(copied, chunks)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(copied) == 0 {
		delete(s.sources, sourceID)
		return nil
	}
	s.sources[sourceID] = copied
	return nil
}

// Len returns the total number of stored chunks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, chunks := range s.sources {
		n += len(chunks)
	}
	return n
}

// Ping always succeeds; the in-memory store has nothing to reach.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// cosine computes cosine similarity; mismatched or zero vectors score 0.
func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(na))) * float32(math.Sqrt(float64(nb))))
}
