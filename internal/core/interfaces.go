package core

import "context"

// Embedder maps a text span to a fixed-length vector. Implementations wrap
// external embedding services and must respect ctx cancellation.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore owns the indexed chunk set and answers nearest-neighbor
// lookups. Reads are safe to run concurrently; ReplaceSource happens
// out-of-band relative to serving.
type VectorStore interface {
	// NearestNeighbors returns up to k chunks by descending similarity.
	// An empty index yields an empty slice, not an error.
	NearestNeighbors(ctx context.Context, vector []float32, k int) ([]ScoredChunk, error)

	// ReplaceSource atomically swaps the chunk set stored for a source id.
	// Re-ingesting the same source is idempotent.
	ReplaceSource(ctx context.Context, sourceID string, chunks []Chunk) error

	// Ping reports whether the index is reachable. Cheap enough to call
	// from a health endpoint.
	Ping(ctx context.Context) error

	Close() error
}

// Generator turns a composed prompt into answer text via a hosted model.
// It must not retry internally; retry policy belongs to the orchestrator.
type Generator interface {
	Generate(ctx context.Context, system, user string) (string, error)
}
