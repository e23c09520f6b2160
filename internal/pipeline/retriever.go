package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
)

// Retriever embeds a query and fetches the top-k most similar chunks from
// the vector store.
type Retriever struct {
	embedder core.Embedder
	store    core.VectorStore
	timeout  time.Duration
}

// NewRetriever wires an embedder and a vector store. timeout bounds each
// external call; zero disables the bound.
func NewRetriever(embedder core.Embedder, store core.VectorStore, timeout time.Duration) *Retriever {
	return &Retriever{
		embedder: embedder,
		store:    store,
		timeout:  timeout,
	}
}

// Retrieve returns up to k chunks by descending similarity. An empty index
// yields an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query core.Query, k int) (core.RetrievalResult, error) {
	if k < 1 {
		return nil, core.NewPipelineError(core.KindInvalidQuery, core.StageRetrieve,
			fmt.Errorf("k must be at least 1, got %d", k))
	}
	text := strings.TrimSpace(query.Text)
	if text == "" {
		return nil, core.NewPipelineError(core.KindInvalidQuery, core.StageRetrieve,
			fmt.Errorf("query text is empty"))
	}

	vector, err := r.embedQuery(ctx, text)
	if err != nil {
		return nil, core.NewPipelineError(core.KindEmbeddingUnavailable, core.StageEmbed, err)
	}

	results, err := r.nearestNeighbors(ctx, vector, k)
	if err != nil {
		return nil, core.NewPipelineError(core.KindIndexUnavailable, core.StageRetrieve, err)
	}

	// The store already returns ranked results; re-sort anyway so the
	// non-increasing invariant and the ingestion-order tie-break hold for
	// every backend.
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
	return core.RetrievalResult(results), nil
}

func (r *Retriever) embedQuery(ctx context.Context, text string) ([]float32, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.embedder.EmbedQuery(ctx, text)
}

func (r *Retriever) nearestNeighbors(ctx context.Context, vector []float32, k int) ([]core.ScoredChunk, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.store.NearestNeighbors(ctx, vector, k)
}
