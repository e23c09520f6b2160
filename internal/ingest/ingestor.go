package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// embedWorkers bounds concurrent embedding calls during batch ingestion.
const embedWorkers = 8

// Ingestor chunks, embeds, and stores source documents. Each source id is
// replaced atomically, so re-ingesting the same batch is idempotent.
type Ingestor struct {
	chunker  *Chunker
	embedder core.Embedder
	store    core.VectorStore
}

// NewIngestor wires a chunker, an embedder, and the target vector store.
func NewIngestor(chunker *Chunker, embedder core.Embedder, store core.VectorStore) *Ingestor {
	return &Ingestor{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
	}
}

// Ingest processes a batch of sources. On the first failing source the
// batch stops; previously replaced sources stay replaced.
func (in *Ingestor) Ingest(ctx context.Context, batch []core.SourceText) (int, error) {
	total := 0
	for _, src := range batch {
		n, err := in.ingestOne(ctx, src)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (in *Ingestor) ingestOne(ctx context.Context, src core.SourceText) (int, error) {
	if strings.TrimSpace(src.SourceID) == "" {
		return 0, core.NewPipelineError(core.KindInvalidQuery, core.StageIngest,
			fmt.Errorf("source id must not be empty"))
	}
	// Source ids end up inside index filter expressions.
	if strings.ContainsAny(src.SourceID, `"\`) {
		return 0, core.NewPipelineError(core.KindInvalidQuery, core.StageIngest,
			fmt.Errorf("source id %q must not contain quotes or backslashes", src.SourceID))
	}

	chunks := in.chunker.Split(src)
	if len(chunks) == 0 {
		logger.Warn("Source %s produced no chunks, removing it from the index", src.SourceID)
	}

	if err := in.embedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	if err := in.store.ReplaceSource(ctx, src.SourceID, chunks); err != nil {
		return 0, core.NewPipelineError(core.KindIndexUnavailable, core.StageIngest, err)
	}

	logger.Info("Ingested source %s (%d chunks)", src.SourceID, len(chunks))
	return len(chunks), nil
}

// embedChunks fills in chunk embeddings with a bounded worker pool.
func (in *Ingestor) embedChunks(ctx context.Context, chunks []core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	sem := make(chan struct{}, embedWorkers)
	errCh := make(chan error, len(chunks))

	for i := range chunks {
		sem <- struct{}{}
		go func(idx int) {
			defer func() { <-sem }()
			vec, err := in.embedder.EmbedQuery(ctx, chunks[idx].Text)
			if err != nil {
				errCh <- fmt.Errorf("embedding chunk %s: %w", chunks[idx].ID, err)
				return
			}
			chunks[idx].Embedding = vec
			errCh <- nil
		}(i)
	}

	var firstErr error
	for range chunks {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return core.NewPipelineError(core.KindEmbeddingUnavailable, core.StageIngest, firstErr)
	}
	return nil
}
