package pipeline

import (
	"context"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// Pipeline sequences Retriever -> Composer -> Generator for one query.
// It holds no per-query state; the only shared state underneath is the
// read-only vector store.
type Pipeline struct {
	retriever *Retriever
	composer  *Composer
	generator core.Generator
	topK      int
	retries   int
}

// New wires the pipeline. topK is the retrieval depth per query; retries is
// how many times a transient generation failure is retried.
func New(retriever *Retriever, composer *Composer, generator core.Generator, topK, retries int) *Pipeline {
	if topK < 1 {
		topK = 1
	}
	if retries < 0 {
		retries = 0
	}
	return &Pipeline{
		retriever: retriever,
		composer:  composer,
		generator: generator,
		topK:      topK,
		retries:   retries,
	}
}

// Answer runs the full query pipeline: embed, retrieve, compose, generate.
// Errors carry the stage they came from; only transient generation failures
// are retried, once.
func (p *Pipeline) Answer(ctx context.Context, query core.Query) (core.Answer, error) {
	results, err := p.retriever.Retrieve(ctx, query, p.topK)
	if err != nil {
		return core.Answer{}, err
	}
	logger.Debug("Retrieved %d chunks for query", len(results))

	prompt, err := p.composer.Compose(query, results)
	if err != nil {
		return core.Answer{}, err
	}

	text, err := p.generate(ctx, prompt)
	if err != nil {
		return core.Answer{}, err
	}

	return core.Answer{
		Text:    text,
		Sources: citations(prompt),
	}, nil
}

func (p *Pipeline) generate(ctx context.Context, prompt Prompt) (string, error) {
	text, err := p.generator.Generate(ctx, prompt.System, prompt.User())
	for attempt := 0; err != nil && core.IsTransient(err) && attempt < p.retries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		logger.Warn("Transient generation failure, retrying: %v", err)
		text, err = p.generator.Generate(ctx, prompt.System, prompt.User())
	}
	return text, err
}

// citations lists the chunks whose text was part of the prompt, in prompt
// order.
func citations(prompt Prompt) []core.Citation {
	sources := make([]core.Citation, 0, len(prompt.Context))
	for _, sc := range prompt.Context {
		sources = append(sources, core.Citation{
			ChunkID:  sc.Chunk.ID,
			SourceID: sc.Chunk.SourceID,
			Score:    sc.Score,
		})
	}
	return sources
}
