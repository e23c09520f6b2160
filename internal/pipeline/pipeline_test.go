package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
	"github.com/Sayrikey1/Code-and-Clause/internal/embed"
	"github.com/Sayrikey1/Code-and-Clause/internal/ingest"
	"github.com/Sayrikey1/Code-and-Clause/internal/rag"
)

type stubGenerator struct {
	text       string
	failures   []error
	calls      int
	lastSystem string
	lastUser   string
}

func (g *stubGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	g.calls++
	g.lastSystem = system
	g.lastUser = user
	if len(g.failures) > 0 {
		err := g.failures[0]
		g.failures = g.failures[1:]
		if err != nil {
			return "", err
		}
	}
	return g.text, nil
}

// mapEmbedder returns hand-picked vectors per exact text, so retrieval
// ranking in tests is fully controlled.
type mapEmbedder struct {
	vecs map[string][]float32
	dim  int
}

func (m *mapEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := m.vecs[text]; ok {
		return v, nil
	}
	return make([]float32, m.dim), nil
}

func (m *mapEmbedder) Dimension() int { return m.dim }

// populatedPipeline builds a pipeline over a real in-memory index filled
// through the ingestion path.
func populatedPipeline(t *testing.T, gen core.Generator, topK int, docs ...core.SourceText) *Pipeline {
	t.Helper()
	return populatedPipelineWith(t, embed.NewHashingEmbedder(64), gen, topK, docs...)
}

func populatedPipelineWith(t *testing.T, embedder core.Embedder, gen core.Generator, topK int, docs ...core.SourceText) *Pipeline {
	t.Helper()

	store := rag.NewMemoryStore(embedder.Dimension())
	ingestor := ingest.NewIngestor(ingest.NewChunker(0), embedder, store)
	_, err := ingestor.Ingest(context.Background(), docs)
	require.NoError(t, err)

	retriever := NewRetriever(embedder, store, 0)
	composer := NewComposer("", 10000)
	return New(retriever, composer, gen, topK, 1)
}

func TestAnswerEndToEnd(t *testing.T) {
	embedder := &mapEmbedder{
		dim: 2,
		vecs: map[string][]float32{
			"All software must be registered with NITDA before deployment.":           {1, 0},
			"The information technology levy applies to companies with large turnover.": {0, 1},
			"Do I need to register my software?":                                      {0.9, 0.1},
		},
	}
	gen := &stubGenerator{text: "Yes, registration with NITDA is required."}
	p := populatedPipelineWith(t, embedder, gen, 1,
		core.SourceText{
			SourceID: "nitda-reg-1",
			Text:     "All software must be registered with NITDA before deployment.",
		},
		core.SourceText{
			SourceID: "levy-2",
			Text:     "The information technology levy applies to companies with large turnover.",
		},
	)

	answer, err := p.Answer(context.Background(), core.Query{Text: "Do I need to register my software?"})
	require.NoError(t, err)

	assert.Equal(t, "Yes, registration with NITDA is required.", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "nitda-reg-1", answer.Sources[0].SourceID)

	// The retrieved text must have reached the generator.
	assert.Contains(t, gen.lastUser, "registered with NITDA")
	assert.Contains(t, gen.lastUser, "Do I need to register my software?")
	assert.Contains(t, gen.lastSystem, "Code&Clause")
}

func TestAnswerKLargerThanIndex(t *testing.T) {
	gen := &stubGenerator{text: "answer"}
	p := populatedPipeline(t, gen, 3, core.SourceText{
		SourceID: "only-doc",
		Text:     "A single policy statement.",
	})

	answer, err := p.Answer(context.Background(), core.Query{Text: "policy statement"})
	require.NoError(t, err)
	assert.Len(t, answer.Sources, 1)
}

func TestAnswerEmptyIndexStillAnswers(t *testing.T) {
	gen := &stubGenerator{text: "I could not find that in the indexed regulations."}
	p := populatedPipeline(t, gen, 4)

	answer, err := p.Answer(context.Background(), core.Query{Text: "anything at all"})
	require.NoError(t, err)
	assert.Empty(t, answer.Sources)
	assert.Contains(t, gen.lastUser, NoContextMarker)
	assert.Equal(t, "I could not find that in the indexed regulations.", answer.Text)
}

func TestAnswerRetriesTransientGenerationOnce(t *testing.T) {
	transient := core.NewTransientError(core.KindGenerationFailed, core.StageGenerate,
		errors.New("rate limited"))
	gen := &stubGenerator{text: "recovered", failures: []error{transient}}
	p := populatedPipeline(t, gen, 2, core.SourceText{SourceID: "doc", Text: "Some policy text."})

	answer, err := p.Answer(context.Background(), core.Query{Text: "policy text"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer.Text)
	assert.Equal(t, 2, gen.calls)
}

func TestAnswerTransientFailureTwiceGivesUp(t *testing.T) {
	transient := core.NewTransientError(core.KindGenerationFailed, core.StageGenerate,
		errors.New("rate limited"))
	gen := &stubGenerator{text: "never", failures: []error{transient, transient}}
	p := populatedPipeline(t, gen, 2, core.SourceText{SourceID: "doc", Text: "Some policy text."})

	_, err := p.Answer(context.Background(), core.Query{Text: "policy text"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrGenerationFailed))
	assert.Equal(t, 2, gen.calls)
}

func TestAnswerPermanentGenerationFailureNotRetried(t *testing.T) {
	permanent := core.NewPipelineError(core.KindGenerationFailed, core.StageGenerate,
		errors.New("invalid API key"))
	gen := &stubGenerator{text: "never", failures: []error{permanent}}
	p := populatedPipeline(t, gen, 2, core.SourceText{SourceID: "doc", Text: "Some policy text."})

	_, err := p.Answer(context.Background(), core.Query{Text: "policy text"})
	require.Error(t, err)
	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, core.StageGenerate, core.StageOf(err))
}

func TestAnswerInvalidQueryShortCircuits(t *testing.T) {
	gen := &stubGenerator{text: "never"}
	p := populatedPipeline(t, gen, 2, core.SourceText{SourceID: "doc", Text: "Some policy text."})

	_, err := p.Answer(context.Background(), core.Query{Text: "  "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInvalidQuery))
	assert.Equal(t, 0, gen.calls)
}
