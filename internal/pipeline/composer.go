package pipeline

import (
	"fmt"
	"strings"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
)

// DefaultInstructions is the standing system prompt for the assistant.
const DefaultInstructions = `You are Code&Clause, designed to assist with the clearance of Information Technology projects by public institutions. You answer questions about Nigerian technology policy using the NITDA regulations, standards, guidelines, and frameworks provided as context. Answer only from the supplied context; when the context does not cover the question, say so plainly instead of guessing. Keep answers precise and cite the regulation a statement comes from.`

// NoContextMarker tells the model no chunks survived retrieval, so the
// answer is unsupported by the index.
const NoContextMarker = "No relevant policy context was found in the index for this question."

// Prompt is a fully composed generation request. Context holds exactly the
// chunks whose text made it into the rendered prompt, caller-supplied
// documents first, then retrieval order; answers cite these.
type Prompt struct {
	System   string
	Context  []core.ScoredChunk
	Question string
}

// User renders the context block and the question for the user message.
func (p Prompt) User() string {
	var b strings.Builder
	if len(p.Context) == 0 {
		b.WriteString(NoContextMarker)
		b.WriteString("\n\n")
	} else {
		b.WriteString("Context from the policy index:\n\n")
		for i, sc := range p.Context {
			fmt.Fprintf(&b, "[%d] (%s)\n%s\n\n", i+1, sc.Chunk.SourceID, sc.Chunk.Text)
		}
	}
	b.WriteString("Question: ")
	b.WriteString(p.Question)
	return b.String()
}

// Len is the total rendered length the budget applies to.
func (p Prompt) Len() int {
	return len(p.System) + len(p.User())
}

// Composer deterministically assembles prompts under a character budget.
type Composer struct {
	instructions string
	budget       int
}

// NewComposer creates a composer. Empty instructions fall back to the
// default template; budget must be positive.
func NewComposer(instructions string, budget int) *Composer {
	if instructions == "" {
		instructions = DefaultInstructions
	}
	return &Composer{
		instructions: instructions,
		budget:       budget,
	}
}

// Compose builds the prompt from the query and the retrieved chunks.
// Caller-supplied context documents go ahead of retrieved chunks. When the
// rendered prompt exceeds the budget, chunks are dropped from the tail
// (retrieved before supplied, lowest similarity first) until it fits. A
// prompt that exceeds the budget with no chunks at all fails with
// BudgetExceeded.
func (c *Composer) Compose(query core.Query, results core.RetrievalResult) (Prompt, error) {
	context := make([]core.ScoredChunk, 0, len(query.ContextDocs)+len(results))
	for i, doc := range query.ContextDocs {
		if strings.TrimSpace(doc.Text) == "" {
			continue
		}
		sourceID := doc.SourceID
		if sourceID == "" {
			sourceID = fmt.Sprintf("upload-%d", i+1)
		}
		context = append(context, core.ScoredChunk{
			Chunk: core.Chunk{
				ID:       core.ChunkID(sourceID, 0),
				SourceID: sourceID,
				Text:     doc.Text,
				Metadata: doc.Metadata,
			},
			// Supplied context outranks anything retrieved.
			Score: 1,
		})
	}
	context = append(context, results...)

	prompt := Prompt{
		System:   c.instructions,
		Context:  context,
		Question: strings.TrimSpace(query.Text),
	}

	for prompt.Len() > c.budget && len(prompt.Context) > 0 {
		prompt.Context = prompt.Context[:len(prompt.Context)-1]
	}

	if prompt.Len() > c.budget {
		return Prompt{}, core.NewPipelineError(core.KindBudgetExceeded, core.StageCompose,
			fmt.Errorf("prompt is %d chars with no context left, budget is %d", prompt.Len(), c.budget))
	}

	return prompt, nil
}
