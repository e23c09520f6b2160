package ingest

import (
	"strings"

	"github.com/Sayrikey1/Code-and-Clause/internal/core"
)

// DefaultChunkSize mirrors the chunk size the index was originally built
// with (1024 tokens ~ 4k characters is too coarse for short regulations,
// so we budget in characters directly).
const DefaultChunkSize = 1500

// Chunker splits source text into retrievable spans. Sentences are grouped
// until the character budget is hit; a sentence that alone exceeds the
// budget becomes its own oversized chunk rather than being split mid-word.
type Chunker struct {
	maxChars int
}

// NewChunker creates a chunker with the given character budget per chunk.
func NewChunker(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultChunkSize
	}
	return &Chunker{maxChars: maxChars}
}

// Split chunks a source document. Chunk ids are deterministic
// ("<source>#<ordinal>") so re-ingestion produces identical ids.
func (c *Chunker) Split(src core.SourceText) []core.Chunk {
	sentences := splitSentences(src.Text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []core.Chunk
	var buffer []string
	bufLen := 0

	flush := func() {
		if len(buffer) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buffer, " "))
		if text != "" {
			ordinal := len(chunks)
			chunks = append(chunks, core.Chunk{
				ID:       core.ChunkID(src.SourceID, ordinal),
				SourceID: src.SourceID,
				Ordinal:  ordinal,
				Text:     text,
				Metadata: src.Metadata,
			})
		}
		buffer = buffer[:0]
		bufLen = 0
	}

	for _, s := range sentences {
		if bufLen > 0 && bufLen+len(s)+1 > c.maxChars {
			flush()
		}
		buffer = append(buffer, s)
		bufLen += len(s) + 1
	}
	flush()

	return chunks
}

// splitSentences breaks text on sentence terminators and blank lines,
// keeping the terminator with its sentence.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	emit := func() {
		s := strings.TrimSpace(b.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' && i+1 < len(runes) && runes[i+1] == '\n' {
			emit()
			continue
		}
		if r == '\n' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			// Terminator only ends a sentence at a following space or EOF,
			// so "4.5" and "s.1(2)" stay intact.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				emit()
			}
		}
	}
	emit()

	return sentences
}
