package core

import "fmt"

// DefaultEmbeddingDim matches the all-mpnet-base-v2 sentence-transformer
// the policy index was originally built with.
const DefaultEmbeddingDim = 768

// ChunkID builds the deterministic chunk identifier for a source ordinal.
func ChunkID(sourceID string, ordinal int) string {
	return fmt.Sprintf("%s#%d", sourceID, ordinal)
}

// Chunk is one retrievable span of policy-document text. Chunks are
// immutable once indexed; re-ingesting a source replaces its whole chunk set.
type Chunk struct {
	ID        string                 `json:"id"`
	SourceID  string                 `json:"source_id"`
	Ordinal   int                    `json:"ordinal"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt int64                  `json:"created_at,omitempty"`

	// Embedding is populated on the ingestion path and omitted from
	// retrieval results and API responses.
	Embedding []float32 `json:"-"`
}

// Query is a single user question. FromVoice records that the text came out
// of a voice transcription upstream; transcription itself happens there.
// ContextDocs carries already-extracted text the caller supplied alongside
// the question; it is injected ahead of anything retrieved from the index
// and is never persisted.
type Query struct {
	Text        string       `json:"text"`
	FromVoice   bool         `json:"from_voice,omitempty"`
	ContextDocs []SourceText `json:"context_documents,omitempty"`
}

// ScoredChunk pairs a chunk with its similarity to the query vector.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float32 `json:"score"`
}

// RetrievalResult is an ordered sequence of scored chunks, descending by
// score. Ties keep ingestion order (SourceID, then Ordinal).
type RetrievalResult []ScoredChunk

// Citation points at a chunk whose text was part of the generation prompt.
type Citation struct {
	ChunkID  string  `json:"chunk_id"`
	SourceID string  `json:"source_id"`
	Score    float32 `json:"score"`
}

// Answer is the synthesized response plus the chunks that supported it,
// in prompt order.
type Answer struct {
	Text    string     `json:"text"`
	Sources []Citation `json:"sources"`
}

// SourceText is one ingestion input: the full extracted text of a source
// document, keyed by its stable identifier.
type SourceText struct {
	SourceID string                 `json:"source_id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
