package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Sayrikey1/Code-and-Clause/internal/logger"
)

// TEIEmbedder calls a self-hosted text-embeddings-inference server (the
// sentence-transformers deployment the policy index was built with).
type TEIEmbedder struct {
	baseURL    string
	dim        int
	httpClient *http.Client
}

// NewTEIEmbedder creates an embedder backed by the service at baseURL.
func NewTEIEmbedder(baseURL string, dim int, timeout time.Duration) *TEIEmbedder {
	return &TEIEmbedder{
		baseURL: baseURL,
		dim:     dim,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type teiRequest struct {
	Inputs    string `json:"inputs"`
	Normalize bool   `json:"normalize"`
}

// EmbedQuery embeds a single text span.
func (e *TEIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}

	body, err := json.Marshal(teiRequest{Inputs: text, Normalize: true})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	// The service returns one vector per input: [[...]].
	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding service returned no vectors")
	}
	if e.dim > 0 && len(vectors[0]) != e.dim {
		logger.Warn("Embedding dimension mismatch: expected %d, got %d", e.dim, len(vectors[0]))
	}

	return vectors[0], nil
}

// Dimension returns the configured embedding dimension.
func (e *TEIEmbedder) Dimension() int {
	return e.dim
}
