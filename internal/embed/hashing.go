package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// HashingEmbedder is a deterministic bag-of-words embedder used for offline
// mode and tests. It carries no semantics beyond token overlap, which is
// enough for exercising the retrieval path without an external model.
type HashingEmbedder struct {
	dim int
}

// NewHashingEmbedder creates a hashing embedder with the given dimension.
func NewHashingEmbedder(dim int) *HashingEmbedder {
	if dim <= 0 {
		dim = 64
	}
	return &HashingEmbedder{dim: dim}
}

// EmbedQuery hashes lowercased tokens into vector buckets and normalizes.
func (e *HashingEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, e.dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()[]")
		if token == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(token))
		v[int(h.Sum32())%e.dim]++
	}

	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum > 0 {
		inv := float32(1.0 / math.Sqrt(float64(sum)))
		for i := range v {
			v[i] *= inv
		}
	}

	return v, nil
}

// Dimension returns the embedding dimension.
func (e *HashingEmbedder) Dimension() int {
	return e.dim
}
