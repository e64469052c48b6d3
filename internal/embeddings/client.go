// Package embeddings provides text embedding generation for the relevance
// filter. A single provider is wrapped with a circuit breaker; when the
// circuit is open the filter falls back to its statistical model.
package embeddings

import (
	"context"
	"errors"
	"math"
)

// DefaultDimensions is the embedding vector length stored in the example
// store and the database schema.
const DefaultDimensions = 1536

// ErrUnavailable indicates the embedding backend cannot serve requests.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Client generates fixed-length embeddings for candidate and example text.
type Client interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// CosineSimilarity computes the cosine similarity of two vectors. Mismatched
// or zero-length vectors yield 0.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float32

	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / float32(math.Sqrt(float64(normA))*math.Sqrt(float64(normB)))
}
