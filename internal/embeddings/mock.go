package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// LCG constants for deterministic pseudo-random vector generation.
const (
	lcgMultiplier = 6364136223846793005
	lcgIncrement  = 1442695040888963407
	seedShift     = 33
	floatScale    = 0x40000000
)

// MockClient generates deterministic embeddings from a text hash. The same
// input always yields the same vector, which gives tests stable similarity
// relationships without a backend.
type MockClient struct {
	dimensions int
}

// NewMockClient creates a mock embedding client.
func NewMockClient(dimensions int) *MockClient {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}

	return &MockClient{dimensions: dimensions}
}

// Dimensions returns the output vector length.
func (c *MockClient) Dimensions() int {
	return c.dimensions
}

// GetEmbedding returns a unit vector derived deterministically from the text.
func (c *MockClient) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, c.dimensions)
	for i := range vec {
		seed = seed*lcgMultiplier + lcgIncrement
		//nolint:gosec // intentional uint64->int64 conversion for pseudo-random generation
		vec[i] = float32(int64(seed>>seedShift)-floatScale) / float32(floatScale)
	}

	return normalizeVector(vec), nil
}

func normalizeVector(vec []float32) []float32 {
	var sum float32
	for _, v := range vec {
		sum += v * v
	}

	if sum == 0 {
		return vec
	}

	norm := float32(math.Sqrt(float64(sum)))
	for i := range vec {
		vec[i] /= norm
	}

	return vec
}
