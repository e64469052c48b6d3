package embeddings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const openaiRateLimiterBurst = 5

// ErrEmptyResponse indicates an empty embedding response from the API.
var ErrEmptyResponse = errors.New("empty embedding response")

// OpenAIConfig holds configuration for the OpenAI embedding client.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	RateLimit  float64 // requests per second
	Timeout    time.Duration
}

// OpenAIClient implements Client against the OpenAI embeddings API.
type OpenAIClient struct {
	client      *openai.Client
	model       string
	dimensions  int
	timeout     time.Duration
	rateLimiter *rate.Limiter
	breaker     *CircuitBreaker
}

// NewOpenAIClient creates a rate-limited, circuit-broken embedding client.
func NewOpenAIClient(cfg OpenAIConfig, logger *zerolog.Logger) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}

	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.RateLimit == 0 {
		cfg.RateLimit = 1
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &OpenAIClient{
		client:      openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		dimensions:  cfg.Dimensions,
		timeout:     cfg.Timeout,
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), openaiRateLimiterBurst),
		breaker:     NewCircuitBreaker(logger),
	}
}

// Dimensions returns the configured output vector length.
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}

// GetEmbedding generates an embedding for the given text.
func (c *OpenAIClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if err := c.breaker.CheckCircuit(); err != nil {
		return nil, err
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: c.dimensions,
	})
	if err != nil {
		c.breaker.RecordFailure()

		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		c.breaker.RecordFailure()

		return nil, ErrEmptyResponse
	}

	c.breaker.RecordSuccess()

	return resp.Data[0].Embedding, nil
}
