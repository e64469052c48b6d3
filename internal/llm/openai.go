package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/observability"
)

const rateLimiterBurst = 5

type openaiAnalyzer struct {
	client      *openai.Client
	rateLimiter *rate.Limiter
	timeout     time.Duration
	logger      *zerolog.Logger
}

// NewOpenAI creates an analyzer backed by the OpenAI-compatible chat API.
// The model is chosen per call so one client serves the whole rotation.
func NewOpenAI(apiKey string, rps float64, timeout time.Duration, logger *zerolog.Logger) Analyzer {
	return &openaiAnalyzer{
		client:      openai.NewClient(apiKey),
		rateLimiter: rate.NewLimiter(rate.Limit(rps), rateLimiterBurst),
		timeout:     timeout,
		logger:      logger,
	}
}

func (a *openaiAnalyzer) Analyze(ctx context.Context, text, sourceType, model string) (*domain.AnalysisResult, error) {
	if err := a.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()

	resp, err := a.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildAnalysisPrompt(text, sourceType),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})

	observability.AnalysisDuration.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("chat completion (%s): %w", model, err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug().Str("model", model).Str("content", content).Msg("analysis response")

	result, err := parseAnalysis(content)
	if err != nil {
		return nil, fmt.Errorf("parse analysis from %s: %w", model, err)
	}

	return result, nil
}

// parseAnalysis decodes the backend's verdict, tolerating prose around the
// JSON object.
func parseAnalysis(content string) (*domain.AnalysisResult, error) {
	content = extractJSON(content)
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyResponse
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("unmarshal verdict: %w", err)
	}

	return &result, nil
}

// extractJSON returns the outermost JSON object in text, or text unchanged
// when no braces are found.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start != -1 && end != -1 && end > start {
		return text[start : end+1]
	}

	return text
}
