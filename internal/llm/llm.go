// Package llm performs the expensive deep-analysis step: a full structured
// assessment of a candidate by a configurable chat-completion backend.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/emontero/opphunter/internal/core/domain"
)

// ErrEmptyResponse indicates the backend returned no usable content.
var ErrEmptyResponse = errors.New("empty analysis response")

// Analyzer runs the structured opportunity assessment against one model.
type Analyzer interface {
	Analyze(ctx context.Context, text, sourceType, model string) (*domain.AnalysisResult, error)
}

// IsQuotaError reports whether err means the backend's budget is exhausted
// for this billing window. Quota errors advance the backend rotation instead
// of being retried on the same model.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return true
		}

		if apiErr.Code != nil {
			if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "insufficient_quota") {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}

// IsTransient reports whether err is worth one more attempt on the same
// backend later in the cycle (network hiccups, 5xx).
func IsTransient(err error) bool {
	if err == nil || IsQuotaError(err) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode >= 500
	}

	msg := strings.ToLower(err.Error())

	for _, pattern := range []string{"timeout", "deadline exceeded", "connection refused", "connection reset", "temporary", "unavailable", "eof"} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
