package llm

import (
	"errors"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain object", `{"is_opportunity": true}`, `{"is_opportunity": true}`},
		{"prose around object", "Sure, here is the verdict:\n{\"is_opportunity\": false}\nHope that helps.", `{"is_opportunity": false}`},
		{"code fence", "```json\n{\"reason\": \"x\"}\n```", `{"reason": "x"}`},
		{"no json", "I cannot assess this.", "I cannot assess this."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.input))
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	result, err := parseAnalysis(`Verdict: {"is_opportunity": true, "reason": "series B round", "company_name": "Kueski"}`)
	require.NoError(t, err)
	assert.True(t, result.IsOpportunity)
	assert.Equal(t, "Kueski", result.CompanyName)
}

func TestParseAnalysisEmpty(t *testing.T) {
	_, err := parseAnalysis("   ")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestIsQuotaError(t *testing.T) {
	assert.True(t, IsQuotaError(&openai.APIError{HTTPStatusCode: 429}))
	assert.True(t, IsQuotaError(errors.New("insufficient quota for this model")))
	assert.True(t, IsQuotaError(errors.New("Rate limit reached for requests")))
	assert.False(t, IsQuotaError(errors.New("connection refused")))
	assert.False(t, IsQuotaError(nil))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&openai.APIError{HTTPStatusCode: 503}))
	assert.True(t, IsTransient(errors.New("context deadline exceeded")))
	assert.True(t, IsTransient(errors.New("dial tcp: connection refused")))
	assert.False(t, IsTransient(&openai.APIError{HTTPStatusCode: 429}))
	assert.False(t, IsTransient(errors.New("invalid request")))
	assert.False(t, IsTransient(nil))
}
