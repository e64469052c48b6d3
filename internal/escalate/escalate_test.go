package escalate

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emontero/opphunter/internal/config"
	"github.com/emontero/opphunter/internal/core/domain"
)

// scriptedAnalyzer fails or succeeds per backend name and records which
// backend served each call.
type scriptedAnalyzer struct {
	fail  map[string]error
	calls []string
}

func (s *scriptedAnalyzer) Analyze(_ context.Context, text, _, model string) (*domain.AnalysisResult, error) {
	s.calls = append(s.calls, model)

	if err, ok := s.fail[model]; ok {
		return nil, err
	}

	return &domain.AnalysisResult{IsOpportunity: true, OpportunitySummary: text}, nil
}

func newTestGate(analyzer *scriptedAnalyzer, rotation []config.Backend) *Gate {
	logger := zerolog.Nop()

	return NewGate(analyzer, rotation, &logger)
}

func cand(url string) domain.Candidate {
	return domain.Candidate{SourceURL: url, Text: "fintech expansion in Mexico", Status: domain.StatusDetected}
}

func TestRotationFallback(t *testing.T) {
	analyzer := &scriptedAnalyzer{}
	gate := newTestGate(analyzer, []config.Backend{
		{Name: "b1", Limit: 1},
		{Name: "b2", Limit: 1},
	})
	ctx := context.Background()

	first, err := gate.Submit(ctx, cand("u1"))
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := gate.Submit(ctx, cand("u2"))
	require.NoError(t, err)
	require.NotNil(t, second)

	_, err = gate.Submit(ctx, cand("u3"))
	assert.ErrorIs(t, err, ErrBackendExhausted)

	assert.Equal(t, []string{"b1", "b2"}, analyzer.calls)
}

func TestQuotaErrorRetriesSameCandidateOnNextBackend(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		fail: map[string]error{"b1": &openai.APIError{HTTPStatusCode: 429}},
	}
	gate := newTestGate(analyzer, []config.Backend{
		{Name: "b1", Limit: 10},
		{Name: "b2", Limit: 10},
	})

	result, err := gate.Submit(context.Background(), cand("u1"))
	require.NoError(t, err)
	require.NotNil(t, result)

	// Same candidate, retried immediately on the next identity.
	assert.Equal(t, []string{"b1", "b2"}, analyzer.calls)
}

func TestQuotaErrorOnEveryBackendExhausts(t *testing.T) {
	quota := &openai.APIError{HTTPStatusCode: 429}
	analyzer := &scriptedAnalyzer{fail: map[string]error{"b1": quota, "b2": quota}}
	gate := newTestGate(analyzer, []config.Backend{
		{Name: "b1", Limit: 5},
		{Name: "b2", Limit: 5},
	})

	_, err := gate.Submit(context.Background(), cand("u1"))
	assert.ErrorIs(t, err, ErrBackendExhausted)
}

func TestTransientFailureQueuesRetry(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		fail: map[string]error{"b1": errors.New("context deadline exceeded")},
	}
	gate := newTestGate(analyzer, []config.Backend{{Name: "b1", Limit: 5}})
	ctx := context.Background()

	result, err := gate.Submit(ctx, cand("u1"))
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, gate.PendingRetries())

	// Backend recovers before the drain.
	analyzer.fail = nil

	outcomes := gate.DrainRetries(ctx)
	require.Len(t, outcomes, 1)
	assert.NoError(t, outcomes[0].Err)
	assert.NotNil(t, outcomes[0].Result)
	assert.Equal(t, 0, gate.PendingRetries())
}

func TestDrainRetriesFailsAtMostOnce(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		fail: map[string]error{"b1": errors.New("connection refused")},
	}
	gate := newTestGate(analyzer, []config.Backend{{Name: "b1", Limit: 5}})
	ctx := context.Background()

	_, err := gate.Submit(ctx, cand("u1"))
	require.NoError(t, err)

	outcomes := gate.DrainRetries(ctx)
	require.Len(t, outcomes, 1)
	assert.Error(t, outcomes[0].Err)
	assert.Equal(t, "u1", outcomes[0].Candidate.SourceURL)

	// Retried exactly once; the queue does not re-accumulate.
	assert.Equal(t, 0, gate.PendingRetries())
	assert.Empty(t, gate.DrainRetries(ctx))
}

func TestPermanentErrorSurfaces(t *testing.T) {
	analyzer := &scriptedAnalyzer{
		fail: map[string]error{"b1": errors.New("invalid request payload")},
	}
	gate := newTestGate(analyzer, []config.Backend{{Name: "b1", Limit: 5}})

	_, err := gate.Submit(context.Background(), cand("u1"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrBackendExhausted)
}
