package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emontero/opphunter/internal/core/domain"
)

// mockEmbedder returns hand-built vectors per text so similarity
// relationships in tests are exact.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (m *mockEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}

	if v, ok := m.vectors[text]; ok {
		return v, nil
	}

	return []float32{0, 0, 1}, nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }

type stubFallback struct{ p float64 }

func (s stubFallback) Predict(string) float64 { return s.p }

func newTestFilter(t *testing.T, embedder *mockEmbedder, fallback FallbackModel) *Filter {
	t.Helper()

	logger := zerolog.Nop()

	return New(embedder, NewExampleStore(100, nil), fallback, 0.65, &logger)
}

func cand(url, text string, offset time.Duration) domain.Candidate {
	return domain.Candidate{
		SourceURL:    url,
		Text:         text,
		Status:       domain.StatusDetected,
		DiscoveredAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset),
	}
}

func TestScoreEmptyStoreNoFallbackIsNeutral(t *testing.T) {
	f := newTestFilter(t, &mockEmbedder{}, nil)

	s, err := f.Score(context.Background(), "anything")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, s.Value, 1e-6)
}

func TestScoreEmptyStoreUsesFallback(t *testing.T) {
	f := newTestFilter(t, &mockEmbedder{}, stubFallback{p: 0.82})

	s, err := f.Score(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, s.Fallback)
	assert.InDelta(t, 0.82, s.Value, 1e-6)
}

func TestScoreEmbedderDownUsesFallback(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("dial tcp: timeout")}
	f := newTestFilter(t, embedder, stubFallback{p: 0.3})
	f.store.Warm([]domain.Example{{Text: "seen", Label: domain.LabelPositive, Embedding: []float32{1, 0, 0}}})

	s, err := f.Score(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, s.Fallback)
	assert.InDelta(t, 0.3, s.Value, 1e-6)
}

func TestScoreNothingAvailable(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("dial tcp: timeout")}
	f := newTestFilter(t, embedder, nil)
	f.store.Warm([]domain.Example{{Text: "seen", Label: domain.LabelPositive, Embedding: []float32{1, 0, 0}}})

	_, err := f.Score(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrScoringUnavailable)
}

func TestScoreNamesNearestExample(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"new deal": {0.9, 0.1, 0},
	}}
	f := newTestFilter(t, embedder, nil)
	f.store.Warm([]domain.Example{
		{Text: "corporate venture deal", Label: domain.LabelPositive, Embedding: []float32{1, 0, 0}},
		{Text: "celebrity gossip", Label: domain.LabelNegative, Embedding: []float32{0, 1, 0}},
	})

	s, err := f.Score(context.Background(), "new deal")
	require.NoError(t, err)
	assert.Greater(t, s.Value, float32(0.65))
	assert.Contains(t, s.Explanation, "positive")
	assert.Contains(t, s.Explanation, "corporate venture deal")
}

func TestLearningRoundTrip(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{
		"santander launches venture studio": {1, 0, 0},
	}}
	f := newTestFilter(t, embedder, nil)
	ctx := context.Background()

	before, err := f.Score(ctx, "santander launches venture studio")
	require.NoError(t, err)

	require.NoError(t, f.AddPositive(ctx, "santander launches venture studio"))

	after, err := f.Score(ctx, "santander launches venture studio")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, after.Value, before.Value)
	assert.InDelta(t, 1.0, after.Value, 1e-6)
}

func negativeSeededFilter(t *testing.T, vectors map[string][]float32) *Filter {
	t.Helper()

	f := newTestFilter(t, &mockEmbedder{vectors: vectors}, nil)
	f.store.Warm([]domain.Example{
		{Text: "spam one", Label: domain.LabelNegative, Embedding: []float32{0, 1, 0}},
	})

	return f
}

func TestBatchFilterTopKGuarantee(t *testing.T) {
	vectors := map[string][]float32{
		"b": {0.1, 0.9, 0},
		"c": {0.5, 0.5, 0},
		"d": {0.2, 0.8, 0},
		"e": {0.3, 0.7, 0},
	}
	f := negativeSeededFilter(t, vectors)

	batch := []domain.Candidate{
		cand("u-b", "b", 0),
		cand("u-c", "c", time.Minute),
		cand("u-d", "d", 2*time.Minute),
		cand("u-e", "e", 3*time.Minute),
	}

	// All score below threshold; top-K still forwards exactly K. With no
	// positive example every score bottoms out, so ties break by earlier
	// discovery timestamp.
	got := f.BatchFilter(context.Background(), batch, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "u-b", got[0].SourceURL)
	assert.Equal(t, "u-c", got[1].SourceURL)
}

func TestBatchFilterSmallBatchReturnsAll(t *testing.T) {
	f := negativeSeededFilter(t, map[string][]float32{"b": {0.1, 0.9, 0}})

	got := f.BatchFilter(context.Background(), []domain.Candidate{cand("u-b", "b", 0)}, 10)
	assert.Len(t, got, 1)
}

func TestBatchFilterThresholdUnionTopK(t *testing.T) {
	vectors := map[string][]float32{
		"a": {0.9, 0.1, 0},
		"b": {0.1, 0.9, 0},
		"c": {0.5, 0.5, 0},
		"d": {0.2, 0.8, 0},
		"e": {0.3, 0.7, 0},
	}
	f := negativeSeededFilter(t, vectors)
	f.store.Warm([]domain.Example{
		{Text: "good deal", Label: domain.LabelPositive, Embedding: []float32{1, 0, 0}},
		{Text: "spam one", Label: domain.LabelNegative, Embedding: []float32{0, 1, 0}},
	})

	batch := []domain.Candidate{
		cand("u-a", "a", 0),
		cand("u-b", "b", time.Minute),
		cand("u-c", "c", 2*time.Minute),
		cand("u-d", "d", 3*time.Minute),
		cand("u-e", "e", 4*time.Minute),
	}

	got := f.BatchFilter(context.Background(), batch, 3)
	require.Len(t, got, 3)
	assert.Equal(t, "u-a", got[0].SourceURL)
	assert.Equal(t, "u-c", got[1].SourceURL)
	assert.Equal(t, "u-e", got[2].SourceURL)
}

func TestBatchFilterTieBreaksByDiscoveryTime(t *testing.T) {
	vectors := map[string][]float32{
		"same": {0.4, 0.6, 0},
	}
	f := negativeSeededFilter(t, vectors)

	later := cand("u-later", "same", time.Hour)
	earlier := cand("u-earlier", "same", 0)

	got := f.BatchFilter(context.Background(), []domain.Candidate{later, earlier}, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "u-earlier", got[0].SourceURL)
}

func TestBatchFilterPassesUnscorableCandidates(t *testing.T) {
	embedder := &mockEmbedder{err: errors.New("dial tcp: timeout")}
	f := newTestFilter(t, embedder, nil)
	f.store.Warm([]domain.Example{{Text: "seen", Label: domain.LabelNegative, Embedding: []float32{0, 1, 0}}})

	got := f.BatchFilter(context.Background(), []domain.Candidate{cand("u-x", "x", 0)}, 0)
	require.Len(t, got, 1)
	assert.Equal(t, "u-x", got[0].SourceURL)
}

func TestAddNegativeFoldsReason(t *testing.T) {
	embedder := &mockEmbedder{vectors: map[string][]float32{}}
	f := newTestFilter(t, embedder, nil)

	require.NoError(t, f.AddNegative(context.Background(), "some article", "not an ICP company"))

	snapshot := f.store.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, domain.LabelNegative, snapshot[0].Label)
	assert.Contains(t, snapshot[0].Text, "Rejection reason: not an ICP company")
}
