package learning

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emontero/opphunter/internal/core/domain"
)

type mockStore struct {
	candidates map[string]*domain.Candidate
	updates    []domain.Status
}

func (m *mockStore) GetByID(_ context.Context, id string) (*domain.Candidate, error) {
	c, ok := m.candidates[id]
	if !ok {
		return nil, fmt.Errorf("candidate %s not found", id)
	}

	return c, nil
}

func (m *mockStore) UpdateStatus(_ context.Context, id string, status domain.Status, _ float32, _ string) error {
	m.candidates[id].Status = status
	m.updates = append(m.updates, status)

	return nil
}

type mockSink struct {
	positives []string
	negatives []string
	reasons   []string
}

func (m *mockSink) AddPositive(_ context.Context, text string) error {
	m.positives = append(m.positives, text)

	return nil
}

func (m *mockSink) AddNegative(_ context.Context, text, reason string) error {
	m.negatives = append(m.negatives, text)
	m.reasons = append(m.reasons, reason)

	return nil
}

func newTestLoop(store *mockStore, sink *mockSink) *Loop {
	logger := zerolog.Nop()

	return New(store, sink, &logger)
}

func notifiedCandidate(id string) *domain.Candidate {
	return &domain.Candidate{ID: id, SourceURL: "https://example.com/" + id, Text: "Banco Azteca launches digital wallet", Status: domain.StatusNotified}
}

func TestOnAIRejectionAddsNegativeExample(t *testing.T) {
	sink := &mockSink{}
	loop := newTestLoop(&mockStore{candidates: map[string]*domain.Candidate{}}, sink)

	c := domain.Candidate{Text: "market overview 2026", Status: domain.StatusDetected}
	require.NoError(t, loop.OnAIRejection(context.Background(), c, "no actionable signal"))

	require.Len(t, sink.negatives, 1)
	assert.Equal(t, "market overview 2026", sink.negatives[0])
	assert.Equal(t, "no actionable signal", sink.reasons[0])
}

func TestOnUserFeedbackRelevant(t *testing.T) {
	store := &mockStore{candidates: map[string]*domain.Candidate{"c1": notifiedCandidate("c1")}}
	sink := &mockSink{}
	loop := newTestLoop(store, sink)

	require.NoError(t, loop.OnUserFeedback(context.Background(), "c1", DecisionRelevant, ""))

	assert.Equal(t, domain.StatusRelevant, store.candidates["c1"].Status)
	require.Len(t, sink.positives, 1)
	assert.Equal(t, "Banco Azteca launches digital wallet", sink.positives[0])
}

func TestOnUserFeedbackIrrelevantWithComment(t *testing.T) {
	store := &mockStore{candidates: map[string]*domain.Candidate{"c1": notifiedCandidate("c1")}}
	sink := &mockSink{}
	loop := newTestLoop(store, sink)

	require.NoError(t, loop.OnUserFeedback(context.Background(), "c1", DecisionIrrelevant, "wrong industry"))

	assert.Equal(t, domain.StatusIrrelevant, store.candidates["c1"].Status)
	require.Len(t, sink.negatives, 1)
	assert.Equal(t, "wrong industry", sink.reasons[0])
}

func TestRepeatedFeedbackOverwritesStatusAppendsExamples(t *testing.T) {
	store := &mockStore{candidates: map[string]*domain.Candidate{"c1": notifiedCandidate("c1")}}
	sink := &mockSink{}
	loop := newTestLoop(store, sink)
	ctx := context.Background()

	require.NoError(t, loop.OnUserFeedback(ctx, "c1", DecisionRelevant, ""))
	require.NoError(t, loop.OnUserFeedback(ctx, "c1", DecisionIrrelevant, "changed my mind"))

	// Status is overwritten, not duplicated; both examples are kept.
	assert.Equal(t, domain.StatusIrrelevant, store.candidates["c1"].Status)
	assert.Equal(t, []domain.Status{domain.StatusRelevant, domain.StatusIrrelevant}, store.updates)
	assert.Len(t, sink.positives, 1)
	assert.Len(t, sink.negatives, 1)
}

func TestFeedbackOnUnknownCandidate(t *testing.T) {
	loop := newTestLoop(&mockStore{candidates: map[string]*domain.Candidate{}}, &mockSink{})

	err := loop.OnUserFeedback(context.Background(), "ghost", DecisionRelevant, "")
	assert.ErrorIs(t, err, ErrUnknownCandidate)
}

func TestFeedbackInvalidDecision(t *testing.T) {
	loop := newTestLoop(&mockStore{candidates: map[string]*domain.Candidate{}}, &mockSink{})

	err := loop.OnUserFeedback(context.Background(), "c1", "maybe", "")
	assert.ErrorIs(t, err, ErrInvalidDecision)
}

func TestFeedbackBeforeNotificationRejected(t *testing.T) {
	c := notifiedCandidate("c1")
	c.Status = domain.StatusDetected
	store := &mockStore{candidates: map[string]*domain.Candidate{"c1": c}}
	loop := newTestLoop(store, &mockSink{})

	err := loop.OnUserFeedback(context.Background(), "c1", DecisionRelevant, "")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	// No partial write.
	assert.Equal(t, domain.StatusDetected, store.candidates["c1"].Status)
}
