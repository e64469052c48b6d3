// Package learning feeds outcome signals back into the relevance filter's
// example store: analysis-stage rejections and user feedback from the
// notification channel.
package learning

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/observability"
)

// Feedback decisions accepted from the notification channel.
const (
	DecisionRelevant   = "relevant"
	DecisionIrrelevant = "irrelevant"
)

var (
	// ErrUnknownCandidate is returned for feedback that names a candidate
	// the store has never seen.
	ErrUnknownCandidate = errors.New("unknown candidate id")

	// ErrInvalidDecision is returned for a decision outside the accepted set.
	ErrInvalidDecision = errors.New("invalid feedback decision")

	// ErrInvalidTransition means the feedback would move the candidate
	// against the status state machine, e.g. feedback on one never notified.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// CandidateStore is the persistence surface the loop needs.
type CandidateStore interface {
	GetByID(ctx context.Context, id string) (*domain.Candidate, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, score float32, rationale string) error
}

// ExampleSink is the filter-side surface: appending labeled examples.
type ExampleSink interface {
	AddPositive(ctx context.Context, text string) error
	AddNegative(ctx context.Context, text, reason string) error
}

// Loop wires outcome signals to the example store and the candidate record.
type Loop struct {
	store  CandidateStore
	filter ExampleSink
	logger *zerolog.Logger
}

// New creates the learning loop.
func New(store CandidateStore, filter ExampleSink, logger *zerolog.Logger) *Loop {
	return &Loop{store: store, filter: filter, logger: logger}
}

// OnAIRejection records an analysis-stage rejection as a negative example.
// The rationale rides along with the text so the embedding captures why the
// candidate was turned down. The candidate's status update is the caller's
// responsibility since rejection is decided inside the escalation pass.
func (l *Loop) OnAIRejection(ctx context.Context, c domain.Candidate, rationale string) error {
	if err := l.filter.AddNegative(ctx, c.Text, rationale); err != nil {
		return fmt.Errorf("record rejection example: %w", err)
	}

	observability.FeedbackEvents.WithLabelValues("ai_rejected").Inc()
	l.logger.Debug().Str("candidate", c.SourceURL).Str("rationale", rationale).Msg("ai rejection recorded")

	return nil
}

// OnUserFeedback applies a button-click decision from the notification
// channel. Repeated feedback on the same candidate overwrites the stored
// status but still appends a fresh example; reinforcement is intentional.
func (l *Loop) OnUserFeedback(ctx context.Context, candidateID, decision, comment string) error {
	var target domain.Status

	switch decision {
	case DecisionRelevant:
		target = domain.StatusRelevant
	case DecisionIrrelevant:
		target = domain.StatusIrrelevant
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDecision, decision)
	}

	c, err := l.store.GetByID(ctx, candidateID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnknownCandidate, candidateID)
	}

	if !domain.CanTransition(c.Status, target) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.Status, target)
	}

	if err := l.store.UpdateStatus(ctx, c.ID, target, c.Score, comment); err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}

	if target == domain.StatusRelevant {
		err = l.filter.AddPositive(ctx, c.Text)
	} else {
		err = l.filter.AddNegative(ctx, c.Text, comment)
	}

	if err != nil {
		return fmt.Errorf("record feedback example: %w", err)
	}

	observability.FeedbackEvents.WithLabelValues(decision).Inc()
	l.logger.Info().Str("candidate", c.ID).Str("decision", decision).Msg("user feedback applied")

	return nil
}
