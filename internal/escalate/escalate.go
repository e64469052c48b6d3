// Package escalate submits filtered candidates to the expensive analysis
// backend, rotating through configured backend identities as each one runs
// out of quota.
package escalate

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/config"
	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/llm"
	"github.com/emontero/opphunter/internal/observability"
)

// ErrBackendExhausted means every identity in the rotation is over quota.
// The caller stops escalating for the rest of the cycle; collected
// candidates keep their current status and re-enter the next cycle.
var ErrBackendExhausted = errors.New("all analysis backends exhausted")

type backendState struct {
	name  string
	limit int
	calls int
}

// Gate holds the rotation and retry state for one cycle. Construct a fresh
// Gate per cycle; counters and the retry queue must never leak across
// cycles.
type Gate struct {
	analyzer llm.Analyzer
	backends []backendState
	current  int
	retries  []domain.Candidate
	logger   *zerolog.Logger
}

// NewGate builds a cycle-scoped gate from the ordered rotation table.
func NewGate(analyzer llm.Analyzer, rotation []config.Backend, logger *zerolog.Logger) *Gate {
	backends := make([]backendState, len(rotation))
	for i, b := range rotation {
		backends[i] = backendState{name: b.Name, limit: b.Limit}
	}

	return &Gate{
		analyzer: analyzer,
		backends: backends,
		logger:   logger,
	}
}

// Submit analyzes one candidate. Quota exhaustion on the current backend
// advances the rotation and retries the same candidate immediately; a
// transient failure parks the candidate on the retry queue and returns nil.
// ErrBackendExhausted is returned only when every identity is over quota.
func (g *Gate) Submit(ctx context.Context, c domain.Candidate) (*domain.AnalysisResult, error) {
	for {
		backend, ok := g.currentBackend()
		if !ok {
			observability.Escalations.WithLabelValues("exhausted").Inc()

			return nil, ErrBackendExhausted
		}

		result, err := g.analyzer.Analyze(ctx, c.Text, c.SourceType, backend)
		if err == nil {
			observability.Escalations.WithLabelValues("analyzed").Inc()

			return result, nil
		}

		if llm.IsQuotaError(err) {
			g.logger.Warn().Err(err).Str("backend", backend).Msg("backend quota exhausted, rotating")
			g.rotate(backend)

			continue
		}

		if llm.IsTransient(err) {
			g.logger.Warn().Err(err).Str("backend", backend).Str("candidate", c.SourceURL).Msg("transient analysis failure, queuing retry")
			observability.Escalations.WithLabelValues("retry_queued").Inc()
			g.retries = append(g.retries, c)

			return nil, nil
		}

		observability.Escalations.WithLabelValues("failed").Inc()

		return nil, fmt.Errorf("analyze candidate %s: %w", c.SourceURL, err)
	}
}

// currentBackend returns the first identity in the rotation with quota left,
// advancing past any that hit their limit. The per-backend call counter is
// charged here so rotation on limit needs no separate bookkeeping.
func (g *Gate) currentBackend() (string, bool) {
	for g.current < len(g.backends) {
		b := &g.backends[g.current]
		if b.calls < b.limit {
			b.calls++

			return b.name, true
		}

		g.advance(b.name, "limit reached")
	}

	return "", false
}

func (g *Gate) rotate(from string) {
	// The failed call already consumed this backend's quota slot; mark the
	// identity exhausted so it is not tried again this cycle.
	g.backends[g.current].calls = g.backends[g.current].limit
	g.advance(from, "quota error")
}

func (g *Gate) advance(from, why string) {
	g.current++

	to := "none"
	if g.current < len(g.backends) {
		to = g.backends[g.current].name
	}

	observability.BackendRotations.WithLabelValues(from, to).Inc()
	g.logger.Info().Str("from", from).Str("to", to).Str("why", why).Msg("advancing backend rotation")
}

// RetryOutcome is the disposition of one retry-queue entry.
type RetryOutcome struct {
	Candidate domain.Candidate
	Result    *domain.AnalysisResult
	Err       error
}

// DrainRetries re-attempts each queued candidate at most once. Entries that
// fail again (or hit an exhausted rotation) come back with a non-nil Err and
// should be marked pending by the caller. The queue is emptied.
func (g *Gate) DrainRetries(ctx context.Context) []RetryOutcome {
	queue := g.retries
	g.retries = nil

	outcomes := make([]RetryOutcome, 0, len(queue))

	for _, c := range queue {
		backend, ok := g.currentBackend()
		if !ok {
			outcomes = append(outcomes, RetryOutcome{Candidate: c, Err: ErrBackendExhausted})

			continue
		}

		result, err := g.analyzer.Analyze(ctx, c.Text, c.SourceType, backend)
		if err != nil {
			observability.Escalations.WithLabelValues("retry_failed").Inc()
			outcomes = append(outcomes, RetryOutcome{Candidate: c, Err: err})

			continue
		}

		observability.Escalations.WithLabelValues("analyzed").Inc()
		outcomes = append(outcomes, RetryOutcome{Candidate: c, Result: result})
	}

	return outcomes
}

// PendingRetries returns how many candidates are parked on the retry queue.
func (g *Gate) PendingRetries() int {
	return len(g.retries)
}
