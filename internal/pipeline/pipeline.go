// Package pipeline orchestrates one collection cycle: collect, deduplicate,
// filter, escalate, record outcomes. A cycle is a single sequential pass over
// a bounded batch; the feedback server runs beside it, not inside it.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/collect"
	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/dedup"
	"github.com/emontero/opphunter/internal/escalate"
	"github.com/emontero/opphunter/internal/filter"
	"github.com/emontero/opphunter/internal/learning"
	"github.com/emontero/opphunter/internal/notify"
	"github.com/emontero/opphunter/internal/observability"
)

// CandidateStore is the persistence surface the pipeline needs.
type CandidateStore interface {
	InsertCandidate(ctx context.Context, c domain.Candidate) (string, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, score float32, rationale string) error
	MarkNotified(ctx context.Context, id, company string, score float32, rationale string, analysis []byte) error
	Recent(ctx context.Context, windowDays int) ([]domain.Candidate, error)
	KnownURLs(ctx context.Context) (map[string]struct{}, error)
	PendingCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// Config holds the pipeline's tunables.
type Config struct {
	TopK       int
	WindowDays int
	Interval   time.Duration
}

// Pipeline wires the stages together. The escalation gate is built fresh per
// cycle through newGate so rotation counters never leak across cycles.
type Pipeline struct {
	cfg        Config
	store      CandidateStore
	collectors []collect.Collector
	dedup      *dedup.Deduplicator
	filter     *filter.Filter
	newGate    func() *escalate.Gate
	notifier   notify.Notifier
	loop       *learning.Loop
	logger     *zerolog.Logger
}

// New creates the pipeline.
func New(cfg Config, store CandidateStore, collectors []collect.Collector, dd *dedup.Deduplicator,
	f *filter.Filter, newGate func() *escalate.Gate, notifier notify.Notifier, loop *learning.Loop,
	logger *zerolog.Logger) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		store:      store,
		collectors: collectors,
		dedup:      dd,
		filter:     f,
		newGate:    newGate,
		notifier:   notifier,
		loop:       loop,
		logger:     logger,
	}
}

// Run executes cycles on the configured interval until ctx is canceled. The
// first cycle starts immediately.
func (p *Pipeline) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.Cycle(ctx); err != nil {
			p.logger.Error().Err(err).Msg("cycle failed")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Cycle runs one full pass. Stage-local errors never abort the pass; only a
// store-connectivity failure or context cancellation does.
func (p *Pipeline) Cycle(ctx context.Context) error {
	start := time.Now()
	logger := p.logger.With().Str("cycle_id", uuid.NewString()).Logger()

	defer func() {
		observability.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	batch, err := p.gather(ctx, &logger)
	if err != nil {
		return err
	}

	if len(batch) == 0 {
		logger.Info().Msg("nothing to process this cycle")

		return nil
	}

	selected := p.filter.BatchFilter(ctx, batch, p.cfg.TopK)
	logger.Info().Int("batch", len(batch)).Int("selected", len(selected)).Msg("relevance filter applied")

	p.escalateBatch(ctx, selected, &logger)

	logger.Info().Dur("took", time.Since(start)).Msg("cycle complete")

	return nil
}

// gather re-queues pending candidates, collects fresh documents, and runs
// both duplicate checks: exact URL lookup, then fuzzy window matching.
func (p *Pipeline) gather(ctx context.Context, logger *zerolog.Logger) ([]domain.Candidate, error) {
	pending, err := p.store.PendingCandidates(ctx)
	if err != nil {
		return nil, err
	}

	if len(pending) > 0 {
		observability.PendingRequeued.Add(float64(len(pending)))
		logger.Info().Int("count", len(pending)).Msg("re-queued pending candidates")
	}

	knownURLs, err := p.store.KnownURLs(ctx)
	if err != nil {
		return nil, err
	}

	window, err := p.store.Recent(ctx, p.cfg.WindowDays)
	if err != nil {
		return nil, err
	}

	fingerprints := make(map[string]struct{}, len(window))
	for _, c := range window {
		fingerprints[windowFingerprint(c.Text, c.Headline)] = struct{}{}
	}

	batch := pending

	for _, collector := range p.collectors {
		raws, err := collector.Collect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}

			logger.Warn().Err(err).Str("collector", collector.Name()).Msg("collector failed")
		}

		observability.CandidatesCollected.WithLabelValues(collector.Name()).Add(float64(len(raws)))

		for _, raw := range raws {
			c, ok := p.admit(ctx, raw, knownURLs, fingerprints, window, logger)
			if !ok {
				continue
			}

			batch = append(batch, c)
			window = append(window, c)
			knownURLs[c.SourceURL] = struct{}{}
		}
	}

	return batch, nil
}

// admit converts one raw document into a stored candidate, unless it is
// malformed or a duplicate. Exact duplicates are caught first by content
// fingerprint, then the fuzzy window rules run.
func (p *Pipeline) admit(ctx context.Context, raw collect.Raw, knownURLs, fingerprints map[string]struct{},
	window []domain.Candidate, logger *zerolog.Logger) (domain.Candidate, bool) {
	if raw.Text == "" && raw.Headline == "" {
		logger.Debug().Str("url", raw.URL).Msg("dropping empty document")

		return domain.Candidate{}, false
	}

	if _, seen := knownURLs[raw.URL]; seen {
		observability.DuplicatesDetected.WithLabelValues("known_url").Inc()

		return domain.Candidate{}, false
	}

	fp := windowFingerprint(raw.Text, raw.Headline)
	if _, seen := fingerprints[fp]; seen {
		observability.DuplicatesDetected.WithLabelValues(dedup.ReasonIdenticalFingerprint).Inc()
		logger.Debug().Str("url", raw.URL).Msg("duplicate dropped, identical fingerprint")

		return domain.Candidate{}, false
	}

	c := domain.Candidate{
		SourceURL:    raw.URL,
		Headline:     raw.Headline,
		Text:         raw.Text,
		SourceType:   raw.SourceType,
		CompanyName:  raw.Company,
		Country:      raw.Country,
		Status:       domain.StatusDetected,
		DiscoveredAt: raw.PublishedAt,
	}

	if dup, match := p.dedup.IsDuplicate(c, window); dup {
		observability.DuplicatesDetected.WithLabelValues(match.Reason).Inc()
		logger.Debug().Str("url", raw.URL).Str("reason", match.Reason).Str("matched", match.Headline).Msg("duplicate dropped")

		return domain.Candidate{}, false
	}

	id, err := p.store.InsertCandidate(ctx, c)
	if err != nil {
		logger.Error().Err(err).Str("url", raw.URL).Msg("candidate insert failed")

		return domain.Candidate{}, false
	}

	c.ID = id
	fingerprints[fp] = struct{}{}

	return c, true
}

// windowFingerprint keys a document for exact-duplicate lookup, preferring
// the body over the headline.
func windowFingerprint(text, headline string) string {
	if text == "" {
		return dedup.Fingerprint(headline)
	}

	return dedup.Fingerprint(text)
}

// escalateBatch submits the filtered candidates to the analysis backend and
// records each disposition. An exhausted rotation halts further submissions;
// unprocessed candidates keep their current status for the next cycle.
func (p *Pipeline) escalateBatch(ctx context.Context, selected []domain.Candidate, logger *zerolog.Logger) {
	gate := p.newGate()

	for _, c := range selected {
		result, err := gate.Submit(ctx, c)

		switch {
		case errors.Is(err, escalate.ErrBackendExhausted):
			logger.Warn().Msg("all backends exhausted, halting escalation for this cycle")

			return
		case err != nil:
			logger.Error().Err(err).Str("candidate", c.ID).Msg("analysis failed, marking pending")
			p.markPending(ctx, c, logger)
		case result == nil:
			// Parked on the retry queue; drained below.
		default:
			p.record(ctx, c, result, logger)
		}
	}

	for _, outcome := range gate.DrainRetries(ctx) {
		if outcome.Err != nil {
			logger.Warn().Err(outcome.Err).Str("candidate", outcome.Candidate.ID).Msg("retry failed, marking pending")
			p.markPending(ctx, outcome.Candidate, logger)

			continue
		}

		p.record(ctx, outcome.Candidate, outcome.Result, logger)
	}
}

// record applies one analysis verdict: notify on an opportunity, otherwise
// mark rejected and feed the learning loop.
func (p *Pipeline) record(ctx context.Context, c domain.Candidate, result *domain.AnalysisResult, logger *zerolog.Logger) {
	if !result.IsOpportunity {
		if err := p.store.UpdateStatus(ctx, c.ID, domain.StatusAIRejected, c.Score, result.Reason); err != nil {
			logger.Error().Err(err).Str("candidate", c.ID).Msg("status update failed")

			return
		}

		if err := p.loop.OnAIRejection(ctx, c, result.Reason); err != nil {
			logger.Warn().Err(err).Str("candidate", c.ID).Msg("rejection example not recorded")
		}

		return
	}

	analysis, err := json.Marshal(result)
	if err != nil {
		logger.Error().Err(err).Str("candidate", c.ID).Msg("analysis marshal failed")
		p.markPending(ctx, c, logger)

		return
	}

	if err := p.notifier.Notify(ctx, c, result); err != nil {
		logger.Error().Err(err).Str("candidate", c.ID).Msg("notification failed, marking pending")
		p.markPending(ctx, c, logger)

		return
	}

	if err := p.store.MarkNotified(ctx, c.ID, result.CompanyName, c.Score, c.Rationale, analysis); err != nil {
		logger.Error().Err(err).Str("candidate", c.ID).Msg("notified status not recorded")
	}
}

func (p *Pipeline) markPending(ctx context.Context, c domain.Candidate, logger *zerolog.Logger) {
	if !domain.CanTransition(c.Status, domain.StatusPending) {
		return
	}

	if err := p.store.UpdateStatus(ctx, c.ID, domain.StatusPending, c.Score, c.Rationale); err != nil {
		logger.Error().Err(err).Str("candidate", c.ID).Msg("pending status not recorded")
	}
}
