// Package filter scores candidate text against a bounded store of labeled
// examples and selects which candidates proceed to the expensive analysis
// stage.
//
// Scoring is nearest-neighbor over embeddings: how similar the text is to the
// closest positive example versus the closest negative one. Before enough
// examples accumulate, a statistical bag-of-words fallback covers the gap.
package filter

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/embeddings"
	"github.com/emontero/opphunter/internal/observability"
)

// ErrScoringUnavailable is returned when neither the embedding backend nor
// the statistical fallback can score. The caller decides disposition; the
// pipeline lets such candidates through rather than silently dropping them.
var ErrScoringUnavailable = errors.New("no scoring backend available")

const neutralScore = 0.5

// Score is the relevance verdict for one text.
type Score struct {
	Value       float32
	Explanation string
	Fallback    bool
}

// FallbackModel predicts relevance probability from text alone.
type FallbackModel interface {
	Predict(text string) float64
}

// Filter is the learned relevance classifier.
type Filter struct {
	embedder  embeddings.Client
	store     *ExampleStore
	fallback  FallbackModel // may be nil before offline training
	threshold float32
	logger    *zerolog.Logger
}

// New creates a relevance filter. fallback may be nil when no offline model
// has been trained yet.
func New(embedder embeddings.Client, store *ExampleStore, fallback FallbackModel, threshold float32, logger *zerolog.Logger) *Filter {
	return &Filter{
		embedder:  embedder,
		store:     store,
		fallback:  fallback,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the configured pass threshold.
func (f *Filter) Threshold() float32 {
	return f.threshold
}

// Score rates text in [0,1]. With an empty example store or an unavailable
// embedding backend it delegates to the statistical fallback and flags that
// path; with neither available it returns ErrScoringUnavailable.
func (f *Filter) Score(ctx context.Context, text string) (Score, error) {
	examples := f.store.Snapshot()
	if len(examples) == 0 {
		return f.fallbackScore(text, "no labeled examples yet")
	}

	vec, err := f.embedder.GetEmbedding(ctx, text)
	if err != nil {
		f.logger.Warn().Err(err).Msg("embedding backend unavailable, using fallback")

		return f.fallbackScore(text, "embedding backend unavailable")
	}

	return similarityScore(vec, examples), nil
}

func (f *Filter) fallbackScore(text, why string) (Score, error) {
	if f.fallback == nil {
		if f.store.Len() == 0 {
			// Nothing to learn from yet: pass with a neutral score so the
			// learning loop can start accumulating outcomes.
			return Score{Value: neutralScore, Explanation: why}, nil
		}

		return Score{}, fmt.Errorf("%w: %s", ErrScoringUnavailable, why)
	}

	p := f.fallback.Predict(text)

	return Score{
		Value:       float32(p),
		Explanation: fmt.Sprintf("statistical fallback (%s)", why),
		Fallback:    true,
	}, nil
}

// similarityScore computes maxPos/(maxPos+maxNeg) over the example store and
// names the most similar labeled example.
func similarityScore(vec []float32, examples []domain.Example) Score {
	var (
		maxPos, maxNeg float32
		nearest        domain.Example
		nearestSim     float32
	)

	for _, ex := range examples {
		if len(ex.Embedding) == 0 {
			continue
		}

		sim := embeddings.CosineSimilarity(vec, ex.Embedding)

		if ex.Label == domain.LabelPositive && sim > maxPos {
			maxPos = sim
		}

		if ex.Label == domain.LabelNegative && sim > maxNeg {
			maxNeg = sim
		}

		if sim > nearestSim {
			nearestSim = sim
			nearest = ex
		}
	}

	value := float32(neutralScore)
	if maxPos > 0 || maxNeg > 0 {
		if total := maxPos + maxNeg; total > 0 {
			value = maxPos / total
		}
	}

	explanation := "no comparable examples"
	if nearestSim > 0 {
		explanation = fmt.Sprintf("most similar to %s example %q (sim %.2f)", nearest.Label, snippet(nearest.Text), nearestSim)
	}

	return Score{Value: value, Explanation: explanation}
}

const snippetLen = 60

func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}

	return string(runes[:snippetLen]) + "..."
}

// BatchFilter scores every candidate, then returns those passing the
// threshold union the top-K overall, so the analysis stage always receives
// some input even on a low-scoring run. Ties at the cutoff break toward the
// earlier discovery timestamp. Selection happens only after all scores in
// the batch are known. Candidates that cannot be scored at all pass through
// for safety.
func (f *Filter) BatchFilter(ctx context.Context, candidates []domain.Candidate, topK int) []domain.Candidate {
	scored := make([]domain.Candidate, 0, len(candidates))
	forced := make([]domain.Candidate, 0)

	for _, c := range candidates {
		s, err := f.Score(ctx, c.Text)
		if err != nil {
			f.logger.Warn().Err(err).Str("candidate", c.SourceURL).Msg("scoring unavailable, passing candidate through")
			observability.FilterDecisions.WithLabelValues("unscored").Inc()

			forced = append(forced, c)

			continue
		}

		if s.Fallback {
			observability.FilterDecisions.WithLabelValues("fallback").Inc()
		}

		c.Score = s.Value
		c.Rationale = s.Explanation
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}

		return scored[i].DiscoveredAt.Before(scored[j].DiscoveredAt)
	})

	selected := make([]domain.Candidate, 0, len(scored))

	for i, c := range scored {
		if c.Score >= f.threshold || i < topK {
			observability.FilterDecisions.WithLabelValues("passed").Inc()
			selected = append(selected, c)
		} else {
			observability.FilterDecisions.WithLabelValues("rejected").Inc()
		}
	}

	return append(selected, forced...)
}

// AddPositive appends a relevant example to the bounded store.
func (f *Filter) AddPositive(ctx context.Context, text string) error {
	return f.addExample(ctx, text, domain.LabelPositive)
}

// AddNegative appends a rejected example. The rejection reason is folded
// into the embedded text so the vector captures why it was rejected.
func (f *Filter) AddNegative(ctx context.Context, text, reason string) error {
	if reason != "" {
		text = text + "\n\nRejection reason: " + reason
	}

	return f.addExample(ctx, text, domain.LabelNegative)
}

func (f *Filter) addExample(ctx context.Context, text string, label domain.Label) error {
	vec, err := f.embedder.GetEmbedding(ctx, text)
	if err != nil {
		return fmt.Errorf("embed %s example: %w", label, err)
	}

	return f.store.Add(ctx, domain.Example{Text: text, Label: label, Embedding: vec})
}
