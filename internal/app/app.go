// Package app wires the dependencies together and exposes the operational
// modes:
//
//   - Worker mode: the scheduled collection pipeline (collect, dedup,
//     filter, escalate, notify)
//   - Feedback mode: the HTTP server receiving user decisions
//   - Seed mode: one-time bulk load of labeled history into the example store
//
// Modes can run independently or combined (-mode=all) based on deployment
// needs.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/emontero/opphunter/internal/collect"
	"github.com/emontero/opphunter/internal/config"
	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/dedup"
	"github.com/emontero/opphunter/internal/embeddings"
	"github.com/emontero/opphunter/internal/escalate"
	"github.com/emontero/opphunter/internal/feedback"
	"github.com/emontero/opphunter/internal/filter"
	"github.com/emontero/opphunter/internal/filter/bayes"
	"github.com/emontero/opphunter/internal/learning"
	"github.com/emontero/opphunter/internal/llm"
	"github.com/emontero/opphunter/internal/notify"
	"github.com/emontero/opphunter/internal/observability"
	"github.com/emontero/opphunter/internal/pipeline"
	"github.com/emontero/opphunter/internal/storage"
)

// App holds the wired dependencies for every mode.
type App struct {
	cfg      *config.Config
	profile  *config.Profile
	database *storage.DB
	logger   *zerolog.Logger

	filter *filter.Filter
	loop   *learning.Loop
}

// New builds the shared dependency graph: embedder, example store (warmed
// from the database), statistical fallback, filter and learning loop.
func New(ctx context.Context, cfg *config.Config, profile *config.Profile, database *storage.DB, logger *zerolog.Logger) (*App, error) {
	a := &App{
		cfg:      cfg,
		profile:  profile,
		database: database,
		logger:   logger,
	}

	embedder := a.newEmbedder()

	store := filter.NewExampleStore(cfg.ExampleStoreCap, database)

	examples, err := database.LoadExamples(ctx, cfg.ExampleStoreCap)
	if err != nil {
		return nil, fmt.Errorf("warm example store: %w", err)
	}

	store.Warm(examples)
	logger.Info().Int("examples", len(examples)).Msg("example store warmed")

	a.filter = filter.New(embedder, store, a.trainFallback(ctx), cfg.FilterThreshold, logger)
	a.loop = learning.New(database, a.filter, logger)

	return a, nil
}

func (a *App) newEmbedder() embeddings.Client {
	if a.cfg.OpenAIAPIKey == "" || a.cfg.OpenAIAPIKey == "mock" {
		a.logger.Warn().Msg("no embedding API key, using mock embedder")

		return embeddings.NewMockClient(a.cfg.EmbeddingDimensions)
	}

	return embeddings.NewOpenAIClient(embeddings.OpenAIConfig{
		APIKey:     a.cfg.OpenAIAPIKey,
		Model:      a.cfg.EmbeddingModel,
		Dimensions: a.cfg.EmbeddingDimensions,
		RateLimit:  a.cfg.RateLimitRPS,
		Timeout:    a.cfg.EmbeddingTimeout,
	}, a.logger)
}

// trainFallback trains the statistical classifier from the full outcome
// history. A nil model (no history, or a single-class corpus) leaves the
// filter without a fallback, which it tolerates.
func (a *App) trainFallback(ctx context.Context) filter.FallbackModel {
	docs, labels, err := a.database.TrainingHistory(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("training history unavailable, no statistical fallback")

		return nil
	}

	model := bayes.Train(docs, labels)
	if model == nil {
		a.logger.Info().Int("docs", len(docs)).Msg("not enough outcome history to train fallback")

		return nil
	}

	a.logger.Info().Int("docs", len(docs)).Msg("statistical fallback trained")

	return model
}

func (a *App) newAnalyzer() llm.Analyzer {
	if a.cfg.OpenAIAPIKey == "" || a.cfg.OpenAIAPIKey == "mock" {
		a.logger.Warn().Msg("no analysis API key, using mock analyzer")

		return llm.NewMock()
	}

	return llm.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.RateLimitRPS, a.cfg.AnalysisTimeout, a.logger)
}

func (a *App) newNotifier() (notify.Notifier, error) {
	router := notify.NewRouter(a.profile.ChannelRouting, a.profile.DefaultChannel)

	switch a.cfg.Notifier {
	case "telegram":
		return notify.NewTelegram(a.cfg.TelegramBotToken, a.cfg.TelegramChatID, a.cfg.FeedbackBaseURL, a.logger)
	case "slack":
		return notify.NewSlack(a.cfg.SlackWebhookURL, a.cfg.FeedbackBaseURL, router, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown notifier %q", a.cfg.Notifier)
	}
}

func (a *App) newCollectors() []collect.Collector {
	var collectors []collect.Collector

	if a.profile.DataSources.NewsAPI {
		collectors = append(collectors, collect.NewNews(a.cfg, a.profile, a.logger))
	}

	if a.profile.DataSources.RSS {
		collectors = append(collectors, collect.NewRSS(a.profile.RSSFeeds, a.cfg.CollectorTimeout, a.logger))
	}

	if a.profile.DataSources.JobFeed {
		collectors = append(collectors, collect.NewJobs(a.cfg, a.profile, a.logger))
	}

	return collectors
}

// RunWorker runs the scheduled collection pipeline until ctx is canceled.
func (a *App) RunWorker(ctx context.Context) error {
	notifier, err := a.newNotifier()
	if err != nil {
		return err
	}

	analyzer := a.newAnalyzer()
	rotation := a.profile.ModelRotation

	newGate := func() *escalate.Gate {
		return escalate.NewGate(analyzer, rotation, a.logger)
	}

	p := pipeline.New(pipeline.Config{
		TopK:       a.cfg.FilterTopK,
		WindowDays: a.cfg.DedupWindowDays,
		Interval:   a.cfg.CycleInterval,
	}, a.database, a.newCollectors(), a.newDeduplicator(), a.filter, newGate, notifier, a.loop, a.logger)

	return p.Run(ctx)
}

func (a *App) newDeduplicator() *dedup.Deduplicator {
	return dedup.New(dedup.Config{
		WindowDays:        a.cfg.DedupWindowDays,
		TextThreshold:     a.cfg.DedupTextThreshold,
		CompanyThreshold:  a.cfg.DedupCompanyThreshold,
		EntityThreshold:   a.cfg.DedupEntityThreshold,
		SharedEntityRatio: a.cfg.DedupSharedEntityRatio,
	})
}

// RunFeedback runs the feedback HTTP server until ctx is canceled.
func (a *App) RunFeedback(ctx context.Context) error {
	return feedback.NewServer(a.loop, a.cfg.FeedbackPort, a.logger).Start(ctx)
}

// RunAll runs the worker and the feedback server in one process.
func (a *App) RunAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.RunWorker(ctx) })
	g.Go(func() error { return a.RunFeedback(ctx) })

	return g.Wait()
}

// StartHealthServer runs the health and metrics endpoints.
func (a *App) StartHealthServer(ctx context.Context) error {
	return observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx)
}

type seedEntry struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// RunSeed bulk-loads labeled history from a JSON file into the example
// store through the same capped append path the learning loop uses.
func (a *App) RunSeed(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	loaded := 0

	for _, e := range entries {
		if e.Text == "" {
			continue
		}

		switch domain.Label(e.Label) {
		case domain.LabelPositive:
			err = a.filter.AddPositive(ctx, e.Text)
		case domain.LabelNegative:
			err = a.filter.AddNegative(ctx, e.Text, "")
		default:
			a.logger.Warn().Str("label", e.Label).Msg("skipping entry with unknown label")

			continue
		}

		if err != nil {
			return fmt.Errorf("seed example: %w", err)
		}

		loaded++
	}

	a.logger.Info().Int("loaded", loaded).Int("total", len(entries)).Msg("seed complete")

	return nil
}
