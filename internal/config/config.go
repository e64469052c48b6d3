package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds process-level configuration loaded from the environment once
// at startup. Hunting behavior (tiers, lexicon, rotation) lives in the YAML
// profile, see Profile.
type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	ProfilePath string `env:"HUNTER_PROFILE" envDefault:"./hunter.yaml"`

	// Embedding + analysis backends
	OpenAIAPIKey        string        `env:"OPENAI_API_KEY"`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
	EmbeddingTimeout    time.Duration `env:"EMBEDDING_TIMEOUT" envDefault:"15s"`
	AnalysisTimeout     time.Duration `env:"ANALYSIS_TIMEOUT" envDefault:"60s"`
	RateLimitRPS        float64       `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Relevance filter
	FilterThreshold float32 `env:"FILTER_THRESHOLD" envDefault:"0.65"`
	FilterTopK      int     `env:"FILTER_TOP_K" envDefault:"10"`
	ExampleStoreCap int     `env:"EXAMPLE_STORE_CAP" envDefault:"2000"`

	// Deduplication
	DedupWindowDays        int     `env:"DEDUP_WINDOW_DAYS" envDefault:"7"`
	DedupTextThreshold     float64 `env:"DEDUP_TEXT_THRESHOLD" envDefault:"0.75"`
	DedupCompanyThreshold  float64 `env:"DEDUP_COMPANY_THRESHOLD" envDefault:"0.45"`
	DedupEntityThreshold   float64 `env:"DEDUP_ENTITY_THRESHOLD" envDefault:"0.70"`
	DedupSharedEntityRatio float64 `env:"DEDUP_SHARED_ENTITY_RATIO" envDefault:"0.50"`

	// Cycle scheduling
	CycleInterval time.Duration `env:"CYCLE_INTERVAL" envDefault:"6h"`

	// Collectors
	NewsAPIKey       string        `env:"NEWS_API_KEY"`
	NewsAPIBaseURL   string        `env:"NEWS_API_BASE_URL" envDefault:"https://newsdata.io/api/1/news"`
	JobFeedBaseURL   string        `env:"JOB_FEED_BASE_URL"`
	CollectorTimeout time.Duration `env:"COLLECTOR_TIMEOUT" envDefault:"30s"`
	CollectorRPS     float64       `env:"COLLECTOR_RPS" envDefault:"0.5"`

	// Notification + feedback
	Notifier         string `env:"NOTIFIER" envDefault:"slack"`
	SlackWebhookURL  string `env:"SLACK_WEBHOOK_URL"`
	FeedbackBaseURL  string `env:"FEEDBACK_BASE_URL"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID"`
	FeedbackPort     int    `env:"FEEDBACK_PORT" envDefault:"8081"`
	HealthPort       int    `env:"HEALTH_PORT" envDefault:"8080"`
}

// Load reads configuration from the environment, loading .env first if
// present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	return cfg, nil
}

// Backend is one identity in the analysis backend rotation with its
// per-cycle call limit.
type Backend struct {
	Name  string `yaml:"name"`
	Limit int    `yaml:"limit"`
}

// DataSources flags enable or disable optional collectors.
type DataSources struct {
	NewsAPI bool `yaml:"news_api"`
	RSS     bool `yaml:"rss"`
	JobFeed bool `yaml:"job_feed"`
}

// Profile is the hunting profile loaded once at process start from YAML.
// It is treated as an immutable value after loading.
type Profile struct {
	// SearchTiers maps a tier name to a comma-separated country code group,
	// searched in sorted tier-name order.
	SearchTiers map[string]string `yaml:"search_tiers"`

	// TriggerLexicon is the list of search keywords applied per tier.
	TriggerLexicon []string `yaml:"trigger_lexicon"`

	DataSources DataSources `yaml:"data_sources"`

	// RSSFeeds are polled when the rss data source is enabled.
	RSSFeeds []string `yaml:"rss_feeds"`

	// JobTitles are queried against the job feed when enabled.
	JobTitles []string `yaml:"job_titles"`

	// ModelRotation is the ordered list of analysis backend identities.
	ModelRotation []Backend `yaml:"model_rotation"`

	// ChannelRouting maps a country code to a notification channel.
	// Unlisted countries fall back to DefaultChannel.
	ChannelRouting map[string]string `yaml:"channel_routing"`
	DefaultChannel string            `yaml:"default_channel"`
}

// LoadProfile reads and validates the hunting profile.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}

	p := &Profile{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}

	if len(p.ModelRotation) == 0 {
		return nil, fmt.Errorf("profile %s: model_rotation must list at least one backend", path)
	}

	for i, b := range p.ModelRotation {
		if b.Name == "" || b.Limit <= 0 {
			return nil, fmt.Errorf("profile %s: model_rotation[%d] needs a name and a positive limit", path, i)
		}
	}

	return p, nil
}
