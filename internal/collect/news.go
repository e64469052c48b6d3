package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/emontero/opphunter/internal/config"
	"github.com/emontero/opphunter/internal/core/domain"
)

const newsCollectorBurst = 1

// NewsCollector queries a newsdata.io-compatible search API, one request per
// (tier, keyword) pair. Tiers are searched in sorted name order so higher
// priority regions are hit first when the cycle budget runs out.
type NewsCollector struct {
	apiKey  string
	baseURL string
	profile *config.Profile
	client  *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewNews creates the news search collector.
func NewNews(cfg *config.Config, profile *config.Profile, logger *zerolog.Logger) *NewsCollector {
	return &NewsCollector{
		apiKey:  cfg.NewsAPIKey,
		baseURL: cfg.NewsAPIBaseURL,
		profile: profile,
		client:  &http.Client{Timeout: cfg.CollectorTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.CollectorRPS), newsCollectorBurst),
		logger:  logger,
	}
}

func (c *NewsCollector) Name() string { return "news_api" }

type newsResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Title       string   `json:"title"`
		Link        string   `json:"link"`
		Description string   `json:"description"`
		Content     string   `json:"content"`
		PubDate     string   `json:"pubDate"`
		Country     []string `json:"country"`
	} `json:"results"`
}

// Collect runs every tier x keyword query. A failed query is logged and
// skipped; a partial harvest beats an empty cycle.
func (c *NewsCollector) Collect(ctx context.Context) ([]Raw, error) {
	tiers := make([]string, 0, len(c.profile.SearchTiers))
	for name := range c.profile.SearchTiers {
		tiers = append(tiers, name)
	}

	sort.Strings(tiers)

	var out []Raw

	for _, tier := range tiers {
		countries := c.profile.SearchTiers[tier]

		for _, keyword := range c.profile.TriggerLexicon {
			batch, err := c.search(ctx, keyword, countries)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}

				c.logger.Warn().Err(err).Str("tier", tier).Str("keyword", keyword).Msg("news query failed")

				continue
			}

			out = append(out, batch...)
		}
	}

	return out, nil
}

func (c *NewsCollector) search(ctx context.Context, keyword, countries string) ([]Raw, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("q", keyword)
	params.Set("country", countries)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build news request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news api status %d", resp.StatusCode)
	}

	var body newsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode news response: %w", err)
	}

	raws := make([]Raw, 0, len(body.Results))

	for _, r := range body.Results {
		if r.Link == "" {
			continue
		}

		text := r.Content
		if text == "" {
			text = r.Description
		}

		country := ""
		if len(r.Country) > 0 {
			country = strings.ToUpper(r.Country[0])
		}

		raws = append(raws, Raw{
			URL:         r.Link,
			Headline:    r.Title,
			Text:        text,
			SourceType:  domain.SourceTypeNews,
			Country:     country,
			Source:      c.Name(),
			PublishedAt: parseDate(r.PubDate),
		})
	}

	return raws, nil
}

// parseDate handles the loose date formats news sources emit. Unparseable
// dates fall back to now so the dedup window still applies.
func parseDate(s string) time.Time {
	if s == "" {
		return time.Now()
	}

	t, err := dateparse.ParseAny(s)
	if err != nil {
		return time.Now()
	}

	return t
}
