package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/emontero/opphunter/internal/config"
	"github.com/emontero/opphunter/internal/core/domain"
)

// JobCollector queries a job-posting feed, one request per configured title.
// Postings signal build-outs (new platform teams, first data hires) worth
// the same analysis as a news story.
type JobCollector struct {
	baseURL string
	titles  []string
	client  *http.Client
	limiter *rate.Limiter
	logger  *zerolog.Logger
}

// NewJobs creates the job feed collector.
func NewJobs(cfg *config.Config, profile *config.Profile, logger *zerolog.Logger) *JobCollector {
	return &JobCollector{
		baseURL: cfg.JobFeedBaseURL,
		titles:  profile.JobTitles,
		client:  &http.Client{Timeout: cfg.CollectorTimeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.CollectorRPS), newsCollectorBurst),
		logger:  logger,
	}
}

func (c *JobCollector) Name() string { return "job_feed" }

type jobPosting struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company_name"`
	Location    string `json:"candidate_required_location"`
	Description string `json:"description"`
	PublishedAt string `json:"publication_date"`
}

type jobResponse struct {
	Jobs []jobPosting `json:"jobs"`
}

func (c *JobCollector) Collect(ctx context.Context) ([]Raw, error) {
	var out []Raw

	for _, title := range c.titles {
		batch, err := c.search(ctx, title)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}

			c.logger.Warn().Err(err).Str("title", title).Msg("job query failed")

			continue
		}

		out = append(out, batch...)
	}

	return out, nil
}

func (c *JobCollector) search(ctx context.Context, title string) ([]Raw, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("search", title)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build job request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("job request: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("job feed status %d", resp.StatusCode)
	}

	var body jobResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode job response: %w", err)
	}

	raws := make([]Raw, 0, len(body.Jobs))

	for _, j := range body.Jobs {
		if j.URL == "" {
			continue
		}

		published := time.Now()
		if j.PublishedAt != "" {
			published = parseDate(j.PublishedAt)
		}

		headline := j.Title
		if j.Company != "" {
			headline = j.Company + ": " + j.Title
		}

		raws = append(raws, Raw{
			URL:         j.URL,
			Headline:    headline,
			Text:        j.Description,
			SourceType:  domain.SourceTypeJob,
			Company:     j.Company,
			Country:     j.Location,
			Source:      c.Name(),
			PublishedAt: published,
		})
	}

	return raws, nil
}
