package collect

import (
	"context"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/emontero/opphunter/internal/core/domain"
)

const maxPerFeed = 20

// RSSCollector polls the profile's RSS/Atom feeds.
type RSSCollector struct {
	feeds   []string
	timeout time.Duration
	logger  *zerolog.Logger
}

// NewRSS creates the feed collector.
func NewRSS(feeds []string, timeout time.Duration, logger *zerolog.Logger) *RSSCollector {
	return &RSSCollector{feeds: feeds, timeout: timeout, logger: logger}
}

func (c *RSSCollector) Name() string { return "rss" }

// Collect parses every configured feed, capped per feed so one noisy source
// cannot dominate the batch. Broken feeds are logged and skipped.
func (c *RSSCollector) Collect(ctx context.Context) ([]Raw, error) {
	parser := gofeed.NewParser()

	var out []Raw

	for _, feedURL := range c.feeds {
		entries, err := c.parseFeed(ctx, parser, feedURL)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}

			c.logger.Warn().Err(err).Str("feed", feedURL).Msg("feed parse failed")

			continue
		}

		out = append(out, entries...)
	}

	return out, nil
}

func (c *RSSCollector) parseFeed(ctx context.Context, parser *gofeed.Parser, feedURL string) ([]Raw, error) {
	feedCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	feed, err := parser.ParseURLWithContext(feedURL, feedCtx)
	if err != nil {
		return nil, err
	}

	entries := make([]Raw, 0, maxPerFeed)

	for _, item := range feed.Items {
		if len(entries) >= maxPerFeed {
			break
		}

		link := item.Link
		if link == "" {
			link = item.GUID
		}

		if link == "" {
			continue
		}

		text := item.Content
		if text == "" {
			text = item.Description
		}

		published := time.Now()
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.Published != "" {
			published = parseDate(item.Published)
		}

		entries = append(entries, Raw{
			URL:         link,
			Headline:    item.Title,
			Text:        text,
			SourceType:  domain.SourceTypeNews,
			Source:      c.Name(),
			PublishedAt: published,
		})
	}

	return entries, nil
}
