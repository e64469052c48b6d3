// Package collect gathers raw candidate documents from the configured data
// sources: a news search API, RSS feeds and a job-posting feed. Collectors
// are plumbing; everything they emit goes through the decision pipeline
// unjudged.
package collect

import (
	"context"
	"time"
)

// Raw is one discovered document before it becomes a candidate. Company is
// set when the source names one explicitly (job postings); news stories leave
// it empty and the analysis stage extracts it later.
type Raw struct {
	URL         string
	Headline    string
	Text        string
	SourceType  string
	Company     string
	Country     string
	Source      string
	PublishedAt time.Time
}

// Collector produces a finite batch of raw documents per cycle.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]Raw, error)
}
