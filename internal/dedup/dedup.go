// Package dedup decides whether a newly discovered candidate is a
// near-duplicate of something already seen in the recent window.
//
// Detection is pure text statistics: normalized token similarity, shared key
// entities (company names, action keywords), and a title-substring rule that
// catches the same story re-published by a different outlet. The caller owns
// the recent window; IsDuplicate has no side effects.
package dedup

import (
	"crypto/md5" //nolint:gosec // fingerprint for duplicate lookup, not security
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/emontero/opphunter/internal/core/domain"
)

// Config holds the tunable similarity thresholds. Defaults follow the
// historical tuning of the rule ladder.
type Config struct {
	WindowDays int

	// TextThreshold declares a duplicate on normalized token similarity alone.
	TextThreshold float64

	// CompanyThreshold is the lower similarity bar when the main company
	// already matches.
	CompanyThreshold float64

	// EntityThreshold declares a duplicate on entity overlap alone, catching
	// inverted phrasings of the same event.
	EntityThreshold float64

	// SharedEntityRatio is the entity-overlap bar when the company matches.
	SharedEntityRatio float64
}

// DefaultConfig returns the historically tuned thresholds.
func DefaultConfig() Config {
	return Config{
		WindowDays:        7,
		TextThreshold:     0.75,
		CompanyThreshold:  0.45,
		EntityThreshold:   0.70,
		SharedEntityRatio: 0.50,
	}
}

// Match describes which window entry a candidate duplicated and why.
type Match struct {
	CandidateID string
	Headline    string
	Similarity  float64
	Reason      string
}

// Duplicate match reasons.
const (
	ReasonIdenticalFingerprint = "identical_fingerprint"

	ReasonTextSimilarity  = "high_text_similarity"
	ReasonTitleSubstring  = "title_substring"
	ReasonSameCompany     = "same_company_similar_content"
	ReasonSharedEntities  = "same_company_shared_entities"
	ReasonEntityOverlap   = "high_entity_overlap"
	minSubstringTokensLen = 4
)

// Deduplicator is a pure duplicate decision function over a recent window.
type Deduplicator struct {
	cfg Config
	now func() time.Time
}

// New creates a Deduplicator with the given thresholds.
func New(cfg Config) *Deduplicator {
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = DefaultConfig().WindowDays
	}

	return &Deduplicator{cfg: cfg, now: time.Now}
}

// Fingerprint returns a stable hash of the normalized text plus its sorted
// key entities, usable as a lookup key for the recent-window index.
func Fingerprint(text string) string {
	normalized := Normalize(text)
	entities := ExtractEntities(text)

	sorted := make([]string, 0, len(entities))
	for e := range entities {
		sorted = append(sorted, e)
	}

	sort.Strings(sorted)

	sum := md5.Sum([]byte(normalized + " " + strings.Join(sorted, " "))) //nolint:gosec

	return hex.EncodeToString(sum[:])
}

// IsDuplicate reports whether the candidate near-duplicates any window entry
// discovered within the configured lookback. Empty text is never a duplicate;
// downstream filtering rejects it instead.
func (d *Deduplicator) IsDuplicate(c domain.Candidate, window []domain.Candidate) (bool, *Match) {
	newNorm := Normalize(c.Text)
	if newNorm == "" {
		return false, nil
	}

	newEntities := ExtractEntities(c.Text)
	addCompanyEntities(newEntities, c.CompanyName)

	cutoff := d.now().AddDate(0, 0, -d.cfg.WindowDays)

	for _, prev := range window {
		if !withinWindow(prev, cutoff) {
			continue
		}

		prevText := prev.Text
		if prev.Headline != "" {
			prevText = prev.Headline
		}

		prevNorm := Normalize(prevText)
		if prevNorm == "" {
			continue
		}

		sim := TokenSimilarity(newNorm, prevNorm)

		if m := d.matchRules(c, prev, newNorm, prevNorm, sim, newEntities, prevText); m != nil {
			return true, m
		}
	}

	return false, nil
}

func (d *Deduplicator) matchRules(c, prev domain.Candidate, newNorm, prevNorm string, sim float64, newEntities map[string]struct{}, prevText string) *Match {
	if containsTitle(newNorm, prevNorm) {
		return &Match{CandidateID: prev.ID, Headline: prevText, Similarity: 1.0, Reason: ReasonTitleSubstring}
	}

	if sim >= d.cfg.TextThreshold {
		return &Match{CandidateID: prev.ID, Headline: prevText, Similarity: sim, Reason: ReasonTextSimilarity}
	}

	companyMatch := companiesMatch(c.CompanyName, prev.CompanyName)
	if companyMatch && sim >= d.cfg.CompanyThreshold {
		return &Match{CandidateID: prev.ID, Headline: prevText, Similarity: sim, Reason: ReasonSameCompany}
	}

	prevEntities := ExtractEntities(prevText)
	addCompanyEntities(prevEntities, prev.CompanyName)

	overlap := entityOverlap(newEntities, prevEntities)

	if companyMatch && overlap >= d.cfg.SharedEntityRatio {
		return &Match{CandidateID: prev.ID, Headline: prevText, Similarity: overlap, Reason: ReasonSharedEntities}
	}

	if overlap >= d.cfg.EntityThreshold {
		return &Match{CandidateID: prev.ID, Headline: prevText, Similarity: overlap, Reason: ReasonEntityOverlap}
	}

	return nil
}

func withinWindow(c domain.Candidate, cutoff time.Time) bool {
	ts := c.NotifiedAt
	if ts.IsZero() {
		ts = c.DiscoveredAt
	}

	// Entries without timestamps are kept in scope for safety.
	if ts.IsZero() {
		return true
	}

	return !ts.Before(cutoff)
}

// containsTitle treats one normalized title appearing inside the other as a
// high-similarity match, provided the shorter side is substantial.
func containsTitle(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	if len(strings.Fields(shorter)) < minSubstringTokensLen {
		return false
	}

	return strings.Contains(longer, shorter)
}

func companiesMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}

	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}

	return na == nb || strings.Contains(na, nb) || strings.Contains(nb, na)
}

func addCompanyEntities(entities map[string]struct{}, company string) {
	if company == "" {
		return
	}

	norm := Normalize(company)
	if norm == "" {
		return
	}

	entities[norm] = struct{}{}

	// Also index the leading word ("santander" from "banco santander").
	if first, _, found := strings.Cut(norm, " "); found && len(first) > 3 {
		entities[first] = struct{}{}
	}
}

func entityOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0

	for e := range a {
		if _, ok := b[e]; ok {
			shared++
		}
	}

	larger := len(a)
	if len(b) > larger {
		larger = len(b)
	}

	return float64(shared) / float64(larger)
}
