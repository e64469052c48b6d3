package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/emontero/opphunter/internal/core/domain"
)

// ErrCandidateNotFound indicates a lookup by id or URL matched no row.
var ErrCandidateNotFound = errors.New("candidate not found")

const candidateColumns = `id, source_url, headline, text, source_type, company_name, country,
	status, score, rationale, analysis, discovered_at, processed_at, notified_at`

// InsertCandidate stores a new candidate and returns its id. A zero id is
// assigned here; discovery time defaults to now. When the source URL is
// already recorded, the existing row is kept untouched and its id is
// returned, so later status updates land on the stored candidate.
func (db *DB) InsertCandidate(ctx context.Context, c domain.Candidate) (string, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	if c.DiscoveredAt.IsZero() {
		c.DiscoveredAt = time.Now()
	}

	if c.Status == "" {
		c.Status = domain.StatusDetected
	}

	var id string

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO candidates (id, source_url, headline, text, source_type, company_name, country, status, score, rationale, analysis, discovered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (source_url) DO UPDATE SET source_url = EXCLUDED.source_url
		RETURNING id
	`, c.ID, c.SourceURL, c.Headline, c.Text, c.SourceType, c.CompanyName, c.Country, string(c.Status), c.Score, c.Rationale, c.AnalysisJSON, c.DiscoveredAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert candidate: %w", err)
	}

	return id, nil
}

// UpdateStatus moves a candidate along the state machine and records the
// score and rationale from the deciding stage.
func (db *DB) UpdateStatus(ctx context.Context, id string, status domain.Status, score float32, rationale string) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE candidates
		SET status = $2, score = $3, rationale = $4, processed_at = now()
		WHERE id = $1
	`, id, string(status), score, rationale)
	if err != nil {
		return fmt.Errorf("update candidate status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}

	return nil
}

// MarkNotified records delivery and the full analysis payload in one write.
// The analysis-extracted company name is persisted when present so later
// cycles can match duplicates on it; an empty extraction keeps whatever the
// collector provided.
func (db *DB) MarkNotified(ctx context.Context, id, company string, score float32, rationale string, analysis []byte) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE candidates
		SET status = $2, company_name = COALESCE(NULLIF($3, ''), company_name), score = $4, rationale = $5, analysis = $6, processed_at = now(), notified_at = now()
		WHERE id = $1
	`, id, string(domain.StatusNotified), company, score, rationale, analysis)
	if err != nil {
		return fmt.Errorf("mark candidate notified: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}

	return nil
}

// Recent returns candidates discovered or notified within the window, the
// deduplicator's working set.
func (db *DB) Recent(ctx context.Context, windowDays int) ([]domain.Candidate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE discovered_at >= now() - make_interval(days => $1)
		   OR notified_at >= now() - make_interval(days => $1)
		ORDER BY discovered_at DESC
	`, windowDays)
	if err != nil {
		return nil, fmt.Errorf("query recent candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// KnownURLs returns the set of source URLs already recorded, for cheap
// exact-duplicate elimination before any scoring work.
func (db *DB) KnownURLs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := db.Pool.Query(ctx, `SELECT source_url FROM candidates`)
	if err != nil {
		return nil, fmt.Errorf("query known urls: %w", err)
	}
	defer rows.Close()

	urls := make(map[string]struct{})

	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}

		urls[u] = struct{}{}
	}

	return urls, rows.Err()
}

// PendingCandidates returns candidates abandoned mid-cycle, oldest first, so
// the next cycle re-queues them ahead of fresh discoveries.
func (db *DB) PendingCandidates(ctx context.Context) ([]domain.Candidate, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE status = $1
		ORDER BY discovered_at ASC
	`, string(domain.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("query pending candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// GetByID fetches one candidate.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.Candidate, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE id = $1
	`, id)

	c, err := scanCandidate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}

	return c, nil
}

func scanCandidates(rows pgx.Rows) ([]domain.Candidate, error) {
	var res []domain.Candidate

	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}

		res = append(res, *c)
	}

	return res, rows.Err()
}

func scanCandidate(row pgx.Row) (*domain.Candidate, error) {
	var (
		c           domain.Candidate
		status      string
		processedAt *time.Time
		notifiedAt  *time.Time
	)

	if err := row.Scan(&c.ID, &c.SourceURL, &c.Headline, &c.Text, &c.SourceType, &c.CompanyName, &c.Country,
		&status, &c.Score, &c.Rationale, &c.AnalysisJSON, &c.DiscoveredAt, &processedAt, &notifiedAt); err != nil {
		return nil, err
	}

	c.Status = domain.Status(status)

	if processedAt != nil {
		c.ProcessedAt = *processedAt
	}

	if notifiedAt != nil {
		c.NotifiedAt = *notifiedAt
	}

	return &c, nil
}
