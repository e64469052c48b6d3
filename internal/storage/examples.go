package storage

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/emontero/opphunter/internal/core/domain"
)

// SaveExample appends a labeled example and trims entries beyond capacity,
// oldest first, in one transaction so the cap invariant holds for every
// reader.
func (db *DB) SaveExample(ctx context.Context, ex domain.Example, capacity int) (int64, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin example tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var id int64

	err = tx.QueryRow(ctx, `
		INSERT INTO examples (text, label, embedding, added_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, ex.Text, string(ex.Label), pgvector.NewVector(ex.Embedding), ex.AddedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert example: %w", err)
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM examples
		WHERE id IN (
			SELECT id FROM examples
			ORDER BY added_at DESC, id DESC
			OFFSET $1
		)
	`, capacity)
	if err != nil {
		return 0, fmt.Errorf("trim examples: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit example tx: %w", err)
	}

	return id, nil
}

// LoadExamples returns up to limit examples, oldest first, to warm the
// in-memory store at startup.
func (db *DB) LoadExamples(ctx context.Context, limit int) ([]domain.Example, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, text, label, embedding, added_at
		FROM examples
		ORDER BY added_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query examples: %w", err)
	}
	defer rows.Close()

	var res []domain.Example

	for rows.Next() {
		var (
			ex    domain.Example
			label string
			vec   pgvector.Vector
		)

		if err := rows.Scan(&ex.ID, &ex.Text, &label, &vec, &ex.AddedAt); err != nil {
			return nil, err
		}

		ex.Label = domain.Label(label)
		ex.Embedding = vec.Slice()

		res = append(res, ex)
	}

	return res, rows.Err()
}

// TrainingHistory returns every decided candidate as a labeled document for
// offline training of the statistical fallback. Relevant and notified
// candidates count as positive; rejections count as negative.
func (db *DB) TrainingHistory(ctx context.Context) (docs []string, labels []bool, err error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT text, status
		FROM candidates
		WHERE status IN ($1, $2, $3, $4)
		ORDER BY discovered_at ASC
	`, string(domain.StatusRelevant), string(domain.StatusNotified), string(domain.StatusIrrelevant), string(domain.StatusAIRejected))
	if err != nil {
		return nil, nil, fmt.Errorf("query training history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			text   string
			status string
		)

		if err := rows.Scan(&text, &status); err != nil {
			return nil, nil, err
		}

		positive := status == string(domain.StatusRelevant) || status == string(domain.StatusNotified)

		docs = append(docs, text)
		labels = append(labels, positive)
	}

	return docs, labels, rows.Err()
}
