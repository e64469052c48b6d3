package domain

import "time"

// Label classifies a training example for the relevance filter.
type Label string

// Example label constants.
const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
)

// Example is a labeled training instance for the relevance filter. Negative
// examples carry the rejection reason folded into the text so the embedding
// captures why the item was rejected.
type Example struct {
	ID        int64
	Text      string
	Label     Label
	Embedding []float32
	AddedAt   time.Time
}
