package filter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emontero/opphunter/internal/core/domain"
	"github.com/emontero/opphunter/internal/observability"
)

// DefaultCapacity is the example store cap.
const DefaultCapacity = 2000

// Persister mirrors example store mutations to durable storage so the batch
// and feedback processes share state across restarts. Implementations must
// apply the append and the trim in one transaction.
type Persister interface {
	SaveExample(ctx context.Context, ex domain.Example, capacity int) (int64, error)
}

// ExampleStore is a bounded FIFO collection of labeled examples. Insertion
// beyond capacity evicts the oldest entry regardless of label; the cap holds
// at every point observable by another goroutine.
type ExampleStore struct {
	mu        sync.Mutex
	capacity  int
	examples  []domain.Example // oldest first
	persister Persister
}

// NewExampleStore creates a store with the given capacity. A nil persister
// keeps the store purely in memory.
func NewExampleStore(capacity int, persister Persister) *ExampleStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &ExampleStore{
		capacity:  capacity,
		examples:  make([]domain.Example, 0, capacity),
		persister: persister,
	}
}

// Warm loads previously persisted examples, oldest first. Entries beyond
// capacity are dropped from the oldest end.
func (s *ExampleStore) Warm(examples []domain.Example) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(examples) > s.capacity {
		examples = examples[len(examples)-s.capacity:]
	}

	s.examples = append(s.examples[:0], examples...)

	observability.ExampleStoreSize.Set(float64(len(s.examples)))
}

// Add appends an example, evicting the oldest entry when over capacity. The
// append and eviction happen under one lock so the cap invariant is never
// transiently violated.
func (s *ExampleStore) Add(ctx context.Context, ex domain.Example) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ex.AddedAt.IsZero() {
		ex.AddedAt = time.Now()
	}

	if s.persister != nil {
		id, err := s.persister.SaveExample(ctx, ex, s.capacity)
		if err != nil {
			return fmt.Errorf("persist example: %w", err)
		}

		ex.ID = id
	}

	s.examples = append(s.examples, ex)
	if len(s.examples) > s.capacity {
		s.examples = s.examples[1:]
	}

	observability.ExampleStoreSize.Set(float64(len(s.examples)))

	return nil
}

// Len returns the current number of stored examples.
func (s *ExampleStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.examples)
}

// Snapshot returns a copy of the stored examples, oldest first, safe to read
// while the store keeps mutating.
func (s *ExampleStore) Snapshot() []domain.Example {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Example, len(s.examples))
	copy(out, s.examples)

	return out
}
