package filter

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emontero/opphunter/internal/core/domain"
)

func TestExampleStoreFIFOCap(t *testing.T) {
	const capacity = 5

	store := NewExampleStore(capacity, nil)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		label := domain.LabelPositive
		if i%2 == 1 {
			label = domain.LabelNegative
		}

		err := store.Add(ctx, domain.Example{
			Text:    fmt.Sprintf("example %d", i),
			Label:   label,
			AddedAt: time.Unix(int64(i), 0),
		})
		require.NoError(t, err)
		assert.LessOrEqual(t, store.Len(), capacity)
	}

	snapshot := store.Snapshot()
	require.Len(t, snapshot, capacity)

	// Oldest three evicted regardless of label.
	assert.Equal(t, "example 3", snapshot[0].Text)
	assert.Equal(t, "example 7", snapshot[capacity-1].Text)
}

func TestExampleStoreWarmTrimsOldest(t *testing.T) {
	store := NewExampleStore(2, nil)

	store.Warm([]domain.Example{
		{Text: "a"}, {Text: "b"}, {Text: "c"},
	})

	snapshot := store.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "b", snapshot[0].Text)
	assert.Equal(t, "c", snapshot[1].Text)
}

func TestExampleStoreConcurrentAdds(t *testing.T) {
	const capacity = 50

	store := NewExampleStore(capacity, nil)
	ctx := context.Background()

	var wg sync.WaitGroup

	for g := 0; g < 4; g++ {
		wg.Add(1)

		go func(g int) {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				_ = store.Add(ctx, domain.Example{Text: fmt.Sprintf("g%d-%d", g, i), Label: domain.LabelPositive})
			}
		}(g)
	}

	wg.Wait()

	assert.Equal(t, capacity, store.Len())
}

type failingPersister struct{}

func (failingPersister) SaveExample(_ context.Context, _ domain.Example, _ int) (int64, error) {
	return 0, fmt.Errorf("connection refused")
}

func TestExampleStorePersistFailureDoesNotMutate(t *testing.T) {
	store := NewExampleStore(5, failingPersister{})

	err := store.Add(context.Background(), domain.Example{Text: "x", Label: domain.LabelPositive})
	require.Error(t, err)
	assert.Equal(t, 0, store.Len())
}
