package sequence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memCounterRepo is an in-memory atomic counter store
type memCounterRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemCounterRepo() *memCounterRepo {
	return &memCounterRepo{counters: make(map[string]int64)}
}

func (r *memCounterRepo) NextValue(_ context.Context, tenantID uuid.UUID, prefix, period string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tenantID.String() + "/" + prefix + "/" + period
	r.counters[key]++
	return r.counters[key], nil
}

func fixedClock(year int) func() time.Time {
	return func() time.Time {
		return time.Date(year, 6, 15, 12, 0, 0, 0, time.UTC)
	}
}

func TestGeneratorNext(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	g := NewGenerator(newMemCounterRepo())
	g.now = fixedClock(2025)

	first, err := g.Next(ctx, tenantID, "REC")
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-001", first)

	second, err := g.Next(ctx, tenantID, "REC")
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-002", second)

	t.Run("counters are per tenant", func(t *testing.T) {
		other, err := g.Next(ctx, uuid.New(), "REC")
		require.NoError(t, err)
		assert.Equal(t, "REC-2025-001", other)
	})

	t.Run("counters are per prefix", func(t *testing.T) {
		adj, err := g.Next(ctx, tenantID, "ADJ")
		require.NoError(t, err)
		assert.Equal(t, "ADJ-2025-001", adj)
	})

	t.Run("counters restart each year", func(t *testing.T) {
		g.now = fixedClock(2026)
		next, err := g.Next(ctx, tenantID, "REC")
		require.NoError(t, err)
		assert.Equal(t, "REC-2026-001", next)
	})

	t.Run("rejects empty prefix", func(t *testing.T) {
		_, err := g.Next(ctx, tenantID, "")
		require.Error(t, err)
	})
}

func TestGeneratorNext_WidensPastThousand(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	repo := newMemCounterRepo()
	repo.counters[tenantID.String()+"/REC/2025"] = 999

	g := NewGenerator(repo)
	g.now = fixedClock(2025)

	number, err := g.Next(ctx, tenantID, "REC")
	require.NoError(t, err)
	assert.Equal(t, "REC-2025-1000", number)
}

func TestGeneratorNext_Concurrent(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	g := NewGenerator(newMemCounterRepo())
	g.now = fixedClock(2025)

	const workers = 50
	results := make(chan string, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number, err := g.Next(ctx, tenantID, "REC")
			assert.NoError(t, err)
			results <- number
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for number := range results {
		assert.False(t, seen[number], "duplicate number %s", number)
		seen[number] = true
	}
	assert.Len(t, seen, workers)
}
