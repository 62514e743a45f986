package persistence

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A shared in-memory database exists per connection; pin the pool to one
	// so concurrent callers hit the same database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.SequenceCounterModel{})
	require.NoError(t, err)

	return db
}

func TestCounterRepository_NextValue(t *testing.T) {
	db := setupSequenceTestDB(t)
	repo := NewGormCounterRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	t.Run("starts at one and increments", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := repo.NextValue(ctx, tenantID, "REC", "2025")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("counts independently per period", func(t *testing.T) {
		got, err := repo.NextValue(ctx, tenantID, "REC", "2026")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})

	t.Run("counts independently per tenant", func(t *testing.T) {
		got, err := repo.NextValue(ctx, uuid.New(), "REC", "2025")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got)
	})
}

func TestCounterRepository_NextValue_Concurrent(t *testing.T) {
	db := setupSequenceTestDB(t)
	repo := NewGormCounterRepository(db)
	ctx := context.Background()

	tenantID := uuid.New()

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int64]bool)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := repo.NextValue(ctx, tenantID, "REC", "2025")
			if err != nil {
				return
			}
			mu.Lock()
			seen[value] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers, "every caller must receive a distinct value")
}
