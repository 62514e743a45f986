package persistence

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/sequence"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCounterRepository implements sequence.CounterRepository using a
// single-row atomic upsert, so concurrent callers never see the same value.
type GormCounterRepository struct {
	db *gorm.DB
}

// NewGormCounterRepository creates a new GormCounterRepository
func NewGormCounterRepository(db *gorm.DB) *GormCounterRepository {
	return &GormCounterRepository{db: db}
}

// NextValue bumps and returns the counter for (tenant, prefix, period)
func (r *GormCounterRepository) NextValue(ctx context.Context, tenantID uuid.UUID, prefix, period string) (int64, error) {
	now := time.Now().UTC()
	var value int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO sequence_counters (id, tenant_id, prefix, period, value, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (tenant_id, prefix, period)
		DO UPDATE SET value = sequence_counters.value + 1, updated_at = EXCLUDED.updated_at
		RETURNING value`,
		uuid.New(), tenantID, prefix, period, now, now,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

var _ sequence.CounterRepository = (*GormCounterRepository)(nil)
