package valuation

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductValuationRepository persists per-product valuation state
type ProductValuationRepository interface {
	Create(ctx context.Context, v *ProductValuation) error
	// Update persists the aggregate with an optimistic version check and
	// returns shared.ErrConcurrencyConflict when the stored version moved.
	Update(ctx context.Context, v *ProductValuation) error
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*ProductValuation, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ProductValuation], error)
}

// ValuationLayerRepository persists FIFO cost layers
type ValuationLayerRepository interface {
	Create(ctx context.Context, layer *ValuationLayer) error
	Update(ctx context.Context, layer *ValuationLayer) error
	// FindOpenByProduct returns layers with remaining quantity ordered by
	// received_at ascending, oldest first.
	FindOpenByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]*ValuationLayer, error)
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ValuationLayer], error)
}

// ValuationHistoryRepository persists the valuation audit trail
type ValuationHistoryRepository interface {
	Create(ctx context.Context, record *ValuationHistory) error
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ValuationHistory], error)
}

// CostMethodSettingRepository persists costing method settings
type CostMethodSettingRepository interface {
	Create(ctx context.Context, setting *CostMethodSetting) error
	Update(ctx context.Context, setting *CostMethodSetting) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*CostMethodSetting, error)
	FindForTenant(ctx context.Context, tenantID uuid.UUID) (*CostMethodSetting, error)
	FindForCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (*CostMethodSetting, error)
	FindForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*CostMethodSetting, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*CostMethodSetting], error)
}
