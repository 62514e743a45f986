package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductValuationRepository implements ProductValuationRepository using GORM
type GormProductValuationRepository struct {
	db *gorm.DB
}

// NewGormProductValuationRepository creates a new GormProductValuationRepository
func NewGormProductValuationRepository(db *gorm.DB) *GormProductValuationRepository {
	return &GormProductValuationRepository{db: db}
}

// Create inserts a new valuation record
func (r *GormProductValuationRepository) Create(ctx context.Context, v *valuation.ProductValuation) error {
	model := models.ProductValuationModelFromDomain(v)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists the aggregate guarded by its version. A stale version
// means another writer got there first.
func (r *GormProductValuationRepository) Update(ctx context.Context, v *valuation.ProductValuation) error {
	result := r.db.WithContext(ctx).Model(&models.ProductValuationModel{}).
		Where("tenant_id = ? AND product_id = ? AND version = ?", v.TenantID, v.ProductID, v.Version).
		Updates(map[string]interface{}{
			"method":             v.Method.String(),
			"total_quantity":     v.TotalQuantity,
			"total_value":        v.TotalValue,
			"unit_cost":          v.UnitCost,
			"rounding_remainder": v.RoundingRemainder,
			"standard_cost":      v.StandardCost,
			"halted":             v.Halted,
			"halt_reason":        v.HaltReason,
			"last_move_at":       v.LastMoveAt,
			"version":            v.Version + 1,
			"updated_at":         v.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	v.Version++
	return nil
}

// FindByProduct finds the valuation record for a product
func (r *GormProductValuationRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*valuation.ProductValuation, error) {
	var model models.ProductValuationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns a paginated list of valuation records for a tenant
func (r *GormProductValuationRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.ProductValuation], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ProductValuationModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var valuationModels []models.ProductValuationModel
	query := applyValuationFilter(
		r.db.WithContext(ctx).Model(&models.ProductValuationModel{}).
			Where("tenant_id = ?", tenantID),
		filter,
		map[string]bool{"total_value": true, "total_quantity": true, "unit_cost": true, "updated_at": true, "last_move_at": true},
	)
	if err := query.Find(&valuationModels).Error; err != nil {
		return nil, err
	}

	valuations := make([]*valuation.ProductValuation, len(valuationModels))
	for i := range valuationModels {
		valuations[i] = valuationModels[i].ToDomain()
	}
	page := shared.NewPaginated(valuations, total, filter.Page, filter.Limit())
	return &page, nil
}

// GormValuationLayerRepository implements ValuationLayerRepository using GORM
type GormValuationLayerRepository struct {
	db *gorm.DB
}

// NewGormValuationLayerRepository creates a new GormValuationLayerRepository
func NewGormValuationLayerRepository(db *gorm.DB) *GormValuationLayerRepository {
	return &GormValuationLayerRepository{db: db}
}

// Create inserts a new cost layer
func (r *GormValuationLayerRepository) Create(ctx context.Context, layer *valuation.ValuationLayer) error {
	model := models.ValuationLayerModelFromDomain(layer)
	return r.db.WithContext(ctx).Create(model).Error
}

// Update persists layer consumption or a revaluation rewrite
func (r *GormValuationLayerRepository) Update(ctx context.Context, layer *valuation.ValuationLayer) error {
	result := r.db.WithContext(ctx).Model(&models.ValuationLayerModel{}).
		Where("id = ?", layer.ID).
		Updates(map[string]interface{}{
			"remaining_quantity": layer.RemainingQuantity,
			"unit_cost":          layer.UnitCost,
			"updated_at":         layer.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindOpenByProduct returns undepleted layers, oldest first. Consumption
// order follows when the stock was received; layers received at the same
// instant fall back to creation order.
func (r *GormValuationLayerRepository) FindOpenByProduct(ctx context.Context, tenantID, productID uuid.UUID) ([]*valuation.ValuationLayer, error) {
	var layerModels []models.ValuationLayerModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND remaining_quantity > 0", tenantID, productID).
		Order("received_at ASC, created_at ASC, id ASC").
		Find(&layerModels).Error; err != nil {
		return nil, err
	}
	layers := make([]*valuation.ValuationLayer, len(layerModels))
	for i := range layerModels {
		layers[i] = layerModels[i].ToDomain()
	}
	return layers, nil
}

// FindByProduct returns all layers for a product, open and depleted
func (r *GormValuationLayerRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.ValuationLayer], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ValuationLayerModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var layerModels []models.ValuationLayerModel
	query := applyValuationFilter(
		r.db.WithContext(ctx).Model(&models.ValuationLayerModel{}).
			Where("tenant_id = ? AND product_id = ?", tenantID, productID),
		filter,
		map[string]bool{"received_at": true, "remaining_quantity": true, "unit_cost": true},
	)
	if err := query.Find(&layerModels).Error; err != nil {
		return nil, err
	}

	layers := make([]*valuation.ValuationLayer, len(layerModels))
	for i := range layerModels {
		layers[i] = layerModels[i].ToDomain()
	}
	page := shared.NewPaginated(layers, total, filter.Page, filter.Limit())
	return &page, nil
}

// GormValuationHistoryRepository implements ValuationHistoryRepository using GORM
type GormValuationHistoryRepository struct {
	db *gorm.DB
}

// NewGormValuationHistoryRepository creates a new GormValuationHistoryRepository
func NewGormValuationHistoryRepository(db *gorm.DB) *GormValuationHistoryRepository {
	return &GormValuationHistoryRepository{db: db}
}

// Create appends an audit record
func (r *GormValuationHistoryRepository) Create(ctx context.Context, record *valuation.ValuationHistory) error {
	model := models.ValuationHistoryModelFromDomain(record)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByProduct returns a product's audit trail
func (r *GormValuationHistoryRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.ValuationHistory], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ValuationHistoryModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var historyModels []models.ValuationHistoryModel
	query := applyValuationFilter(
		r.db.WithContext(ctx).Model(&models.ValuationHistoryModel{}).
			Where("tenant_id = ? AND product_id = ?", tenantID, productID),
		filter,
		map[string]bool{"occurred_at": true, "change_kind": true},
	)
	if err := query.Find(&historyModels).Error; err != nil {
		return nil, err
	}

	records := make([]*valuation.ValuationHistory, len(historyModels))
	for i := range historyModels {
		records[i] = historyModels[i].ToDomain()
	}
	page := shared.NewPaginated(records, total, filter.Page, filter.Limit())
	return &page, nil
}

// GormCostMethodSettingRepository implements CostMethodSettingRepository using GORM
type GormCostMethodSettingRepository struct {
	db *gorm.DB
}

// NewGormCostMethodSettingRepository creates a new GormCostMethodSettingRepository
func NewGormCostMethodSettingRepository(db *gorm.DB) *GormCostMethodSettingRepository {
	return &GormCostMethodSettingRepository{db: db}
}

// Create inserts a new setting
func (r *GormCostMethodSettingRepository) Create(ctx context.Context, setting *valuation.CostMethodSetting) error {
	model := models.CostMethodSettingModelFromDomain(setting)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists a changed setting
func (r *GormCostMethodSettingRepository) Update(ctx context.Context, setting *valuation.CostMethodSetting) error {
	result := r.db.WithContext(ctx).Model(&models.CostMethodSettingModel{}).
		Where("tenant_id = ? AND id = ?", setting.TenantID, setting.ID).
		Updates(map[string]interface{}{
			"method":     setting.Method.String(),
			"updated_at": setting.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a setting
func (r *GormCostMethodSettingRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Delete(&models.CostMethodSettingModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a setting by ID
func (r *GormCostMethodSettingRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*valuation.CostMethodSetting, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindForTenant finds the tenant-wide default setting
func (r *GormCostMethodSettingRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID) (*valuation.CostMethodSetting, error) {
	return r.findOne(ctx, "tenant_id = ? AND scope = ?", tenantID, string(valuation.ScopeTenant))
}

// FindForCategory finds a category-level override
func (r *GormCostMethodSettingRepository) FindForCategory(ctx context.Context, tenantID, categoryID uuid.UUID) (*valuation.CostMethodSetting, error) {
	return r.findOne(ctx, "tenant_id = ? AND scope = ? AND category_id = ?", tenantID, string(valuation.ScopeCategory), categoryID)
}

// FindForProduct finds a product-level override
func (r *GormCostMethodSettingRepository) FindForProduct(ctx context.Context, tenantID, productID uuid.UUID) (*valuation.CostMethodSetting, error) {
	return r.findOne(ctx, "tenant_id = ? AND scope = ? AND product_id = ?", tenantID, string(valuation.ScopeProduct), productID)
}

func (r *GormCostMethodSettingRepository) findOne(ctx context.Context, cond string, args ...interface{}) (*valuation.CostMethodSetting, error) {
	var model models.CostMethodSettingModel
	if err := r.db.WithContext(ctx).Where(cond, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListByTenant returns all settings for a tenant
func (r *GormCostMethodSettingRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.CostMethodSetting], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.CostMethodSettingModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var settingModels []models.CostMethodSettingModel
	query := applyValuationFilter(
		r.db.WithContext(ctx).Model(&models.CostMethodSettingModel{}).
			Where("tenant_id = ?", tenantID),
		filter,
		map[string]bool{"scope": true, "method": true, "updated_at": true},
	)
	if err := query.Find(&settingModels).Error; err != nil {
		return nil, err
	}

	settings := make([]*valuation.CostMethodSetting, len(settingModels))
	for i := range settingModels {
		settings[i] = settingModels[i].ToDomain()
	}
	page := shared.NewPaginated(settings, total, filter.Page, filter.Limit())
	return &page, nil
}

// applyValuationFilter applies pagination and validated ordering to a query
func applyValuationFilter(query *gorm.DB, filter shared.Filter, validFields map[string]bool) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := "created_at"
	if filter.OrderBy != "" && validFields[filter.OrderBy] {
		orderBy = filter.OrderBy
	}

	orderDir := "DESC"
	if filter.OrderDir == "asc" || filter.OrderDir == "ASC" {
		orderDir = "ASC"
	}

	return query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))
}

var _ valuation.ProductValuationRepository = (*GormProductValuationRepository)(nil)
var _ valuation.ValuationLayerRepository = (*GormValuationLayerRepository)(nil)
var _ valuation.ValuationHistoryRepository = (*GormValuationHistoryRepository)(nil)
var _ valuation.CostMethodSettingRepository = (*GormCostMethodSettingRepository)(nil)
