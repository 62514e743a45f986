package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStockMoveRepository implements StockMoveRepository using GORM. The
// ledger table is append-only; this repository never updates or deletes a
// row, except for the move_reason annotation column.
type GormStockMoveRepository struct {
	db *gorm.DB
}

// NewGormStockMoveRepository creates a new GormStockMoveRepository
func NewGormStockMoveRepository(db *gorm.DB) *GormStockMoveRepository {
	return &GormStockMoveRepository{db: db}
}

// Create appends a ledger entry. A duplicate idempotency key within the
// tenant surfaces as shared.ErrAlreadyExists via the unique index.
func (r *GormStockMoveRepository) Create(ctx context.Context, entry *ledger.StockMoveEntry) error {
	model := models.StockMoveEntryModelFromDomain(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds a ledger entry by ID within a tenant
func (r *GormStockMoveRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*ledger.StockMoveEntry, error) {
	var model models.StockMoveEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIdempotencyKey finds a ledger entry by its idempotency key
func (r *GormStockMoveRepository) FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*ledger.StockMoveEntry, error) {
	var model models.StockMoveEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND idempotency_key = ?", tenantID, key).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProduct returns a product's history slice, ascending by occurred_at
// with ties broken by ID so keyset pagination never skips or repeats.
func (r *GormStockMoveRepository) FindByProduct(ctx context.Context, tenantID uuid.UUID, query ledger.HistoryQuery) ([]*ledger.StockMoveEntry, error) {
	q := r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, query.ProductID)

	if query.From != nil {
		q = q.Where("occurred_at >= ?", *query.From)
	}
	if query.To != nil {
		q = q.Where("occurred_at <= ?", *query.To)
	}
	if query.AfterTime != nil && query.AfterID != nil {
		q = q.Where("(occurred_at > ?) OR (occurred_at = ? AND id > ?)",
			*query.AfterTime, *query.AfterTime, *query.AfterID)
	}
	if query.MoveKind != nil {
		q = q.Where("move_kind = ?", query.MoveKind.String())
	}
	if query.LocationID != nil {
		q = q.Where("source_location_id = ? OR destination_location_id = ?",
			*query.LocationID, *query.LocationID)
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var entryModels []models.StockMoveEntryModel
	if err := q.Order("occurred_at ASC, id ASC").Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(entryModels), nil
}

// FindByReference returns all entries that trace back to a source document
func (r *GormStockMoveRepository) FindByReference(ctx context.Context, tenantID uuid.UUID, kind ledger.ReferenceKind, referenceID uuid.UUID) ([]*ledger.StockMoveEntry, error) {
	var entryModels []models.StockMoveEntryModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference_kind = ? AND reference_id = ?", tenantID, kind.String(), referenceID).
		Order("occurred_at ASC, id ASC").
		Find(&entryModels).Error; err != nil {
		return nil, err
	}
	return toDomainEntries(entryModels), nil
}

// FindAll returns a paginated list of ledger entries for a tenant
func (r *GormStockMoveRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.StockMoveEntry], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var entryModels []models.StockMoveEntryModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
			Where("tenant_id = ?", tenantID),
		filter,
	)
	if err := query.Find(&entryModels).Error; err != nil {
		return nil, err
	}

	page := shared.NewPaginated(toDomainEntries(entryModels), total, filter.Page, filter.Limit())
	return &page, nil
}

// UpdateAnnotation patches move_reason; every other column stays frozen
func (r *GormStockMoveRepository) UpdateAnnotation(ctx context.Context, tenantID, id uuid.UUID, reason string) error {
	result := r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("move_reason", reason)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SumQuantityByProduct returns the net on-hand quantity across all locations
func (r *GormStockMoveRepository) SumQuantityByProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
		Where("tenant_id = ? AND product_id = ? AND move_kind <> ?", tenantID, productID, ledger.MoveKindTransfer.String()).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&sum).Error
	return sum, err
}

// SumQuantityByProductAndLocation returns the net on-hand quantity for one
// product at one location
func (r *GormStockMoveRepository) SumQuantityByProductAndLocation(ctx context.Context, tenantID, productID, locationID uuid.UUID) (int64, error) {
	var sum int64
	err := r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		Where("source_location_id = ? OR destination_location_id = ?", locationID, locationID).
		Select(onHandExpr, locationID, locationID).
		Scan(&sum).Error
	return sum, err
}

// onHandExpr nets entry quantities against one location: inbound legs add
// the absolute quantity, outbound legs subtract it.
const onHandExpr = `COALESCE(SUM(
	CASE WHEN destination_location_id = ? THEN ABS(quantity) ELSE 0 END -
	CASE WHEN source_location_id = ? THEN ABS(quantity) ELSE 0 END
), 0)`

// OnHandByLocation returns the net on-hand quantity per product at a location
func (r *GormStockMoveRepository) OnHandByLocation(ctx context.Context, tenantID, locationID uuid.UUID) (map[uuid.UUID]int64, error) {
	type row struct {
		ProductID uuid.UUID
		OnHand    int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.StockMoveEntryModel{}).
		Where("tenant_id = ?", tenantID).
		Where("source_location_id = ? OR destination_location_id = ?", locationID, locationID).
		Select(fmt.Sprintf("product_id, %s AS on_hand", onHandExpr), locationID, locationID).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]int64, len(rows))
	for _, item := range rows {
		result[item.ProductID] = item.OnHand
	}
	return result, nil
}

// applyFilter applies pagination and ordering to a query
func (r *GormStockMoveRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	orderBy := "occurred_at"
	if filter.OrderBy != "" {
		// Validate order by field to prevent SQL injection
		validFields := map[string]bool{
			"occurred_at": true,
			"created_at":  true,
			"quantity":    true,
			"move_kind":   true,
		}
		if validFields[filter.OrderBy] {
			orderBy = filter.OrderBy
		}
	}

	orderDir := "DESC"
	if filter.OrderDir == "asc" || filter.OrderDir == "ASC" {
		orderDir = "ASC"
	}

	return query.Order(fmt.Sprintf("%s %s", orderBy, orderDir))
}

func toDomainEntries(entryModels []models.StockMoveEntryModel) []*ledger.StockMoveEntry {
	entries := make([]*ledger.StockMoveEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = entryModels[i].ToDomain()
	}
	return entries
}

// Ensure GormStockMoveRepository implements StockMoveRepository
var _ ledger.StockMoveRepository = (*GormStockMoveRepository)(nil)
