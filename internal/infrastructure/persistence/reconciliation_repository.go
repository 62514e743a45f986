package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSessionRepository implements SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// Create inserts a new session with its items
func (r *GormSessionRepository) Create(ctx context.Context, session *reconciliation.Session) error {
	model := models.ReconciliationSessionModelFromDomain(session)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// Update persists the session and reconciles its item rows inside one
// transaction. A unit of work may apply several mutations before saving, so
// the guard accepts any stored version lower than the aggregate's; a writer
// holding a stale aggregate always fails the guard.
func (r *GormSessionRepository) Update(ctx context.Context, session *reconciliation.Session) error {
	model := models.ReconciliationSessionModelFromDomain(session)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ReconciliationSessionModel{}).
			Where("id = ? AND tenant_id = ? AND version < ?", session.ID, session.TenantID, session.Version).
			Updates(map[string]interface{}{
				"session_number":       model.SessionNumber,
				"status":               model.Status,
				"notes":                model.Notes,
				"scope_filter":         model.ScopeFilter,
				"started_at":           model.StartedAt,
				"completed_at":         model.CompletedAt,
				"cancelled_at":         model.CancelledAt,
				"completed_by_id":      model.CompletedByID,
				"total_items":          model.TotalItems,
				"counted_items":        model.CountedItems,
				"skipped_items":        model.SkippedItems,
				"variance_items":       model.VarianceItems,
				"total_variance":       model.TotalVariance,
				"total_variance_value": model.TotalVarianceValue,
				"version":              session.Version,
				"updated_at":           model.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		itemIDs := make([]uuid.UUID, len(model.Items))
		for i := range model.Items {
			itemIDs[i] = model.Items[i].ID
		}
		deleteQuery := tx.Where("session_id = ?", session.ID)
		if len(itemIDs) > 0 {
			deleteQuery = deleteQuery.Where("id NOT IN ?", itemIDs)
		}
		if err := deleteQuery.Delete(&models.ReconciliationItemModel{}).Error; err != nil {
			return err
		}

		if len(model.Items) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				UpdateAll: true,
			}).Create(&model.Items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// FindByID finds a session by ID including its items
func (r *GormSessionRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*reconciliation.Session, error) {
	var model models.ReconciliationSessionModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySessionNumber finds a session by its human-readable number
func (r *GormSessionRepository) FindBySessionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*reconciliation.Session, error) {
	var model models.ReconciliationSessionModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND session_number = ?", tenantID, number).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByWarehouse returns sessions for a warehouse
func (r *GormSessionRepository) FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[*reconciliation.Session], error) {
	return r.findPage(ctx, filter, "tenant_id = ? AND warehouse_id = ?", tenantID, warehouseID)
}

// FindByStatus returns sessions in a given status
func (r *GormSessionRepository) FindByStatus(ctx context.Context, tenantID uuid.UUID, status reconciliation.SessionStatus, filter shared.Filter) (*shared.Paginated[*reconciliation.Session], error) {
	return r.findPage(ctx, filter, "tenant_id = ? AND status = ?", tenantID, status.String())
}

// FindAll returns all sessions for a tenant
func (r *GormSessionRepository) FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*reconciliation.Session], error) {
	return r.findPage(ctx, filter, "tenant_id = ?", tenantID)
}

// HasActiveForWarehouse reports whether a non-terminal session exists for the warehouse
func (r *GormSessionRepository) HasActiveForWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReconciliationSessionModel{}).
		Where("tenant_id = ? AND warehouse_id = ? AND status NOT IN ?", tenantID, warehouseID,
			[]string{reconciliation.SessionStatusCompleted.String(), reconciliation.SessionStatusCancelled.String()}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormSessionRepository) findPage(ctx context.Context, filter shared.Filter, cond string, args ...interface{}) (*shared.Paginated[*reconciliation.Session], error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.ReconciliationSessionModel{}).
		Where(cond, args...).
		Count(&total).Error; err != nil {
		return nil, err
	}

	var sessionModels []models.ReconciliationSessionModel
	query := applySessionFilter(
		r.db.WithContext(ctx).Model(&models.ReconciliationSessionModel{}).
			Preload("Items").
			Where(cond, args...),
		filter,
	)
	if err := query.Find(&sessionModels).Error; err != nil {
		return nil, err
	}

	sessions := make([]*reconciliation.Session, len(sessionModels))
	for i := range sessionModels {
		sessions[i] = sessionModels[i].ToDomain()
	}
	page := shared.NewPaginated(sessions, total, filter.Page, filter.Limit())
	return &page, nil
}

// applySessionFilter applies pagination and validated ordering to a query
func applySessionFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	// Whitelist of valid sort fields to prevent SQL injection
	validFields := map[string]bool{
		"created_at":     true,
		"session_number": true,
		"status":         true,
		"started_at":     true,
		"completed_at":   true,
		"total_variance": true,
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

var _ reconciliation.SessionRepository = (*GormSessionRepository)(nil)
