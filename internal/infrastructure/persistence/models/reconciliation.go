package models

import (
	"encoding/json"
	"time"

	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/google/uuid"
)

// ReconciliationSessionModel is the persistence model for the Session
// aggregate root.
type ReconciliationSessionModel struct {
	TenantAggregateModel
	// Uniqueness per tenant is enforced in the schema migrations.
	SessionNumber string     `gorm:"type:varchar(50);not null;index"`
	WarehouseID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status        string     `gorm:"type:varchar(20);not null;index"`
	Notes         string     `gorm:"type:text"`
	ScopeFilter   string     `gorm:"type:jsonb"`
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CreatedByID   uuid.UUID  `gorm:"type:uuid;not null"`
	CompletedByID *uuid.UUID `gorm:"type:uuid"`
	TotalItems    int        `gorm:"not null;default:0"`
	CountedItems  int        `gorm:"not null;default:0"`
	SkippedItems  int        `gorm:"not null;default:0"`
	VarianceItems int        `gorm:"not null;default:0"`
	TotalVariance int64      `gorm:"not null;default:0"`
	// TotalVarianceValue costs TotalVariance at the snapshot unit costs
	TotalVarianceValue int64 `gorm:"not null;default:0"`
	// Associations
	Items []ReconciliationItemModel `gorm:"foreignKey:SessionID;references:ID"`
}

// TableName returns the table name for GORM
func (ReconciliationSessionModel) TableName() string {
	return "reconciliation_sessions"
}

// ToDomain converts the persistence model to a domain Session.
func (m *ReconciliationSessionModel) ToDomain() *reconciliation.Session {
	var scope []uuid.UUID
	if m.ScopeFilter != "" {
		_ = json.Unmarshal([]byte(m.ScopeFilter), &scope)
	}
	s := &reconciliation.Session{
		SessionNumber:      m.SessionNumber,
		WarehouseID:        m.WarehouseID,
		Status:             reconciliation.SessionStatus(m.Status),
		Notes:              m.Notes,
		ScopeProductIDs:    scope,
		StartedAt:          m.StartedAt,
		CompletedAt:        m.CompletedAt,
		CancelledAt:        m.CancelledAt,
		CreatedByID:        m.CreatedByID,
		CompletedByID:      m.CompletedByID,
		TotalItems:         m.TotalItems,
		CountedItems:       m.CountedItems,
		SkippedItems:       m.SkippedItems,
		VarianceItems:      m.VarianceItems,
		TotalVariance:      m.TotalVariance,
		TotalVarianceValue: m.TotalVarianceValue,
		Items:              make([]reconciliation.SessionItem, len(m.Items)),
	}
	m.PopulateTenantAggregateRoot(&s.TenantAggregateRoot)
	for i, item := range m.Items {
		s.Items[i] = *item.ToDomain()
	}
	return s
}

// FromDomain populates the persistence model from a domain Session.
func (m *ReconciliationSessionModel) FromDomain(s *reconciliation.Session) {
	m.FromDomainTenantAggregateRoot(s.TenantAggregateRoot)
	m.SessionNumber = s.SessionNumber
	m.WarehouseID = s.WarehouseID
	m.Status = s.Status.String()
	m.Notes = s.Notes
	m.ScopeFilter = ""
	if len(s.ScopeProductIDs) > 0 {
		if jsonBytes, err := json.Marshal(s.ScopeProductIDs); err == nil {
			m.ScopeFilter = string(jsonBytes)
		}
	}
	m.StartedAt = s.StartedAt
	m.CompletedAt = s.CompletedAt
	m.CancelledAt = s.CancelledAt
	m.CreatedByID = s.CreatedByID
	m.CompletedByID = s.CompletedByID
	m.TotalItems = s.TotalItems
	m.CountedItems = s.CountedItems
	m.SkippedItems = s.SkippedItems
	m.VarianceItems = s.VarianceItems
	m.TotalVariance = s.TotalVariance
	m.TotalVarianceValue = s.TotalVarianceValue
	m.Items = make([]ReconciliationItemModel, len(s.Items))
	for i := range s.Items {
		m.Items[i] = *ReconciliationItemModelFromDomain(&s.Items[i])
	}
}

// ReconciliationSessionModelFromDomain creates a new persistence model from a domain Session.
func ReconciliationSessionModelFromDomain(s *reconciliation.Session) *ReconciliationSessionModel {
	m := &ReconciliationSessionModel{}
	m.FromDomain(s)
	return m
}

// ReconciliationItemModel is the persistence model for one session line.
type ReconciliationItemModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key"`
	SessionID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recon_item_session_product,priority:1"`
	ProductID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_recon_item_session_product,priority:2"`
	ExpectedQuantity int64     `gorm:"not null"`
	CountedQuantity  *int64
	VarianceQuantity int64     `gorm:"not null;default:0"`
	UnitCost         int64     `gorm:"not null;default:0"`
	VarianceValue    int64     `gorm:"not null;default:0"`
	Counted          bool      `gorm:"not null;default:false"`
	Skipped          bool      `gorm:"not null;default:false"`
	Note             string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReconciliationItemModel) TableName() string {
	return "reconciliation_items"
}

// ToDomain converts the persistence model to a domain SessionItem.
func (m *ReconciliationItemModel) ToDomain() *reconciliation.SessionItem {
	return &reconciliation.SessionItem{
		ID:               m.ID,
		SessionID:        m.SessionID,
		ProductID:        m.ProductID,
		ExpectedQuantity: m.ExpectedQuantity,
		CountedQuantity:  m.CountedQuantity,
		VarianceQuantity: m.VarianceQuantity,
		UnitCost:         m.UnitCost,
		VarianceValue:    m.VarianceValue,
		Counted:          m.Counted,
		Skipped:          m.Skipped,
		Note:             m.Note,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain SessionItem.
func (m *ReconciliationItemModel) FromDomain(i *reconciliation.SessionItem) {
	m.ID = i.ID
	m.SessionID = i.SessionID
	m.ProductID = i.ProductID
	m.ExpectedQuantity = i.ExpectedQuantity
	m.CountedQuantity = i.CountedQuantity
	m.VarianceQuantity = i.VarianceQuantity
	m.UnitCost = i.UnitCost
	m.VarianceValue = i.VarianceValue
	m.Counted = i.Counted
	m.Skipped = i.Skipped
	m.Note = i.Note
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// ReconciliationItemModelFromDomain creates a new persistence model from a domain SessionItem.
func ReconciliationItemModelFromDomain(i *reconciliation.SessionItem) *ReconciliationItemModel {
	m := &ReconciliationItemModel{}
	m.FromDomain(i)
	return m
}
