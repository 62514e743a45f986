package models

import (
	"encoding/json"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockMoveEntryModel is the persistence model for a stock ledger entry.
// Rows are append-only; the only column ever updated is move_reason.
type StockMoveEntryModel struct {
	BaseModel
	TenantID              uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_stock_move_tenant_idem,priority:1"`
	ProductID             uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_move_product_time,priority:2"`
	SourceLocationID      *uuid.UUID `gorm:"type:uuid;index"`
	DestinationLocationID *uuid.UUID `gorm:"type:uuid;index"`
	MoveKind              string     `gorm:"type:varchar(20);not null"`
	Quantity              int64      `gorm:"not null"`
	UnitCost              *int64
	TotalCost             *int64
	ReferenceKind         string     `gorm:"type:varchar(30);not null;index:idx_stock_move_reference,priority:1"`
	ReferenceID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_stock_move_reference,priority:2"`
	IdempotencyKey        string     `gorm:"type:varchar(255);not null;uniqueIndex:idx_stock_move_tenant_idem,priority:2"`
	MoveReason            string     `gorm:"type:text"`
	Metadata              string     `gorm:"type:jsonb"`
	OccurredAt            time.Time  `gorm:"not null;index:idx_stock_move_product_time,priority:3"`
	CreatedByID           *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (StockMoveEntryModel) TableName() string {
	return "stock_move_entries"
}

// BeforeUpdate rejects any update that touches a column other than the
// annotation. Committed ledger rows are immutable; move_reason is the one
// exception.
func (m *StockMoveEntryModel) BeforeUpdate(tx *gorm.DB) error {
	if tx.Statement.Changed(
		"TenantID", "ProductID", "SourceLocationID", "DestinationLocationID",
		"MoveKind", "Quantity", "UnitCost", "TotalCost",
		"ReferenceKind", "ReferenceID", "IdempotencyKey",
		"Metadata", "OccurredAt", "CreatedByID",
	) {
		return shared.ErrLedgerImmutable
	}
	return nil
}

// ToDomain converts the persistence model to a domain StockMoveEntry.
func (m *StockMoveEntryModel) ToDomain() *ledger.StockMoveEntry {
	var metadata map[string]string
	if m.Metadata != "" {
		_ = json.Unmarshal([]byte(m.Metadata), &metadata)
	}
	return &ledger.StockMoveEntry{
		BaseEntity: shared.BaseEntity{
			ID:        m.ID,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		TenantID:              m.TenantID,
		ProductID:             m.ProductID,
		SourceLocationID:      m.SourceLocationID,
		DestinationLocationID: m.DestinationLocationID,
		MoveKind:              ledger.MoveKind(m.MoveKind),
		Quantity:              m.Quantity,
		UnitCost:              m.UnitCost,
		TotalCost:             m.TotalCost,
		ReferenceKind:         ledger.ReferenceKind(m.ReferenceKind),
		ReferenceID:           m.ReferenceID,
		IdempotencyKey:        m.IdempotencyKey,
		MoveReason:            m.MoveReason,
		Metadata:              metadata,
		OccurredAt:            m.OccurredAt,
		CreatedByID:           m.CreatedByID,
	}
}

// FromDomain populates the persistence model from a domain StockMoveEntry.
func (m *StockMoveEntryModel) FromDomain(e *ledger.StockMoveEntry) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.TenantID = e.TenantID
	m.ProductID = e.ProductID
	m.SourceLocationID = e.SourceLocationID
	m.DestinationLocationID = e.DestinationLocationID
	m.MoveKind = e.MoveKind.String()
	m.Quantity = e.Quantity
	m.UnitCost = e.UnitCost
	m.TotalCost = e.TotalCost
	m.ReferenceKind = e.ReferenceKind.String()
	m.ReferenceID = e.ReferenceID
	m.IdempotencyKey = e.IdempotencyKey
	m.MoveReason = e.MoveReason
	m.Metadata = ""
	if len(e.Metadata) > 0 {
		if jsonBytes, err := json.Marshal(e.Metadata); err == nil {
			m.Metadata = string(jsonBytes)
		}
	}
	m.OccurredAt = e.OccurredAt
	m.CreatedByID = e.CreatedByID
}

// StockMoveEntryModelFromDomain creates a new persistence model from a domain StockMoveEntry.
func StockMoveEntryModelFromDomain(e *ledger.StockMoveEntry) *StockMoveEntryModel {
	m := &StockMoveEntryModel{}
	m.FromDomain(e)
	return m
}
