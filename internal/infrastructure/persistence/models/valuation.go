package models

import (
	"time"

	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/google/uuid"
)

// ProductValuationModel is the persistence model for the ProductValuation
// aggregate root.
type ProductValuationModel struct {
	TenantAggregateModel
	ProductID         uuid.UUID  `gorm:"type:uuid;not null;index"`
	Method            string     `gorm:"type:varchar(20);not null"`
	TotalQuantity     int64      `gorm:"not null;default:0"`
	TotalValue        int64      `gorm:"not null;default:0"`
	UnitCost          int64      `gorm:"not null;default:0"`
	RoundingRemainder int64      `gorm:"not null;default:0"`
	StandardCost      *int64
	Halted            bool       `gorm:"not null;default:false"`
	HaltReason        string     `gorm:"type:text"`
	LastMoveAt        *time.Time
}

// TableName returns the table name for GORM
func (ProductValuationModel) TableName() string {
	return "product_valuations"
}

// ToDomain converts the persistence model to a domain ProductValuation.
func (m *ProductValuationModel) ToDomain() *valuation.ProductValuation {
	v := &valuation.ProductValuation{
		ProductID:         m.ProductID,
		Method:            valuation.Method(m.Method),
		TotalQuantity:     m.TotalQuantity,
		TotalValue:        m.TotalValue,
		UnitCost:          m.UnitCost,
		RoundingRemainder: m.RoundingRemainder,
		StandardCost:      m.StandardCost,
		Halted:            m.Halted,
		HaltReason:        m.HaltReason,
		LastMoveAt:        m.LastMoveAt,
	}
	m.PopulateTenantAggregateRoot(&v.TenantAggregateRoot)
	return v
}

// FromDomain populates the persistence model from a domain ProductValuation.
func (m *ProductValuationModel) FromDomain(v *valuation.ProductValuation) {
	m.FromDomainTenantAggregateRoot(v.TenantAggregateRoot)
	m.ProductID = v.ProductID
	m.Method = v.Method.String()
	m.TotalQuantity = v.TotalQuantity
	m.TotalValue = v.TotalValue
	m.UnitCost = v.UnitCost
	m.RoundingRemainder = v.RoundingRemainder
	m.StandardCost = v.StandardCost
	m.Halted = v.Halted
	m.HaltReason = v.HaltReason
	m.LastMoveAt = v.LastMoveAt
}

// ProductValuationModelFromDomain creates a new persistence model from a domain ProductValuation.
func ProductValuationModelFromDomain(v *valuation.ProductValuation) *ProductValuationModel {
	m := &ProductValuationModel{}
	m.FromDomain(v)
	return m
}

// ValuationLayerModel is the persistence model for a FIFO cost layer.
type ValuationLayerModel struct {
	BaseModel
	TenantID          uuid.UUID `gorm:"type:uuid;not null;index:idx_valuation_layer_product,priority:1"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index:idx_valuation_layer_product,priority:2"`
	SourceMoveID      uuid.UUID `gorm:"type:uuid;not null;index"`
	OriginalQuantity  int64     `gorm:"not null"`
	RemainingQuantity int64     `gorm:"not null"`
	UnitCost          int64     `gorm:"not null"`
	ReceivedAt        time.Time `gorm:"not null;index:idx_valuation_layer_product,priority:3"`
}

// TableName returns the table name for GORM
func (ValuationLayerModel) TableName() string {
	return "valuation_layers"
}

// ToDomain converts the persistence model to a domain ValuationLayer.
func (m *ValuationLayerModel) ToDomain() *valuation.ValuationLayer {
	return &valuation.ValuationLayer{
		BaseEntity:        m.BaseModel.ToDomain(),
		TenantID:          m.TenantID,
		ProductID:         m.ProductID,
		SourceMoveID:      m.SourceMoveID,
		OriginalQuantity:  m.OriginalQuantity,
		RemainingQuantity: m.RemainingQuantity,
		UnitCost:          m.UnitCost,
		ReceivedAt:        m.ReceivedAt,
	}
}

// FromDomain populates the persistence model from a domain ValuationLayer.
func (m *ValuationLayerModel) FromDomain(l *valuation.ValuationLayer) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.TenantID = l.TenantID
	m.ProductID = l.ProductID
	m.SourceMoveID = l.SourceMoveID
	m.OriginalQuantity = l.OriginalQuantity
	m.RemainingQuantity = l.RemainingQuantity
	m.UnitCost = l.UnitCost
	m.ReceivedAt = l.ReceivedAt
}

// ValuationLayerModelFromDomain creates a new persistence model from a domain ValuationLayer.
func ValuationLayerModelFromDomain(l *valuation.ValuationLayer) *ValuationLayerModel {
	m := &ValuationLayerModel{}
	m.FromDomain(l)
	return m
}

// ValuationHistoryModel is the persistence model for a valuation audit record.
type ValuationHistoryModel struct {
	BaseModel
	TenantID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_valuation_history_product,priority:1"`
	ProductID          uuid.UUID  `gorm:"type:uuid;not null;index:idx_valuation_history_product,priority:2"`
	MoveID             *uuid.UUID `gorm:"type:uuid;index"`
	ChangeKind         string     `gorm:"type:varchar(20);not null"`
	Method             string     `gorm:"type:varchar(20);not null"`
	QuantityDelta      int64      `gorm:"not null"`
	ValueDelta         int64      `gorm:"not null"`
	VarianceValue      int64      `gorm:"not null;default:0"`
	TotalQuantityAfter int64      `gorm:"not null"`
	TotalValueAfter    int64      `gorm:"not null"`
	UnitCostAfter      int64      `gorm:"not null"`
	OccurredAt         time.Time  `gorm:"not null;index:idx_valuation_history_product,priority:3"`
}

// TableName returns the table name for GORM
func (ValuationHistoryModel) TableName() string {
	return "valuation_history"
}

// ToDomain converts the persistence model to a domain ValuationHistory.
func (m *ValuationHistoryModel) ToDomain() *valuation.ValuationHistory {
	return &valuation.ValuationHistory{
		BaseEntity:         m.BaseModel.ToDomain(),
		TenantID:           m.TenantID,
		ProductID:          m.ProductID,
		MoveID:             m.MoveID,
		ChangeKind:         valuation.ChangeKind(m.ChangeKind),
		Method:             valuation.Method(m.Method),
		QuantityDelta:      m.QuantityDelta,
		ValueDelta:         m.ValueDelta,
		VarianceValue:      m.VarianceValue,
		TotalQuantityAfter: m.TotalQuantityAfter,
		TotalValueAfter:    m.TotalValueAfter,
		UnitCostAfter:      m.UnitCostAfter,
		OccurredAt:         m.OccurredAt,
	}
}

// FromDomain populates the persistence model from a domain ValuationHistory.
func (m *ValuationHistoryModel) FromDomain(h *valuation.ValuationHistory) {
	m.FromDomainBaseEntity(h.BaseEntity)
	m.TenantID = h.TenantID
	m.ProductID = h.ProductID
	m.MoveID = h.MoveID
	m.ChangeKind = string(h.ChangeKind)
	m.Method = h.Method.String()
	m.QuantityDelta = h.QuantityDelta
	m.ValueDelta = h.ValueDelta
	m.VarianceValue = h.VarianceValue
	m.TotalQuantityAfter = h.TotalQuantityAfter
	m.TotalValueAfter = h.TotalValueAfter
	m.UnitCostAfter = h.UnitCostAfter
	m.OccurredAt = h.OccurredAt
}

// ValuationHistoryModelFromDomain creates a new persistence model from a domain ValuationHistory.
func ValuationHistoryModelFromDomain(h *valuation.ValuationHistory) *ValuationHistoryModel {
	m := &ValuationHistoryModel{}
	m.FromDomain(h)
	return m
}

// CostMethodSettingModel is the persistence model for a cost method setting.
type CostMethodSettingModel struct {
	BaseModel
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	Scope      string     `gorm:"type:varchar(20);not null"`
	CategoryID *uuid.UUID `gorm:"type:uuid;index"`
	ProductID  *uuid.UUID `gorm:"type:uuid;index"`
	Method     string     `gorm:"type:varchar(20);not null"`
}

// TableName returns the table name for GORM
func (CostMethodSettingModel) TableName() string {
	return "cost_method_settings"
}

// ToDomain converts the persistence model to a domain CostMethodSetting.
func (m *CostMethodSettingModel) ToDomain() *valuation.CostMethodSetting {
	return &valuation.CostMethodSetting{
		BaseEntity: m.BaseModel.ToDomain(),
		TenantID:   m.TenantID,
		Scope:      valuation.SettingScope(m.Scope),
		CategoryID: m.CategoryID,
		ProductID:  m.ProductID,
		Method:     valuation.Method(m.Method),
	}
}

// FromDomain populates the persistence model from a domain CostMethodSetting.
func (m *CostMethodSettingModel) FromDomain(s *valuation.CostMethodSetting) {
	m.FromDomainBaseEntity(s.BaseEntity)
	m.TenantID = s.TenantID
	m.Scope = string(s.Scope)
	m.CategoryID = s.CategoryID
	m.ProductID = s.ProductID
	m.Method = s.Method.String()
}

// CostMethodSettingModelFromDomain creates a new persistence model from a domain CostMethodSetting.
func CostMethodSettingModelFromDomain(s *valuation.CostMethodSetting) *CostMethodSettingModel {
	m := &CostMethodSettingModel{}
	m.FromDomain(s)
	return m
}
