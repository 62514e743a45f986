package valuation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ChangeKind classifies a valuation history record
type ChangeKind string

const (
	ChangeKindMovement     ChangeKind = "movement"
	ChangeKindRevaluation  ChangeKind = "revaluation"
	ChangeKindStandardCost ChangeKind = "standard_cost"
	ChangeKindMethodChange ChangeKind = "method_change"
)

// IsValid returns true if the change kind is valid
func (c ChangeKind) IsValid() bool {
	switch c {
	case ChangeKindMovement, ChangeKindRevaluation, ChangeKindStandardCost, ChangeKindMethodChange:
		return true
	}
	return false
}

// ValuationHistory is an audit record of one valuation state change.
// Snapshot fields capture the state after the change was applied.
type ValuationHistory struct {
	shared.BaseEntity
	TenantID           uuid.UUID
	ProductID          uuid.UUID
	MoveID             *uuid.UUID
	ChangeKind         ChangeKind
	Method             Method
	QuantityDelta      int64
	ValueDelta         int64 // Minor currency units
	VarianceValue      int64
	TotalQuantityAfter int64
	TotalValueAfter    int64
	UnitCostAfter      int64
	OccurredAt         time.Time
}

// NewHistoryRecord snapshots the valuation state after a change
func NewHistoryRecord(v *ProductValuation, kind ChangeKind, moveID *uuid.UUID, quantityDelta, valueDelta, varianceValue int64, at time.Time) *ValuationHistory {
	return &ValuationHistory{
		BaseEntity:         shared.NewBaseEntity(),
		TenantID:           v.TenantID,
		ProductID:          v.ProductID,
		MoveID:             moveID,
		ChangeKind:         kind,
		Method:             v.Method,
		QuantityDelta:      quantityDelta,
		ValueDelta:         valueDelta,
		VarianceValue:      varianceValue,
		TotalQuantityAfter: v.TotalQuantity,
		TotalValueAfter:    v.TotalValue,
		UnitCostAfter:      v.UnitCost,
		OccurredAt:         at,
	}
}
