package valuation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared/valueobject"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValuationResponse is the read model for a product's valuation state
type ValuationResponse struct {
	ProductID         uuid.UUID        `json:"product_id"`
	Method            valuation.Method `json:"method"`
	TotalQuantity     int64            `json:"total_quantity"`
	TotalValue        int64            `json:"total_value"` // Minor currency units
	TotalValueDisplay decimal.Decimal  `json:"total_value_display"`
	UnitCost          int64            `json:"unit_cost"`
	UnitCostDisplay   decimal.Decimal  `json:"unit_cost_display"`
	RoundingRemainder int64            `json:"rounding_remainder"`
	StandardCost      *int64           `json:"standard_cost,omitempty"`
	Halted            bool             `json:"halted"`
	HaltReason        string           `json:"halt_reason,omitempty"`
	LastMoveAt        *time.Time       `json:"last_move_at,omitempty"`
}

// LayerResponse is the read model for one FIFO cost layer
type LayerResponse struct {
	ID                uuid.UUID `json:"id"`
	ProductID         uuid.UUID `json:"product_id"`
	SourceMoveID      uuid.UUID `json:"source_move_id"`
	OriginalQuantity  int64     `json:"original_quantity"`
	RemainingQuantity int64     `json:"remaining_quantity"`
	UnitCost          int64     `json:"unit_cost"`
	RemainingValue    int64     `json:"remaining_value"`
	ReceivedAt        time.Time `json:"received_at"`
}

// HistoryResponse is the read model for one valuation audit record
type HistoryResponse struct {
	ID                 uuid.UUID            `json:"id"`
	ProductID          uuid.UUID            `json:"product_id"`
	MoveID             *uuid.UUID           `json:"move_id,omitempty"`
	ChangeKind         valuation.ChangeKind `json:"change_kind"`
	Method             valuation.Method     `json:"method"`
	QuantityDelta      int64                `json:"quantity_delta"`
	ValueDelta         int64                `json:"value_delta"`
	VarianceValue      int64                `json:"variance_value"`
	TotalQuantityAfter int64                `json:"total_quantity_after"`
	TotalValueAfter    int64                `json:"total_value_after"`
	UnitCostAfter      int64                `json:"unit_cost_after"`
	OccurredAt         time.Time            `json:"occurred_at"`
}

// SettingResponse is the read model for a cost method setting
type SettingResponse struct {
	ID         uuid.UUID              `json:"id"`
	Scope      valuation.SettingScope `json:"scope"`
	CategoryID *uuid.UUID             `json:"category_id,omitempty"`
	ProductID  *uuid.UUID             `json:"product_id,omitempty"`
	Method     valuation.Method       `json:"method"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// CreateSettingRequest creates or replaces a cost method setting
type CreateSettingRequest struct {
	Scope      valuation.SettingScope `json:"scope"`
	CategoryID *uuid.UUID             `json:"category_id,omitempty"`
	ProductID  *uuid.UUID             `json:"product_id,omitempty"`
	Method     valuation.Method       `json:"method"`
}

// RevalueRequest rebases a product's total value at its current quantity
type RevalueRequest struct {
	ProductID     uuid.UUID `json:"product_id"`
	NewTotalValue int64     `json:"new_total_value"` // Minor currency units
	Reason        string    `json:"reason,omitempty"`
}

// ToValuationResponse converts a domain valuation to its read model
func ToValuationResponse(v *valuation.ProductValuation) ValuationResponse {
	return ValuationResponse{
		ProductID:         v.ProductID,
		Method:            v.Method,
		TotalQuantity:     v.TotalQuantity,
		TotalValue:        v.TotalValue,
		TotalValueDisplay: valueobject.NewMoneyCents(v.TotalValue).Decimal(),
		UnitCost:          v.UnitCost,
		UnitCostDisplay:   valueobject.NewMoneyCents(v.UnitCost).Decimal(),
		RoundingRemainder: v.RoundingRemainder,
		StandardCost:      v.StandardCost,
		Halted:            v.Halted,
		HaltReason:        v.HaltReason,
		LastMoveAt:        v.LastMoveAt,
	}
}

// ToLayerResponse converts a domain layer to its read model
func ToLayerResponse(l *valuation.ValuationLayer) LayerResponse {
	return LayerResponse{
		ID:                l.ID,
		ProductID:         l.ProductID,
		SourceMoveID:      l.SourceMoveID,
		OriginalQuantity:  l.OriginalQuantity,
		RemainingQuantity: l.RemainingQuantity,
		UnitCost:          l.UnitCost,
		RemainingValue:    l.RemainingValue(),
		ReceivedAt:        l.ReceivedAt,
	}
}

// ToHistoryResponse converts a domain history record to its read model
func ToHistoryResponse(h *valuation.ValuationHistory) HistoryResponse {
	return HistoryResponse{
		ID:                 h.ID,
		ProductID:          h.ProductID,
		MoveID:             h.MoveID,
		ChangeKind:         h.ChangeKind,
		Method:             h.Method,
		QuantityDelta:      h.QuantityDelta,
		ValueDelta:         h.ValueDelta,
		VarianceValue:      h.VarianceValue,
		TotalQuantityAfter: h.TotalQuantityAfter,
		TotalValueAfter:    h.TotalValueAfter,
		UnitCostAfter:      h.UnitCostAfter,
		OccurredAt:         h.OccurredAt,
	}
}

// ToSettingResponse converts a domain setting to its read model
func ToSettingResponse(s *valuation.CostMethodSetting) SettingResponse {
	return SettingResponse{
		ID:         s.ID,
		Scope:      s.Scope,
		CategoryID: s.CategoryID,
		ProductID:  s.ProductID,
		Method:     s.Method,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}
}
