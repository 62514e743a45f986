package valuation

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Movement is the valuation-relevant view of a ledger entry. Quantity is
// signed: positive for inbound, negative for outbound. UnitCost may be nil
// when the caller does not know the cost (the engine derives it).
type Movement struct {
	MoveID     uuid.UUID
	Quantity   int64
	UnitCost   *int64
	OccurredAt time.Time
}

// ApplyResult describes the state changes one movement produced. The caller
// persists everything in the same transaction as the ledger entry.
type ApplyResult struct {
	// RealizedTotalCost is the signed value delta in minor units. For
	// outbound movements this is the negated cost of goods consumed.
	RealizedTotalCost int64
	// NewLayer is the FIFO layer created by an inbound movement, if any.
	NewLayer *ValuationLayer
	// ConsumedLayers are existing layers whose remaining quantity changed.
	ConsumedLayers []*ValuationLayer
	// History is the audit record for this change.
	History *ValuationHistory
}

// Engine applies movements to a product valuation under its costing method.
// It is a pure domain service: it mutates the passed-in aggregates and
// reports what changed, but performs no I/O.
type Engine struct {
	AllowNegativeStock bool
}

// NewEngine creates a valuation engine
func NewEngine(allowNegativeStock bool) *Engine {
	return &Engine{AllowNegativeStock: allowNegativeStock}
}

// Apply runs one movement through the valuation. Layers must be the open
// FIFO layers for the product ordered oldest-first; they are ignored for
// AVCO and standard costing.
func (e *Engine) Apply(v *ProductValuation, layers []*ValuationLayer, mv Movement) (*ApplyResult, error) {
	if v.Halted {
		return nil, shared.NewInvariantViolation("VALUATION_HALTED",
			fmt.Sprintf("Valuation for product %s is halted: %s", v.ProductID, v.HaltReason))
	}
	if mv.Quantity == 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be nonzero")
	}

	var (
		result *ApplyResult
		err    error
	)
	if mv.Quantity > 0 {
		result, err = e.applyInbound(v, mv)
	} else {
		result, err = e.applyOutbound(v, layers, mv)
	}
	if err != nil {
		return nil, err
	}

	if err := v.CheckConsistent(); err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) applyInbound(v *ProductValuation, mv Movement) (*ApplyResult, error) {
	var unitCost, variance int64

	switch v.Method {
	case MethodStandard:
		if v.StandardCost == nil {
			return nil, shared.NewBusinessRuleError("STANDARD_COST_NOT_SET", "Standard cost is not set for this product")
		}
		unitCost = *v.StandardCost
		if mv.UnitCost != nil {
			// Purchase price variance: actual receipt cost vs standard.
			variance = mv.Quantity * (*mv.UnitCost - *v.StandardCost)
		}
	default:
		if mv.UnitCost != nil {
			unitCost = *mv.UnitCost
		} else {
			// Costless inbound (e.g. reconciliation surplus) enters at the
			// current unit cost.
			unitCost = v.UnitCost
		}
	}
	if unitCost < 0 {
		return nil, shared.NewValidationError("INVALID_COST", "Unit cost cannot be negative")
	}

	valueDelta := mv.Quantity * unitCost
	result := &ApplyResult{RealizedTotalCost: valueDelta}

	if v.Method == MethodFIFO {
		layer, err := NewValuationLayer(v.TenantID, v.ProductID, mv.MoveID, mv.Quantity, unitCost, mv.OccurredAt)
		if err != nil {
			return nil, err
		}
		result.NewLayer = layer
	}

	v.AddValue(mv.Quantity, valueDelta, true, mv.OccurredAt)
	result.History = NewHistoryRecord(v, ChangeKindMovement, &mv.MoveID, mv.Quantity, valueDelta, variance, mv.OccurredAt)
	return result, nil
}

func (e *Engine) applyOutbound(v *ProductValuation, layers []*ValuationLayer, mv Movement) (*ApplyResult, error) {
	need := -mv.Quantity

	var cost int64
	result := &ApplyResult{}

	switch v.Method {
	case MethodFIFO:
		consumed, err := e.consumeLayers(v, layers, need, result)
		if err != nil {
			return nil, err
		}
		cost = consumed
	case MethodStandard:
		if v.StandardCost == nil {
			return nil, shared.NewBusinessRuleError("STANDARD_COST_NOT_SET", "Standard cost is not set for this product")
		}
		if need > v.TotalQuantity && !e.AllowNegativeStock {
			return nil, insufficientStock(v, need)
		}
		cost = need * *v.StandardCost
	default: // AVCO
		if need > v.TotalQuantity && !e.AllowNegativeStock {
			return nil, insufficientStock(v, need)
		}
		cost = need * v.UnitCost
	}

	valueDelta := -cost
	result.RealizedTotalCost = valueDelta

	// FIFO recomputes the derived unit cost from the surviving layers' value;
	// AVCO and standard keep the unit cost stable across issues.
	v.AddValue(mv.Quantity, valueDelta, v.Method == MethodFIFO, mv.OccurredAt)
	result.History = NewHistoryRecord(v, ChangeKindMovement, &mv.MoveID, mv.Quantity, valueDelta, 0, mv.OccurredAt)
	return result, nil
}

// consumeLayers drains the open layers oldest-first and returns the total
// cost of goods issued. A shortfall is either rejected or, when negative
// stock is allowed, valued at the current unit cost.
func (e *Engine) consumeLayers(v *ProductValuation, layers []*ValuationLayer, need int64, result *ApplyResult) (int64, error) {
	available := int64(0)
	for _, l := range layers {
		available += l.RemainingQuantity
	}
	if need > available && !e.AllowNegativeStock {
		return 0, shared.ErrInsufficientLayers.WithMessage(
			fmt.Sprintf("Insufficient valuation layers for product %s: need %d, available %d", v.ProductID, need, available))
	}

	remaining := need
	var cost int64
	for _, l := range layers {
		if remaining == 0 {
			break
		}
		taken, layerCost := l.Consume(remaining)
		if taken == 0 {
			continue
		}
		remaining -= taken
		cost += layerCost
		result.ConsumedLayers = append(result.ConsumedLayers, l)
	}
	if remaining > 0 {
		cost += remaining * v.UnitCost
	}
	return cost, nil
}

func insufficientStock(v *ProductValuation, need int64) error {
	return shared.NewBusinessRuleError("INSUFFICIENT_STOCK",
		fmt.Sprintf("Insufficient stock for product %s: need %d, on hand %d", v.ProductID, need, v.TotalQuantity))
}
