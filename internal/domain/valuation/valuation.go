package valuation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ProductValuation is the running valuation state of one product for one
// tenant. All amounts are integer minor currency units; TotalValue is exact
// and RoundingRemainder absorbs the sub-unit drift between TotalValue and
// UnitCost * TotalQuantity so that no value is silently lost.
type ProductValuation struct {
	shared.TenantAggregateRoot
	ProductID         uuid.UUID // Unique per tenant
	Method            Method
	TotalQuantity     int64
	TotalValue        int64 // Minor currency units
	UnitCost          int64 // Minor currency units, rounded half-up
	RoundingRemainder int64
	StandardCost      *int64
	Halted            bool
	HaltReason        string
	LastMoveAt        *time.Time
}

// NewProductValuation creates an empty valuation record for a product
func NewProductValuation(tenantID, productID uuid.UUID, method Method) (*ProductValuation, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_METHOD", "Invalid costing method")
	}
	v := &ProductValuation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		ProductID:           productID,
		Method:              method,
	}
	return v, nil
}

// recomputeUnitCost derives the display unit cost and the remainder from the
// exact total value. Called after inbound movements and revaluations; outbound
// movements keep the unit cost stable and only adjust the remainder.
func (v *ProductValuation) recomputeUnitCost() {
	if v.TotalQuantity <= 0 {
		// Unit cost is preserved at zero quantity so the next outbound in a
		// negative-stock window still has a cost basis.
		v.RoundingRemainder = v.TotalValue - v.UnitCost*v.TotalQuantity
		return
	}
	unit, rem := valueobject.DivideRoundHalfUp(v.TotalValue, v.TotalQuantity)
	v.UnitCost = unit
	v.RoundingRemainder = rem
}

// AddValue applies an exact quantity and value delta. When recompute is true
// the derived unit cost is refreshed from the new totals; otherwise the unit
// cost stays stable and only the remainder is adjusted.
func (v *ProductValuation) AddValue(quantityDelta, valueDelta int64, recompute bool, at time.Time) {
	v.TotalQuantity += quantityDelta
	v.TotalValue += valueDelta
	if recompute {
		v.recomputeUnitCost()
	} else {
		v.RoundingRemainder = v.TotalValue - v.UnitCost*v.TotalQuantity
	}
	v.LastMoveAt = &at
	v.UpdatedAt = time.Now()
}

// Revalue replaces the total value at the current quantity, typically after a
// manual revaluation. The remainder is reset against the new unit cost.
func (v *ProductValuation) Revalue(newTotalValue int64, at time.Time) {
	v.TotalValue = newTotalValue
	if v.TotalQuantity > 0 {
		unit, rem := valueobject.DivideRoundHalfUp(v.TotalValue, v.TotalQuantity)
		v.UnitCost = unit
		v.RoundingRemainder = rem
	} else {
		v.RoundingRemainder = v.TotalValue
	}
	v.Halted = false
	v.HaltReason = ""
	v.LastMoveAt = &at
	v.UpdatedAt = time.Now()
}

// SetStandardCost records the preset cost used by the standard method
func (v *ProductValuation) SetStandardCost(costMinor int64) error {
	if costMinor < 0 {
		return shared.NewValidationError("INVALID_COST", "Standard cost cannot be negative")
	}
	v.StandardCost = &costMinor
	v.UpdatedAt = time.Now()
	return nil
}

// ChangeMethod switches the costing method in effect for this product.
// The accumulated value carries over unchanged.
func (v *ProductValuation) ChangeMethod(method Method) error {
	if !method.IsValid() {
		return shared.NewValidationError("INVALID_METHOD", "Invalid costing method")
	}
	v.Method = method
	v.UpdatedAt = time.Now()
	return nil
}

// Halt fences the product off from further valuation updates after a
// detected inconsistency. Cleared by Revalue.
func (v *ProductValuation) Halt(reason string) {
	v.Halted = true
	v.HaltReason = reason
	v.UpdatedAt = time.Now()
}

// CheckConsistent verifies the internal value invariant and halts the
// product when it no longer holds.
func (v *ProductValuation) CheckConsistent() error {
	if v.TotalValue != v.UnitCost*v.TotalQuantity+v.RoundingRemainder {
		v.Halt("valuation state inconsistent")
		return shared.NewInvariantViolation("VALUATION_CORRUPT", "Valuation state is inconsistent and has been halted")
	}
	return nil
}
