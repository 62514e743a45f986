package valuation

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ValuationLayer is one FIFO cost layer. Inbound movements create layers;
// outbound movements consume them oldest-first until RemainingQuantity is 0.
type ValuationLayer struct {
	shared.BaseEntity
	TenantID          uuid.UUID
	ProductID         uuid.UUID
	SourceMoveID      uuid.UUID
	OriginalQuantity  int64
	RemainingQuantity int64
	UnitCost          int64 // Minor currency units
	ReceivedAt        time.Time
}

// NewValuationLayer creates a layer from an inbound movement
func NewValuationLayer(tenantID, productID, sourceMoveID uuid.UUID, quantity, unitCost int64, receivedAt time.Time) (*ValuationLayer, error) {
	if quantity <= 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Layer quantity must be positive")
	}
	if unitCost < 0 {
		return nil, shared.NewValidationError("INVALID_COST", "Layer unit cost cannot be negative")
	}
	return &ValuationLayer{
		BaseEntity:        shared.NewBaseEntity(),
		TenantID:          tenantID,
		ProductID:         productID,
		SourceMoveID:      sourceMoveID,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		UnitCost:          unitCost,
		ReceivedAt:        receivedAt,
	}, nil
}

// Consume takes up to qty units from the layer and returns the quantity
// actually taken and its cost in minor units.
func (l *ValuationLayer) Consume(qty int64) (taken, cost int64) {
	if qty <= 0 || l.RemainingQuantity <= 0 {
		return 0, 0
	}
	taken = qty
	if taken > l.RemainingQuantity {
		taken = l.RemainingQuantity
	}
	l.RemainingQuantity -= taken
	return taken, taken * l.UnitCost
}

// IsDepleted reports whether the layer has no remaining quantity
func (l *ValuationLayer) IsDepleted() bool {
	return l.RemainingQuantity <= 0
}

// RemainingValue returns the value of the remaining quantity in minor units
func (l *ValuationLayer) RemainingValue() int64 {
	return l.RemainingQuantity * l.UnitCost
}
