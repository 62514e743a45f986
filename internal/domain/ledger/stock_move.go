package ledger

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// MoveKind represents the kind of stock movement
type MoveKind string

const (
	// MoveKindReceipt represents stock entering from outside (purchase receipt, return in)
	MoveKindReceipt MoveKind = "receipt"
	// MoveKindDelivery represents stock leaving to outside (sales delivery, return out)
	MoveKindDelivery MoveKind = "delivery"
	// MoveKindTransfer represents stock moving between internal locations
	MoveKindTransfer MoveKind = "transfer"
	// MoveKindAdjustment represents a correction (reconciliation variance, manual fix)
	MoveKindAdjustment MoveKind = "adjustment"
)

// String returns the string representation of MoveKind
func (k MoveKind) String() string {
	return string(k)
}

// IsValid returns true if the move kind is valid
func (k MoveKind) IsValid() bool {
	switch k {
	case MoveKindReceipt, MoveKindDelivery, MoveKindTransfer, MoveKindAdjustment:
		return true
	}
	return false
}

// ReferenceKind represents the source document type for a movement
type ReferenceKind string

const (
	ReferenceKindPurchaseOrder  ReferenceKind = "purchase_order"
	ReferenceKindSalesOrder     ReferenceKind = "sales_order"
	ReferenceKindTransferOrder  ReferenceKind = "transfer_order"
	ReferenceKindReconciliation ReferenceKind = "reconciliation"
	ReferenceKindManual         ReferenceKind = "manual"
)

// String returns the string representation of ReferenceKind
func (r ReferenceKind) String() string {
	return string(r)
}

// IsValid returns true if the reference kind is valid
func (r ReferenceKind) IsValid() bool {
	switch r {
	case ReferenceKindPurchaseOrder, ReferenceKindSalesOrder, ReferenceKindTransferOrder,
		ReferenceKindReconciliation, ReferenceKindManual:
		return true
	}
	return false
}

// StockMoveEntry is one immutable fact in the stock ledger. Core fields never
// change after creation; corrections are made with new adjustment entries.
// MoveReason is the only mutable field (non-semantic annotation).
type StockMoveEntry struct {
	shared.BaseEntity
	TenantID              uuid.UUID
	ProductID             uuid.UUID
	SourceLocationID      *uuid.UUID
	DestinationLocationID *uuid.UUID
	MoveKind              MoveKind
	Quantity              int64  // Signed, nonzero, base units
	UnitCost              *int64 // Minor currency units, nil when unknown at append time
	TotalCost             *int64 // Realized cost in minor units
	ReferenceKind         ReferenceKind
	ReferenceID           uuid.UUID
	IdempotencyKey        string // Unique per tenant
	MoveReason            string // Free-text annotation; the only mutable field
	Metadata              map[string]string
	OccurredAt            time.Time
	CreatedByID           *uuid.UUID
}

// EntryDraft carries the caller-supplied fields of a movement before validation.
type EntryDraft struct {
	TenantID              uuid.UUID
	ProductID             uuid.UUID
	SourceLocationID      *uuid.UUID
	DestinationLocationID *uuid.UUID
	MoveKind              MoveKind
	Quantity              int64
	UnitCost              *int64
	ReferenceKind         ReferenceKind
	ReferenceID           uuid.UUID
	IdempotencyKey        string
	MoveReason            string
	Metadata              map[string]string
	OccurredAt            time.Time
	CreatedByID           *uuid.UUID
}

// NewStockMoveEntry validates a draft and returns an immutable ledger entry.
// TotalCost is derived from quantity and unit cost when the cost is known;
// for FIFO outbound movements the valuation engine sets the realized cost
// before the entry is persisted.
func NewStockMoveEntry(draft EntryDraft) (*StockMoveEntry, error) {
	if draft.TenantID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if draft.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if !draft.MoveKind.IsValid() {
		return nil, shared.NewValidationError("INVALID_MOVE_KIND", "Invalid move kind")
	}
	if draft.Quantity == 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be nonzero")
	}
	if draft.UnitCost != nil && *draft.UnitCost < 0 {
		return nil, shared.NewValidationError("INVALID_COST", "Unit cost cannot be negative")
	}
	if !draft.ReferenceKind.IsValid() {
		return nil, shared.NewValidationError("INVALID_REFERENCE_KIND", "Invalid reference kind")
	}
	if draft.ReferenceID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_REFERENCE", "Reference ID cannot be empty")
	}
	if draft.IdempotencyKey == "" {
		return nil, shared.NewValidationError("INVALID_IDEMPOTENCY_KEY", "Idempotency key cannot be empty")
	}
	if err := validateLocations(draft); err != nil {
		return nil, err
	}

	occurredAt := draft.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	entry := &StockMoveEntry{
		BaseEntity:            shared.NewBaseEntity(),
		TenantID:              draft.TenantID,
		ProductID:             draft.ProductID,
		SourceLocationID:      draft.SourceLocationID,
		DestinationLocationID: draft.DestinationLocationID,
		MoveKind:              draft.MoveKind,
		Quantity:              draft.Quantity,
		UnitCost:              draft.UnitCost,
		ReferenceKind:         draft.ReferenceKind,
		ReferenceID:           draft.ReferenceID,
		IdempotencyKey:        draft.IdempotencyKey,
		MoveReason:            draft.MoveReason,
		Metadata:              draft.Metadata,
		OccurredAt:            occurredAt,
		CreatedByID:           draft.CreatedByID,
	}

	if draft.UnitCost != nil {
		total := draft.Quantity * *draft.UnitCost
		entry.TotalCost = &total
	}

	return entry, nil
}

// validateLocations enforces the location-presence rules per move kind.
func validateLocations(draft EntryDraft) error {
	hasSource := draft.SourceLocationID != nil && *draft.SourceLocationID != uuid.Nil
	hasDestination := draft.DestinationLocationID != nil && *draft.DestinationLocationID != uuid.Nil

	switch draft.MoveKind {
	case MoveKindReceipt:
		if draft.Quantity < 0 {
			return shared.NewValidationError("INVALID_QUANTITY", "Receipt quantity must be positive")
		}
		if !hasDestination {
			return shared.NewValidationError("MISSING_DESTINATION", "Receipt requires a destination location")
		}
		if hasSource {
			return shared.NewValidationError("UNEXPECTED_SOURCE", "Receipt cannot have a source location")
		}
	case MoveKindDelivery:
		if draft.Quantity > 0 {
			return shared.NewValidationError("INVALID_QUANTITY", "Delivery quantity must be negative")
		}
		if !hasSource {
			return shared.NewValidationError("MISSING_SOURCE", "Delivery requires a source location")
		}
		if hasDestination {
			return shared.NewValidationError("UNEXPECTED_DESTINATION", "Delivery cannot have a destination location")
		}
	case MoveKindTransfer:
		if draft.Quantity < 0 {
			return shared.NewValidationError("INVALID_QUANTITY", "Transfer quantity must be positive")
		}
		if !hasSource || !hasDestination {
			return shared.NewValidationError("MISSING_LOCATION", "Transfer requires both source and destination locations")
		}
		if *draft.SourceLocationID == *draft.DestinationLocationID {
			return shared.NewValidationError("SAME_LOCATION", "Transfer source and destination must differ")
		}
	case MoveKindAdjustment:
		if draft.Quantity > 0 && !hasDestination {
			return shared.NewValidationError("MISSING_DESTINATION", "Positive adjustment requires a destination location")
		}
		if draft.Quantity < 0 && !hasSource {
			return shared.NewValidationError("MISSING_SOURCE", "Negative adjustment requires a source location")
		}
	}
	return nil
}

// SetRealizedCost records the cost consumed from valuation layers for an
// outbound entry. Only valid before the entry is persisted; the valuation
// engine calls this inside the append unit of work.
func (e *StockMoveEntry) SetRealizedCost(totalCostMinor int64) {
	e.TotalCost = &totalCostMinor
}

// Annotate updates the free-text annotation. This is the only permitted
// mutation of a committed entry.
func (e *StockMoveEntry) Annotate(reason string) {
	e.MoveReason = reason
	e.UpdatedAt = time.Now()
}

// IsInbound reports whether the entry increases the tenant's on-hand quantity.
func (e *StockMoveEntry) IsInbound() bool {
	switch e.MoveKind {
	case MoveKindReceipt:
		return true
	case MoveKindAdjustment:
		return e.Quantity > 0
	}
	return false
}

// IsOutbound reports whether the entry decreases the tenant's on-hand quantity.
func (e *StockMoveEntry) IsOutbound() bool {
	switch e.MoveKind {
	case MoveKindDelivery:
		return true
	case MoveKindAdjustment:
		return e.Quantity < 0
	}
	return false
}

// AffectsValuation reports whether the entry changes the product's cost basis.
// Transfers move stock between internal locations without changing the
// tenant-level quantity or value.
func (e *StockMoveEntry) AffectsValuation() bool {
	return e.MoveKind != MoveKindTransfer
}

// AbsQuantity returns the magnitude of the movement
func (e *StockMoveEntry) AbsQuantity() int64 {
	if e.Quantity < 0 {
		return -e.Quantity
	}
	return e.Quantity
}
