package ledger

import (
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for StockMoveEntry
const AggregateTypeStockMoveEntry = "StockMoveEntry"

// StockMoveEntry event type constants
const (
	EventTypeStockMovePosted    = "StockMovePosted"
	EventTypeStockMoveAnnotated = "StockMoveAnnotated"
)

// StockMovePostedEvent is raised when a new entry is committed to the ledger
type StockMovePostedEvent struct {
	shared.BaseDomainEvent
	MoveID        uuid.UUID     `json:"move_id"`
	ProductID     uuid.UUID     `json:"product_id"`
	MoveKind      MoveKind      `json:"move_kind"`
	Quantity      int64         `json:"quantity"`
	TotalCost     *int64        `json:"total_cost,omitempty"`
	ReferenceKind ReferenceKind `json:"reference_kind"`
	ReferenceID   uuid.UUID     `json:"reference_id"`
	MovedAt       time.Time     `json:"moved_at"`
}

// NewStockMovePostedEvent creates a new StockMovePostedEvent
func NewStockMovePostedEvent(entry *StockMoveEntry) *StockMovePostedEvent {
	return &StockMovePostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMovePosted, AggregateTypeStockMoveEntry, entry.ID, entry.TenantID),
		MoveID:          entry.ID,
		ProductID:       entry.ProductID,
		MoveKind:        entry.MoveKind,
		Quantity:        entry.Quantity,
		TotalCost:       entry.TotalCost,
		ReferenceKind:   entry.ReferenceKind,
		ReferenceID:     entry.ReferenceID,
		MovedAt:         entry.OccurredAt,
	}
}

// EventType returns the event type name
func (e *StockMovePostedEvent) EventType() string {
	return EventTypeStockMovePosted
}

// StockMoveAnnotatedEvent is raised when an entry's annotation changes
type StockMoveAnnotatedEvent struct {
	shared.BaseDomainEvent
	MoveID     uuid.UUID `json:"move_id"`
	MoveReason string    `json:"move_reason"`
}

// NewStockMoveAnnotatedEvent creates a new StockMoveAnnotatedEvent
func NewStockMoveAnnotatedEvent(entry *StockMoveEntry) *StockMoveAnnotatedEvent {
	return &StockMoveAnnotatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMoveAnnotated, AggregateTypeStockMoveEntry, entry.ID, entry.TenantID),
		MoveID:          entry.ID,
		MoveReason:      entry.MoveReason,
	}
}

// EventType returns the event type name
func (e *StockMoveAnnotatedEvent) EventType() string {
	return EventTypeStockMoveAnnotated
}
