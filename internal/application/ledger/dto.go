package ledger

import (
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PostMovementRequest carries the fields for appending one ledger entry
type PostMovementRequest struct {
	ProductID             uuid.UUID            `json:"product_id"`
	SourceLocationID      *uuid.UUID           `json:"source_location_id,omitempty"`
	DestinationLocationID *uuid.UUID           `json:"destination_location_id,omitempty"`
	MoveKind              ledger.MoveKind      `json:"move_kind"`
	Quantity              int64                `json:"quantity"`
	UnitCost              *int64               `json:"unit_cost,omitempty"` // Minor currency units
	ReferenceKind         ledger.ReferenceKind `json:"reference_kind"`
	ReferenceID           uuid.UUID            `json:"reference_id"`
	IdempotencyKey        string               `json:"idempotency_key"`
	MoveReason            string               `json:"move_reason,omitempty"`
	Metadata              map[string]string    `json:"metadata,omitempty"`
	OccurredAt            *time.Time           `json:"occurred_at,omitempty"`
	CategoryID            *uuid.UUID           `json:"category_id,omitempty"` // For cost method resolution
	CreatedByID           *uuid.UUID           `json:"created_by_id,omitempty"`
}

// StockMoveResponse is the read model for one ledger entry
type StockMoveResponse struct {
	ID                    uuid.UUID            `json:"id"`
	TenantID              uuid.UUID            `json:"tenant_id"`
	ProductID             uuid.UUID            `json:"product_id"`
	SourceLocationID      *uuid.UUID           `json:"source_location_id,omitempty"`
	DestinationLocationID *uuid.UUID           `json:"destination_location_id,omitempty"`
	MoveKind              ledger.MoveKind      `json:"move_kind"`
	Quantity              int64                `json:"quantity"`
	UnitCost              *int64               `json:"unit_cost,omitempty"`
	TotalCost             *int64               `json:"total_cost,omitempty"`
	TotalCostDisplay      *decimal.Decimal     `json:"total_cost_display,omitempty"`
	ReferenceKind         ledger.ReferenceKind `json:"reference_kind"`
	ReferenceID           uuid.UUID            `json:"reference_id"`
	IdempotencyKey        string               `json:"idempotency_key"`
	MoveReason            string               `json:"move_reason,omitempty"`
	Metadata              map[string]string    `json:"metadata,omitempty"`
	OccurredAt            time.Time            `json:"occurred_at"`
	CreatedAt             time.Time            `json:"created_at"`
	Replayed              bool                 `json:"replayed,omitempty"` // True when returned from an idempotency replay
}

// MovementHistoryRequest selects a slice of a product's history
type MovementHistoryRequest struct {
	ProductID  uuid.UUID            `json:"product_id"`
	From       *time.Time           `json:"from,omitempty"`
	To         *time.Time           `json:"to,omitempty"`
	Cursor     string               `json:"cursor,omitempty"`
	Limit      int                  `json:"limit,omitempty"`
	MoveKind   *ledger.MoveKind     `json:"move_kind,omitempty"`
	LocationID *uuid.UUID           `json:"location_id,omitempty"`
}

// MovementHistoryResponse is one ascending page of a product's history.
// NextCursor is empty when the page reached the end of the range.
type MovementHistoryResponse struct {
	Entries    []StockMoveResponse `json:"entries"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

// ToStockMoveResponse converts a domain entry to its read model
func ToStockMoveResponse(e *ledger.StockMoveEntry) StockMoveResponse {
	resp := StockMoveResponse{
		ID:                    e.ID,
		TenantID:              e.TenantID,
		ProductID:             e.ProductID,
		SourceLocationID:      e.SourceLocationID,
		DestinationLocationID: e.DestinationLocationID,
		MoveKind:              e.MoveKind,
		Quantity:              e.Quantity,
		UnitCost:              e.UnitCost,
		TotalCost:             e.TotalCost,
		ReferenceKind:         e.ReferenceKind,
		ReferenceID:           e.ReferenceID,
		IdempotencyKey:        e.IdempotencyKey,
		MoveReason:            e.MoveReason,
		Metadata:              e.Metadata,
		OccurredAt:            e.OccurredAt,
		CreatedAt:             e.CreatedAt,
	}
	if e.TotalCost != nil {
		d := decimal.New(*e.TotalCost, -2)
		resp.TotalCostDisplay = &d
	}
	return resp
}

// ToStockMoveResponses converts a slice of domain entries
func ToStockMoveResponses(entries []*ledger.StockMoveEntry) []StockMoveResponse {
	result := make([]StockMoveResponse, len(entries))
	for i, e := range entries {
		result[i] = ToStockMoveResponse(e)
	}
	return result
}
