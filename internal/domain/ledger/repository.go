package ledger

import (
	"context"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// HistoryQuery selects a slice of a product's movement history. Results are
// always ordered ascending by occurred_at (ties broken by entry ID) so a
// reader can resume from a cursor without missing or repeating entries.
type HistoryQuery struct {
	ProductID  uuid.UUID
	From       *time.Time
	To         *time.Time
	AfterTime  *time.Time // Keyset cursor: occurred_at of the last entry seen
	AfterID    *uuid.UUID // Keyset cursor: ID of the last entry seen
	Limit      int
	MoveKind   *MoveKind
	LocationID *uuid.UUID
}

// StockMoveRepository defines the persistence contract for the stock ledger.
// The ledger is append-only: there is no Update or Delete, only Create,
// annotation patching, and reads.
type StockMoveRepository interface {
	Create(ctx context.Context, entry *StockMoveEntry) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*StockMoveEntry, error)
	FindByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*StockMoveEntry, error)
	FindByProduct(ctx context.Context, tenantID uuid.UUID, query HistoryQuery) ([]*StockMoveEntry, error)
	FindByReference(ctx context.Context, tenantID uuid.UUID, kind ReferenceKind, referenceID uuid.UUID) ([]*StockMoveEntry, error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*StockMoveEntry], error)
	// UpdateAnnotation patches move_reason only; all other columns stay frozen.
	UpdateAnnotation(ctx context.Context, tenantID, id uuid.UUID, reason string) error
	SumQuantityByProduct(ctx context.Context, tenantID, productID uuid.UUID) (int64, error)
	SumQuantityByProductAndLocation(ctx context.Context, tenantID, productID, locationID uuid.UUID) (int64, error)
	// OnHandByLocation returns the net on-hand quantity per product at a
	// location, derived from all entries touching that location.
	OnHandByLocation(ctx context.Context, tenantID, locationID uuid.UUID) (map[uuid.UUID]int64, error)
}
