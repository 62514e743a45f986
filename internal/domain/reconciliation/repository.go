package reconciliation

import (
	"context"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// SessionRepository defines the persistence contract for reconciliation sessions
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	// Update persists the aggregate and its items with an optimistic version
	// check, returning shared.ErrConcurrencyConflict when the stored version
	// moved.
	Update(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*Session, error)
	FindBySessionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*Session, error)
	FindByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Session], error)
	FindByStatus(ctx context.Context, tenantID uuid.UUID, status SessionStatus, filter shared.Filter) (*shared.Paginated[*Session], error)
	FindAll(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*Session], error)
	// HasActiveForWarehouse reports whether a non-terminal session already
	// exists for the warehouse.
	HasActiveForWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID) (bool, error)
}
