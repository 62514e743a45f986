package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultHistoryPageSize bounds one history page when the caller does not ask for a size
	DefaultHistoryPageSize = 100
	// MaxHistoryPageSize is the hard cap for one history page
	MaxHistoryPageSize = 1000
)

// LedgerService handles stock movement posting and ledger queries. Posting a
// movement appends the entry and applies its valuation side effects in one
// transaction, guarded by a per-(tenant, product) lock so concurrent posts
// for the same product serialize.
type LedgerService struct {
	scope          TransactionScope
	moveRepo       ledger.StockMoveRepository
	valuationRepo  valuation.ProductValuationRepository
	methodResolver *valuation.MethodResolver
	engine         *valuation.Engine
	locker         shared.Locker
	eventBus       shared.EventBus
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	scope TransactionScope,
	moveRepo ledger.StockMoveRepository,
	valuationRepo valuation.ProductValuationRepository,
	methodResolver *valuation.MethodResolver,
	engine *valuation.Engine,
	locker shared.Locker,
) *LedgerService {
	return &LedgerService{
		scope:          scope,
		moveRepo:       moveRepo,
		valuationRepo:  valuationRepo,
		methodResolver: methodResolver,
		engine:         engine,
		locker:         locker,
	}
}

// SetEventBus sets the event bus for publishing domain events
func (s *LedgerService) SetEventBus(bus shared.EventBus) {
	s.eventBus = bus
}

// movementLockKey serializes posts per tenant and product
func movementLockKey(tenantID, productID uuid.UUID) string {
	return fmt.Sprintf("ledger:move:%s:%s", tenantID, productID)
}

// PostMovement validates and appends one movement to the ledger. A replayed
// idempotency key returns the previously committed entry unchanged. The
// append and all valuation side effects commit atomically.
func (s *LedgerService) PostMovement(ctx context.Context, tenantID uuid.UUID, req PostMovementRequest) (*StockMoveResponse, error) {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID.String())

	entry, err := ledger.NewStockMoveEntry(ledger.EntryDraft{
		TenantID:              tenantID,
		ProductID:             req.ProductID,
		SourceLocationID:      req.SourceLocationID,
		DestinationLocationID: req.DestinationLocationID,
		MoveKind:              req.MoveKind,
		Quantity:              req.Quantity,
		UnitCost:              req.UnitCost,
		ReferenceKind:         req.ReferenceKind,
		ReferenceID:           req.ReferenceID,
		IdempotencyKey:        req.IdempotencyKey,
		MoveReason:            req.MoveReason,
		Metadata:              req.Metadata,
		OccurredAt:            timeOrZero(req.OccurredAt),
		CreatedByID:           req.CreatedByID,
	})
	if err != nil {
		return nil, err
	}

	// Cheap replay check before taking the lock.
	if existing, err := s.moveRepo.FindByIdempotencyKey(ctx, tenantID, req.IdempotencyKey); err == nil {
		logger.L(ctx).Debug("idempotency replay",
			zap.String("idempotency_key", req.IdempotencyKey),
			zap.String("entry_id", existing.ID.String()),
		)
		resp := ToStockMoveResponse(existing)
		resp.Replayed = true
		return &resp, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	var result *StockMoveResponse
	lockErr := s.locker.WithLock(ctx, movementLockKey(tenantID, req.ProductID), func(ctx context.Context) error {
		var replayed *ledger.StockMoveEntry
		err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			// Re-check inside the lock: a concurrent post may have won the race.
			if existing, err := repos.MoveRepo().FindByIdempotencyKey(ctx, tenantID, req.IdempotencyKey); err == nil {
				replayed = existing
				return nil
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			return s.appendWithValuation(ctx, repos, entry, req.CategoryID)
		})
		if err != nil {
			return err
		}
		if replayed != nil {
			resp := ToStockMoveResponse(replayed)
			resp.Replayed = true
			result = &resp
			return nil
		}
		resp := ToStockMoveResponse(entry)
		result = &resp
		return nil
	})
	if lockErr != nil {
		return nil, lockErr
	}

	if !result.Replayed {
		logger.L(ctx).Info("stock move posted",
			zap.String("entry_id", entry.ID.String()),
			zap.String("product_id", entry.ProductID.String()),
			zap.String("move_kind", entry.MoveKind.String()),
			zap.Int64("quantity", entry.Quantity),
		)
		s.publishEvent(ctx, ledger.NewStockMovePostedEvent(entry))
	}
	return result, nil
}

// appendWithValuation runs the valuation engine for the entry and persists
// the entry plus every state change the engine reported.
func (s *LedgerService) appendWithValuation(ctx context.Context, repos TransactionalRepositories, entry *ledger.StockMoveEntry, categoryID *uuid.UUID) error {
	if !entry.AffectsValuation() {
		return repos.MoveRepo().Create(ctx, entry)
	}

	v, err := repos.ValuationRepo().FindByProduct(ctx, entry.TenantID, entry.ProductID)
	if errors.Is(err, shared.ErrNotFound) {
		method, rerr := s.methodResolver.Resolve(ctx, entry.TenantID, entry.ProductID, categoryID)
		if rerr != nil {
			return rerr
		}
		v, err = valuation.NewProductValuation(entry.TenantID, entry.ProductID, method)
		if err != nil {
			return err
		}
		if err := repos.ValuationRepo().Create(ctx, v); err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	var layers []*valuation.ValuationLayer
	if v.Method == valuation.MethodFIFO && entry.IsOutbound() {
		layers, err = repos.LayerRepo().FindOpenByProduct(ctx, entry.TenantID, entry.ProductID)
		if err != nil {
			return err
		}
	}

	applied, err := s.engine.Apply(v, layers, valuation.Movement{
		MoveID:     entry.ID,
		Quantity:   entry.Quantity,
		UnitCost:   entry.UnitCost,
		OccurredAt: entry.OccurredAt,
	})
	if err != nil {
		// A halt must survive the rollback of the failed append.
		if shared.IsInvariantViolation(err) && v.Halted {
			_ = s.valuationRepo.Update(ctx, v)
		}
		return err
	}

	entry.SetRealizedCost(applied.RealizedTotalCost)

	if err := repos.MoveRepo().Create(ctx, entry); err != nil {
		return err
	}
	if applied.NewLayer != nil {
		if err := repos.LayerRepo().Create(ctx, applied.NewLayer); err != nil {
			return err
		}
	}
	for _, layer := range applied.ConsumedLayers {
		if err := repos.LayerRepo().Update(ctx, layer); err != nil {
			return err
		}
	}
	if err := repos.ValuationRepo().Update(ctx, v); err != nil {
		return err
	}
	return repos.HistoryRepo().Create(ctx, applied.History)
}

// GetByID retrieves one ledger entry
func (s *LedgerService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*StockMoveResponse, error) {
	entry, err := s.moveRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	resp := ToStockMoveResponse(entry)
	return &resp, nil
}

// GetByIdempotencyKey retrieves the entry committed under an idempotency key
func (s *LedgerService) GetByIdempotencyKey(ctx context.Context, tenantID uuid.UUID, key string) (*StockMoveResponse, error) {
	entry, err := s.moveRepo.FindByIdempotencyKey(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	resp := ToStockMoveResponse(entry)
	return &resp, nil
}

// MovementHistory returns one ascending page of a product's movement history.
// The returned cursor resumes the walk exactly after the last entry of the
// page; pages never skip or repeat entries even while new movements arrive.
func (s *LedgerService) MovementHistory(ctx context.Context, tenantID uuid.UUID, req MovementHistoryRequest) (*MovementHistoryResponse, error) {
	if req.ProductID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultHistoryPageSize
	}
	if limit > MaxHistoryPageSize {
		limit = MaxHistoryPageSize
	}

	query := ledger.HistoryQuery{
		ProductID:  req.ProductID,
		From:       req.From,
		To:         req.To,
		Limit:      limit,
		MoveKind:   req.MoveKind,
		LocationID: req.LocationID,
	}
	if req.Cursor != "" {
		afterTime, afterID, err := decodeCursor(req.Cursor)
		if err != nil {
			return nil, err
		}
		query.AfterTime = &afterTime
		query.AfterID = &afterID
	}

	entries, err := s.moveRepo.FindByProduct(ctx, tenantID, query)
	if err != nil {
		return nil, err
	}

	resp := &MovementHistoryResponse{Entries: ToStockMoveResponses(entries)}
	if len(entries) == limit {
		last := entries[len(entries)-1]
		resp.NextCursor = encodeCursor(last.OccurredAt, last.ID)
	}
	return resp, nil
}

// FindByReference returns all entries posted under a source document
func (s *LedgerService) FindByReference(ctx context.Context, tenantID uuid.UUID, kind ledger.ReferenceKind, referenceID uuid.UUID) ([]StockMoveResponse, error) {
	if !kind.IsValid() {
		return nil, shared.NewValidationError("INVALID_REFERENCE_KIND", "Invalid reference kind")
	}
	entries, err := s.moveRepo.FindByReference(ctx, tenantID, kind, referenceID)
	if err != nil {
		return nil, err
	}
	return ToStockMoveResponses(entries), nil
}

// List returns a paginated view across the tenant's ledger
func (s *LedgerService) List(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[StockMoveResponse], error) {
	page, err := s.moveRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	result := shared.NewPaginated(ToStockMoveResponses(page.Items), page.Total, page.Page, page.PageSize)
	return &result, nil
}

// Annotate updates the free-text reason on a committed entry. All other
// fields of a committed entry are frozen; corrections go through new
// adjustment movements.
func (s *LedgerService) Annotate(ctx context.Context, tenantID, id uuid.UUID, reason string) (*StockMoveResponse, error) {
	entry, err := s.moveRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	entry.Annotate(reason)
	if err := s.moveRepo.UpdateAnnotation(ctx, tenantID, id, reason); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, ledger.NewStockMoveAnnotatedEvent(entry))

	resp := ToStockMoveResponse(entry)
	return &resp, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, event shared.DomainEvent) {
	if s.eventBus == nil {
		return
	}
	_ = s.eventBus.Publish(ctx, event)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// encodeCursor packs a keyset position into an opaque string
func encodeCursor(at time.Time, id uuid.UUID) string {
	return at.UTC().Format(time.RFC3339Nano) + "|" + id.String()
}

// decodeCursor unpacks a cursor produced by encodeCursor
func decodeCursor(cursor string) (time.Time, uuid.UUID, error) {
	parts := strings.SplitN(cursor, "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, shared.NewValidationError("INVALID_CURSOR", "Malformed history cursor")
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, shared.NewValidationError("INVALID_CURSOR", "Malformed history cursor")
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, shared.NewValidationError("INVALID_CURSOR", "Malformed history cursor")
	}
	return at, id, nil
}
