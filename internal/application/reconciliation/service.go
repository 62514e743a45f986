package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"sort"

	appledger "github.com/erp/stockledger/internal/application/ledger"
	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MovementPoster posts adjustment movements to the stock ledger. Posting is
// idempotent per key, so completion can be retried after a partial failure
// without double-adjusting.
type MovementPoster interface {
	PostMovement(ctx context.Context, tenantID uuid.UUID, req appledger.PostMovementRequest) (*appledger.StockMoveResponse, error)
}

// SequenceGenerator issues session numbers like REC-2025-001, sequential per
// tenant and prefix.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, prefix string) (string, error)
}

// StockSnapshot exposes the ledger on-hand view used to freeze expected
// quantities when a session's items are generated.
type StockSnapshot interface {
	OnHandByLocation(ctx context.Context, tenantID, locationID uuid.UUID) (map[uuid.UUID]int64, error)
}

// CostLookup exposes the valuation unit cost used to price count variances.
type CostLookup interface {
	FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*valuation.ProductValuation, error)
}

// SessionNumberPrefix is the sequence prefix for reconciliation sessions
const SessionNumberPrefix = "REC"

// ReconciliationService drives the count-and-adjust workflow: open a session,
// snapshot expected quantities, record counts, and finalize by posting
// variance adjustments to the stock ledger.
type ReconciliationService struct {
	sessionRepo reconciliation.SessionRepository
	stock       StockSnapshot
	costs       CostLookup
	poster      MovementPoster
	sequences   SequenceGenerator
	eventBus    shared.EventBus
}

// NewReconciliationService creates a new ReconciliationService
func NewReconciliationService(
	sessionRepo reconciliation.SessionRepository,
	stock StockSnapshot,
	costs CostLookup,
	poster MovementPoster,
	sequences SequenceGenerator,
	eventBus shared.EventBus,
) *ReconciliationService {
	return &ReconciliationService{
		sessionRepo: sessionRepo,
		stock:       stock,
		costs:       costs,
		poster:      poster,
		sequences:   sequences,
		eventBus:    eventBus,
	}
}

// ===================== Session Lifecycle =====================

// CreateSession opens a draft session for a warehouse. Only one non-terminal
// session may exist per warehouse at a time.
func (s *ReconciliationService) CreateSession(ctx context.Context, tenantID uuid.UUID, req CreateSessionRequest) (*SessionResponse, error) {
	active, err := s.sessionRepo.HasActiveForWarehouse(ctx, tenantID, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, shared.NewBusinessRuleError("ACTIVE_SESSION_EXISTS", "Warehouse already has an active reconciliation session")
	}

	number, err := s.sequences.Next(ctx, tenantID, SessionNumberPrefix)
	if err != nil {
		return nil, err
	}

	session, err := reconciliation.NewSession(tenantID, req.WarehouseID, number, req.CreatedByID, req.Notes)
	if err != nil {
		return nil, err
	}
	if len(req.ScopeProductIDs) > 0 {
		if err := session.SetScope(req.ScopeProductIDs); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, session)

	response := ToSessionResponse(session)
	return &response, nil
}

// GenerateItems fills a draft session with one line per in-scope product
// known to the warehouse, freezing the ledger on-hand quantity and the
// current valuation unit cost as the expected snapshot. Products already on
// the session are left untouched.
func (s *ReconciliationService) GenerateItems(ctx context.Context, tenantID, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != reconciliation.SessionStatusDraft {
		return nil, shared.NewBusinessRuleError("INVALID_STATUS", "Can only generate items in draft status")
	}

	onHand, err := s.stock.OnHandByLocation(ctx, tenantID, session.WarehouseID)
	if err != nil {
		return nil, err
	}

	existing := make(map[uuid.UUID]bool, len(session.Items))
	for _, item := range session.Items {
		existing[item.ProductID] = true
	}

	// Stable insertion order keeps item generation deterministic.
	productIDs := make([]uuid.UUID, 0, len(onHand))
	for productID := range onHand {
		if !existing[productID] && session.InScope(productID) {
			productIDs = append(productIDs, productID)
		}
	}
	sort.Slice(productIDs, func(i, j int) bool { return productIDs[i].String() < productIDs[j].String() })

	for _, productID := range productIDs {
		unitCost, err := s.snapshotUnitCost(ctx, tenantID, productID)
		if err != nil {
			return nil, err
		}
		if err := session.AddItem(productID, onHand[productID], unitCost); err != nil {
			return nil, err
		}
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	response := ToSessionResponse(session)
	return &response, nil
}

// AddItem adds a single product line to a draft session, snapshotting its
// expected quantity and unit cost the same way GenerateItems does.
func (s *ReconciliationService) AddItem(ctx context.Context, tenantID, sessionID, productID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	onHand, err := s.stock.OnHandByLocation(ctx, tenantID, session.WarehouseID)
	if err != nil {
		return nil, err
	}
	unitCost, err := s.snapshotUnitCost(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	if err := session.AddItem(productID, onHand[productID], unitCost); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	response := ToSessionResponse(session)
	return &response, nil
}

// RemoveItem removes a product line from a draft session
func (s *ReconciliationService) RemoveItem(ctx context.Context, tenantID, sessionID, productID uuid.UUID) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, func(session *reconciliation.Session) error {
		return session.RemoveItem(productID)
	})
}

// StartSession moves a session to in_progress so counts can be recorded
func (s *ReconciliationService) StartSession(ctx context.Context, tenantID, sessionID uuid.UUID) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, func(session *reconciliation.Session) error {
		return session.Start()
	})
}

// RecordCount records the physical count for one product. Recounting the
// same product replaces the earlier figure.
func (s *ReconciliationService) RecordCount(ctx context.Context, tenantID, sessionID uuid.UUID, req RecordCountRequest) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, func(session *reconciliation.Session) error {
		return session.RecordCount(req.ProductID, req.CountedQuantity, req.Note)
	})
}

// ClearCount resets a recorded count back to uncounted
func (s *ReconciliationService) ClearCount(ctx context.Context, tenantID, sessionID, productID uuid.UUID) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, func(session *reconciliation.Session) error {
		return session.ClearCount(productID)
	})
}

// SkipItem excludes a product from the completeness requirement
func (s *ReconciliationService) SkipItem(ctx context.Context, tenantID, sessionID, productID uuid.UUID, note string) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, func(session *reconciliation.Session) error {
		return session.SkipItem(productID, note)
	})
}

// CompleteSession finalizes a session: every variance item becomes an
// adjustment movement on the stock ledger, then the session transitions to
// completed. Adjustments carry a key derived from the session and item, so a
// retry after a partial failure replays the already posted ones instead of
// double-adjusting.
func (s *ReconciliationService) CompleteSession(ctx context.Context, tenantID, sessionID, completedByID uuid.UUID) (*CompleteSessionResponse, error) {
	ctx, _ = logger.WithTenantID(ctx, logger.FromContext(ctx), tenantID.String())

	session, err := s.sessionRepo.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	// Validates the transition and the completeness requirement before any
	// ledger posting happens. The stored session stays in_progress until the
	// final Update, so a posting failure leaves it retryable.
	if err := session.Complete(completedByID); err != nil {
		return nil, err
	}

	posted := 0
	varianceItems := session.VarianceItemList()
	for i := range varianceItems {
		req, err := s.adjustmentRequest(session, &varianceItems[i], completedByID)
		if err != nil {
			return nil, err
		}
		if _, err := s.poster.PostMovement(ctx, tenantID, req); err != nil {
			return nil, fmt.Errorf("post adjustment for product %s: %w", varianceItems[i].ProductID, err)
		}
		posted++
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("reconciliation session completed",
		zap.String("session_number", session.SessionNumber),
		zap.Int("adjustments_posted", posted),
		zap.Int64("total_variance", session.TotalVariance),
		zap.Int64("total_variance_value", session.TotalVarianceValue),
	)

	s.publishEvents(ctx, session)

	return &CompleteSessionResponse{
		Session:           ToSessionResponse(session),
		AdjustmentsPosted: posted,
	}, nil
}

// adjustmentRequest translates one variance item into a ledger adjustment.
// Surpluses enter at the snapshot unit cost; shortages leave at whatever
// cost the valuation engine realizes.
func (s *ReconciliationService) adjustmentRequest(session *reconciliation.Session, item *reconciliation.SessionItem, completedByID uuid.UUID) (appledger.PostMovementRequest, error) {
	if item.VarianceQuantity == 0 {
		return appledger.PostMovementRequest{}, shared.NewBusinessRuleError("NO_VARIANCE", "Item has no variance to adjust")
	}

	req := appledger.PostMovementRequest{
		ProductID:      item.ProductID,
		MoveKind:       ledger.MoveKindAdjustment,
		Quantity:       item.VarianceQuantity,
		ReferenceKind:  ledger.ReferenceKindReconciliation,
		ReferenceID:    session.ID,
		IdempotencyKey: session.AdjustmentIdempotencyKey(item),
		MoveReason:     fmt.Sprintf("Reconciliation %s count variance", session.SessionNumber),
		CreatedByID:    &completedByID,
	}
	if item.VarianceQuantity > 0 {
		req.DestinationLocationID = &session.WarehouseID
		unitCost := item.UnitCost
		req.UnitCost = &unitCost
	} else {
		req.SourceLocationID = &session.WarehouseID
	}
	return req, nil
}

// CancelSession abandons a session without posting any adjustments
func (s *ReconciliationService) CancelSession(ctx context.Context, tenantID, sessionID uuid.UUID, reason string) (*SessionResponse, error) {
	return s.mutate(ctx, tenantID, sessionID, func(session *reconciliation.Session) error {
		return session.Cancel(reason)
	})
}

// ===================== Query Methods =====================

// GetSession retrieves a session with its items
func (s *ReconciliationService) GetSession(ctx context.Context, tenantID, sessionID uuid.UUID) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	response := ToSessionResponse(session)
	return &response, nil
}

// GetBySessionNumber retrieves a session by its number
func (s *ReconciliationService) GetBySessionNumber(ctx context.Context, tenantID uuid.UUID, number string) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindBySessionNumber(ctx, tenantID, number)
	if err != nil {
		return nil, err
	}
	response := ToSessionResponse(session)
	return &response, nil
}

// ListSessions returns a paginated list of sessions for a tenant
func (s *ReconciliationService) ListSessions(ctx context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[SessionResponse], error) {
	page, err := s.sessionRepo.FindAll(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	return toSessionPage(page), nil
}

// ListByWarehouse returns the sessions for one warehouse
func (s *ReconciliationService) ListByWarehouse(ctx context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[SessionResponse], error) {
	page, err := s.sessionRepo.FindByWarehouse(ctx, tenantID, warehouseID, filter)
	if err != nil {
		return nil, err
	}
	return toSessionPage(page), nil
}

// ListByStatus returns the sessions in a given status
func (s *ReconciliationService) ListByStatus(ctx context.Context, tenantID uuid.UUID, status reconciliation.SessionStatus, filter shared.Filter) (*shared.Paginated[SessionResponse], error) {
	if !status.IsValid() {
		return nil, shared.NewValidationError("INVALID_STATUS", "Invalid session status")
	}
	page, err := s.sessionRepo.FindByStatus(ctx, tenantID, status, filter)
	if err != nil {
		return nil, err
	}
	return toSessionPage(page), nil
}

// VarianceReport returns the variance lines and totals for a session
func (s *ReconciliationService) VarianceReport(ctx context.Context, tenantID, sessionID uuid.UUID) (*VarianceReportResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	response := ToVarianceReportResponse(session)
	return &response, nil
}

// ===================== Helpers =====================

// mutate loads a session, applies fn, and persists the result
func (s *ReconciliationService) mutate(ctx context.Context, tenantID, sessionID uuid.UUID, fn func(*reconciliation.Session) error) (*SessionResponse, error) {
	session, err := s.sessionRepo.FindByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(session); err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	s.publishEvents(ctx, session)

	response := ToSessionResponse(session)
	return &response, nil
}

// snapshotUnitCost returns the current valuation unit cost for a product,
// or zero when the product has never been valued.
func (s *ReconciliationService) snapshotUnitCost(ctx context.Context, tenantID, productID uuid.UUID) (int64, error) {
	v, err := s.costs.FindByProduct(ctx, tenantID, productID)
	if errors.Is(err, shared.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return v.UnitCost, nil
}

// publishEvents publishes domain events from the aggregate
func (s *ReconciliationService) publishEvents(ctx context.Context, session *reconciliation.Session) {
	if s.eventBus == nil {
		return
	}

	for _, event := range session.GetDomainEvents() {
		_ = s.eventBus.Publish(ctx, event)
	}
	session.ClearDomainEvents()
}

func toSessionPage(page *shared.Paginated[*reconciliation.Session]) *shared.Paginated[SessionResponse] {
	items := make([]SessionResponse, len(page.Items))
	for i, session := range page.Items {
		items[i] = ToSessionResponse(session)
	}
	result := shared.NewPaginated(items, page.Total, page.Page, page.PageSize)
	return &result
}
