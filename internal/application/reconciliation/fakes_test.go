package reconciliation

import (
	"context"
	"fmt"
	"sync"

	appledger "github.com/erp/stockledger/internal/application/ledger"
	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/google/uuid"
)

// memSessionRepo is an in-memory SessionRepository with optimistic version
// checks matching the persistence contract.
type memSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*reconciliation.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: make(map[uuid.UUID]*reconciliation.Session)}
}

func cloneSession(s *reconciliation.Session) *reconciliation.Session {
	clone := *s
	clone.Items = make([]reconciliation.SessionItem, len(s.Items))
	copy(clone.Items, s.Items)
	return &clone
}

func (r *memSessionRepo) Create(_ context.Context, session *reconciliation.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return shared.ErrAlreadyExists
	}
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memSessionRepo) Update(_ context.Context, session *reconciliation.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if session.Version <= stored.Version {
		return shared.ErrConcurrencyConflict
	}
	r.sessions[session.ID] = cloneSession(session)
	return nil
}

func (r *memSessionRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*reconciliation.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok && s.TenantID == tenantID {
		return cloneSession(s), nil
	}
	return nil, shared.ErrNotFound
}

func (r *memSessionRepo) FindBySessionNumber(_ context.Context, tenantID uuid.UUID, number string) (*reconciliation.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.SessionNumber == number {
			return cloneSession(s), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSessionRepo) FindByWarehouse(_ context.Context, tenantID, warehouseID uuid.UUID, filter shared.Filter) (*shared.Paginated[*reconciliation.Session], error) {
	return r.findWhere(filter, func(s *reconciliation.Session) bool {
		return s.TenantID == tenantID && s.WarehouseID == warehouseID
	})
}

func (r *memSessionRepo) FindByStatus(_ context.Context, tenantID uuid.UUID, status reconciliation.SessionStatus, filter shared.Filter) (*shared.Paginated[*reconciliation.Session], error) {
	return r.findWhere(filter, func(s *reconciliation.Session) bool {
		return s.TenantID == tenantID && s.Status == status
	})
}

func (r *memSessionRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*reconciliation.Session], error) {
	return r.findWhere(filter, func(s *reconciliation.Session) bool {
		return s.TenantID == tenantID
	})
}

func (r *memSessionRepo) findWhere(filter shared.Filter, match func(*reconciliation.Session) bool) (*shared.Paginated[*reconciliation.Session], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*reconciliation.Session, 0)
	for _, s := range r.sessions {
		if match(s) {
			matches = append(matches, cloneSession(s))
		}
	}
	page := shared.NewPaginated(matches, int64(len(matches)), filter.Page, filter.Limit())
	return &page, nil
}

func (r *memSessionRepo) HasActiveForWarehouse(_ context.Context, tenantID, warehouseID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.WarehouseID == warehouseID && !s.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

// stubStock returns a fixed on-hand snapshot per location
type stubStock struct {
	onHand map[uuid.UUID]map[uuid.UUID]int64 // location -> product -> qty
}

func (s *stubStock) OnHandByLocation(_ context.Context, _, locationID uuid.UUID) (map[uuid.UUID]int64, error) {
	result := make(map[uuid.UUID]int64, len(s.onHand[locationID]))
	for productID, qty := range s.onHand[locationID] {
		result[productID] = qty
	}
	return result, nil
}

// stubCosts returns a fixed unit cost per product
type stubCosts struct {
	unitCosts map[uuid.UUID]int64
}

func (s *stubCosts) FindByProduct(_ context.Context, tenantID, productID uuid.UUID) (*valuation.ProductValuation, error) {
	cost, ok := s.unitCosts[productID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	v, err := valuation.NewProductValuation(tenantID, productID, valuation.MethodAVCO)
	if err != nil {
		return nil, err
	}
	v.UnitCost = cost
	return v, nil
}

// recordingPoster captures posted movements and absorbs idempotent replays
// the way the real ledger service does. failOn makes one key fail once so
// retry behavior can be exercised.
type recordingPoster struct {
	mu       sync.Mutex
	posted   map[string]appledger.PostMovementRequest
	requests []appledger.PostMovementRequest
	failOn   string
	failed   bool
}

func newRecordingPoster() *recordingPoster {
	return &recordingPoster{posted: make(map[string]appledger.PostMovementRequest)}
}

func (p *recordingPoster) PostMovement(_ context.Context, _ uuid.UUID, req appledger.PostMovementRequest) (*appledger.StockMoveResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.requests = append(p.requests, req)

	if req.IdempotencyKey == p.failOn && !p.failed {
		p.failed = true
		return nil, shared.NewConcurrencyError("LOCK_TIMEOUT", "Could not acquire movement lock")
	}

	replayed := false
	if _, ok := p.posted[req.IdempotencyKey]; ok {
		replayed = true
	} else {
		p.posted[req.IdempotencyKey] = req
	}

	return &appledger.StockMoveResponse{
		ID:             uuid.New(),
		ProductID:      req.ProductID,
		MoveKind:       req.MoveKind,
		Quantity:       req.Quantity,
		IdempotencyKey: req.IdempotencyKey,
		Replayed:       replayed,
	}, nil
}

// stubSequences issues REC-2025-001 style numbers in memory
type stubSequences struct {
	mu      sync.Mutex
	counter int
}

func (s *stubSequences) Next(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counter++
	return fmt.Sprintf("%s-2025-%03d", prefix, s.counter), nil
}

// recordingEventBus captures published events for assertions
type recordingEventBus struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (b *recordingEventBus) Publish(_ context.Context, events ...shared.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

func (b *recordingEventBus) Subscribe(_ shared.EventHandler, _ ...string) {}

func (b *recordingEventBus) Unsubscribe(_ shared.EventHandler) {}

func (b *recordingEventBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	types := make([]string, len(b.events))
	for i, e := range b.events {
		types[i] = e.EventType()
	}
	return types
}
