package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/stockledger/internal/domain/ledger"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/valuation"
	"github.com/google/uuid"
)

// nopLocker runs the callback directly, no mutual exclusion
type nopLocker struct{}

func (nopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockEventPublisher collects published events for assertions
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) Subscribe(shared.EventHandler, ...string) {}
func (m *MockEventPublisher) Unsubscribe(shared.EventHandler)         {}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// memMoveRepo is an in-memory StockMoveRepository
type memMoveRepo struct {
	mu      sync.Mutex
	entries []*ledger.StockMoveEntry
}

func newMemMoveRepo() *memMoveRepo { return &memMoveRepo{} }

func (r *memMoveRepo) Create(_ context.Context, entry *ledger.StockMoveEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == entry.TenantID && e.IdempotencyKey == entry.IdempotencyKey {
			return shared.ErrAlreadyExists
		}
	}
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *memMoveRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*ledger.StockMoveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ID == id {
			clone := *e
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMoveRepo) FindByIdempotencyKey(_ context.Context, tenantID uuid.UUID, key string) (*ledger.StockMoveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.IdempotencyKey == key {
			clone := *e
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memMoveRepo) FindByProduct(_ context.Context, tenantID uuid.UUID, query ledger.HistoryQuery) ([]*ledger.StockMoveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*ledger.StockMoveEntry, 0)
	for _, e := range r.entries {
		if e.TenantID != tenantID || e.ProductID != query.ProductID {
			continue
		}
		if query.From != nil && e.OccurredAt.Before(*query.From) {
			continue
		}
		if query.To != nil && e.OccurredAt.After(*query.To) {
			continue
		}
		if query.MoveKind != nil && e.MoveKind != *query.MoveKind {
			continue
		}
		matches = append(matches, e)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].OccurredAt.Equal(matches[j].OccurredAt) {
			return matches[i].ID.String() < matches[j].ID.String()
		}
		return matches[i].OccurredAt.Before(matches[j].OccurredAt)
	})
	if query.AfterTime != nil {
		filtered := matches[:0:0]
		for _, e := range matches {
			if e.OccurredAt.After(*query.AfterTime) ||
				(e.OccurredAt.Equal(*query.AfterTime) && query.AfterID != nil && e.ID.String() > query.AfterID.String()) {
				filtered = append(filtered, e)
			}
		}
		matches = filtered
	}
	if query.Limit > 0 && len(matches) > query.Limit {
		matches = matches[:query.Limit]
	}
	result := make([]*ledger.StockMoveEntry, len(matches))
	for i, e := range matches {
		clone := *e
		result[i] = &clone
	}
	return result, nil
}

func (r *memMoveRepo) FindByReference(_ context.Context, tenantID uuid.UUID, kind ledger.ReferenceKind, referenceID uuid.UUID) ([]*ledger.StockMoveEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]*ledger.StockMoveEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ReferenceKind == kind && e.ReferenceID == referenceID {
			clone := *e
			result = append(result, &clone)
		}
	}
	return result, nil
}

func (r *memMoveRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*ledger.StockMoveEntry], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*ledger.StockMoveEntry, 0)
	for _, e := range r.entries {
		if e.TenantID == tenantID {
			clone := *e
			matches = append(matches, &clone)
		}
	}
	page := shared.NewPaginated(matches, int64(len(matches)), filter.Page, filter.Limit())
	return &page, nil
}

func (r *memMoveRepo) UpdateAnnotation(_ context.Context, tenantID, id uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ID == id {
			e.MoveReason = reason
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memMoveRepo) SumQuantityByProduct(_ context.Context, tenantID, productID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum int64
	for _, e := range r.entries {
		if e.TenantID == tenantID && e.ProductID == productID && e.MoveKind != ledger.MoveKindTransfer {
			sum += e.Quantity
		}
	}
	return sum, nil
}

func (r *memMoveRepo) SumQuantityByProductAndLocation(_ context.Context, tenantID, productID, locationID uuid.UUID) (int64, error) {
	byProduct, err := r.OnHandByLocation(context.Background(), tenantID, locationID)
	if err != nil {
		return 0, err
	}
	return byProduct[productID], nil
}

func (r *memMoveRepo) OnHandByLocation(_ context.Context, tenantID, locationID uuid.UUID) (map[uuid.UUID]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[uuid.UUID]int64)
	for _, e := range r.entries {
		if e.TenantID != tenantID {
			continue
		}
		qty := e.AbsQuantity()
		if e.DestinationLocationID != nil && *e.DestinationLocationID == locationID {
			result[e.ProductID] += qty
		}
		if e.SourceLocationID != nil && *e.SourceLocationID == locationID {
			result[e.ProductID] -= qty
		}
	}
	return result, nil
}

// memValuationRepo is an in-memory ProductValuationRepository
type memValuationRepo struct {
	mu         sync.Mutex
	valuations map[string]*valuation.ProductValuation
}

func newMemValuationRepo() *memValuationRepo {
	return &memValuationRepo{valuations: make(map[string]*valuation.ProductValuation)}
}

func valuationKey(tenantID, productID uuid.UUID) string {
	return tenantID.String() + "/" + productID.String()
}

func (r *memValuationRepo) Create(_ context.Context, v *valuation.ProductValuation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := valuationKey(v.TenantID, v.ProductID)
	if _, ok := r.valuations[key]; ok {
		return shared.ErrAlreadyExists
	}
	clone := *v
	r.valuations[key] = &clone
	return nil
}

func (r *memValuationRepo) Update(_ context.Context, v *valuation.ProductValuation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := valuationKey(v.TenantID, v.ProductID)
	if _, ok := r.valuations[key]; !ok {
		return shared.ErrNotFound
	}
	clone := *v
	r.valuations[key] = &clone
	return nil
}

func (r *memValuationRepo) FindByProduct(_ context.Context, tenantID, productID uuid.UUID) (*valuation.ProductValuation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.valuations[valuationKey(tenantID, productID)]; ok {
		clone := *v
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memValuationRepo) FindAll(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.ProductValuation], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*valuation.ProductValuation, 0)
	for _, v := range r.valuations {
		if v.TenantID == tenantID {
			clone := *v
			matches = append(matches, &clone)
		}
	}
	page := shared.NewPaginated(matches, int64(len(matches)), filter.Page, filter.Limit())
	return &page, nil
}

// memLayerRepo is an in-memory ValuationLayerRepository
type memLayerRepo struct {
	mu     sync.Mutex
	layers []*valuation.ValuationLayer
}

func newMemLayerRepo() *memLayerRepo { return &memLayerRepo{} }

func (r *memLayerRepo) Create(_ context.Context, layer *valuation.ValuationLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *layer
	r.layers = append(r.layers, &clone)
	return nil
}

func (r *memLayerRepo) Update(_ context.Context, layer *valuation.ValuationLayer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.layers {
		if l.ID == layer.ID {
			clone := *layer
			r.layers[i] = &clone
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memLayerRepo) FindOpenByProduct(_ context.Context, tenantID, productID uuid.UUID) ([]*valuation.ValuationLayer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*valuation.ValuationLayer, 0)
	for _, l := range r.layers {
		if l.TenantID == tenantID && l.ProductID == productID && l.RemainingQuantity > 0 {
			clone := *l
			matches = append(matches, &clone)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ReceivedAt.Before(matches[j].ReceivedAt) })
	return matches, nil
}

func (r *memLayerRepo) FindByProduct(_ context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.ValuationLayer], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*valuation.ValuationLayer, 0)
	for _, l := range r.layers {
		if l.TenantID == tenantID && l.ProductID == productID {
			clone := *l
			matches = append(matches, &clone)
		}
	}
	page := shared.NewPaginated(matches, int64(len(matches)), filter.Page, filter.Limit())
	return &page, nil
}

// memHistoryRepo is an in-memory ValuationHistoryRepository
type memHistoryRepo struct {
	mu      sync.Mutex
	records []*valuation.ValuationHistory
}

func newMemHistoryRepo() *memHistoryRepo { return &memHistoryRepo{} }

func (r *memHistoryRepo) Create(_ context.Context, record *valuation.ValuationHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	r.records = append(r.records, &clone)
	return nil
}

func (r *memHistoryRepo) FindByProduct(_ context.Context, tenantID, productID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.ValuationHistory], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*valuation.ValuationHistory, 0)
	for _, rec := range r.records {
		if rec.TenantID == tenantID && rec.ProductID == productID {
			clone := *rec
			matches = append(matches, &clone)
		}
	}
	page := shared.NewPaginated(matches, int64(len(matches)), filter.Page, filter.Limit())
	return &page, nil
}

// memSettingRepo is an in-memory CostMethodSettingRepository
type memSettingRepo struct {
	mu       sync.Mutex
	settings []*valuation.CostMethodSetting
}

func newMemSettingRepo() *memSettingRepo { return &memSettingRepo{} }

func (r *memSettingRepo) Create(_ context.Context, s *valuation.CostMethodSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	r.settings = append(r.settings, &clone)
	return nil
}

func (r *memSettingRepo) Update(_ context.Context, s *valuation.CostMethodSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.settings {
		if existing.ID == s.ID {
			clone := *s
			r.settings[i] = &clone
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memSettingRepo) Delete(_ context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, s := range r.settings {
		if s.TenantID == tenantID && s.ID == id {
			r.settings = append(r.settings[:i], r.settings[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (r *memSettingRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*valuation.CostMethodSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.TenantID == tenantID && s.ID == id {
			clone := *s
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSettingRepo) FindForTenant(_ context.Context, tenantID uuid.UUID) (*valuation.CostMethodSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.TenantID == tenantID && s.Scope == valuation.ScopeTenant {
			clone := *s
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSettingRepo) FindForCategory(_ context.Context, tenantID, categoryID uuid.UUID) (*valuation.CostMethodSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.TenantID == tenantID && s.Scope == valuation.ScopeCategory && s.CategoryID != nil && *s.CategoryID == categoryID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSettingRepo) FindForProduct(_ context.Context, tenantID, productID uuid.UUID) (*valuation.CostMethodSetting, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.settings {
		if s.TenantID == tenantID && s.Scope == valuation.ScopeProduct && s.ProductID != nil && *s.ProductID == productID {
			clone := *s
			return &clone, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memSettingRepo) ListByTenant(_ context.Context, tenantID uuid.UUID, filter shared.Filter) (*shared.Paginated[*valuation.CostMethodSetting], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matches := make([]*valuation.CostMethodSetting, 0)
	for _, s := range r.settings {
		if s.TenantID == tenantID {
			clone := *s
			matches = append(matches, &clone)
		}
	}
	page := shared.NewPaginated(matches, int64(len(matches)), filter.Page, filter.Limit())
	return &page, nil
}
