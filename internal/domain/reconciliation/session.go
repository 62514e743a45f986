package reconciliation

import (
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SessionStatus represents the status of a reconciliation session
type SessionStatus string

const (
	SessionStatusDraft      SessionStatus = "draft"
	SessionStatusInProgress SessionStatus = "in_progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
)

// IsValid checks if the status is a valid SessionStatus
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusDraft, SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of SessionStatus
func (s SessionStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s SessionStatus) CanTransitionTo(target SessionStatus) bool {
	switch s {
	case SessionStatusDraft:
		return target == SessionStatusInProgress || target == SessionStatusCancelled
	case SessionStatusInProgress:
		return target == SessionStatusCompleted || target == SessionStatusCancelled
	case SessionStatusCompleted, SessionStatusCancelled:
		return false // Terminal states
	}
	return false
}

// IsTerminal reports whether the status is final
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusCancelled
}

// SessionItem is one product line in a reconciliation session. ExpectedQuantity
// and UnitCost are snapshotted when the item is generated and stay frozen for
// the life of the session, regardless of ledger activity in the meantime.
type SessionItem struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	ProductID        uuid.UUID
	ExpectedQuantity int64
	CountedQuantity  *int64 // Nil until counted
	VarianceQuantity int64  // Counted minus expected
	UnitCost         int64  // Minor currency units at snapshot time
	VarianceValue    int64  // VarianceQuantity * UnitCost
	Counted          bool
	Skipped          bool
	Note             string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSessionItem creates an uncounted item from an expected-quantity snapshot
func NewSessionItem(sessionID, productID uuid.UUID, expectedQty, unitCost int64) *SessionItem {
	now := time.Now()
	return &SessionItem{
		ID:               uuid.New(),
		SessionID:        sessionID,
		ProductID:        productID,
		ExpectedQuantity: expectedQty,
		UnitCost:         unitCost,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// RecordCount records the physical count for this item
func (i *SessionItem) RecordCount(countedQty int64, note string) error {
	if countedQty < 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	i.CountedQuantity = &countedQty
	i.VarianceQuantity = countedQty - i.ExpectedQuantity
	i.VarianceValue = valueobject.NewMoneyCents(i.UnitCost).MulQuantity(i.VarianceQuantity).MinorUnits()
	i.Counted = true
	i.Skipped = false
	i.Note = note
	i.UpdatedAt = time.Now()
	return nil
}

// ClearCount resets the item back to uncounted
func (i *SessionItem) ClearCount() {
	i.CountedQuantity = nil
	i.VarianceQuantity = 0
	i.VarianceValue = 0
	i.Counted = false
	i.Note = ""
	i.UpdatedAt = time.Now()
}

// Skip excludes the item from the completeness requirement and from
// adjustment posting. A skipped item keeps no count.
func (i *SessionItem) Skip(note string) {
	i.ClearCount()
	i.Skipped = true
	i.Note = note
	i.UpdatedAt = time.Now()
}

// HasVariance returns true if the counted quantity differs from expected
func (i *SessionItem) HasVariance() bool {
	return i.Counted && i.VarianceQuantity != 0
}

// Session is a reconciliation of physical counts against the stock ledger.
// It is the aggregate root for reconciliation operations. The aggregate
// totals are maintained incrementally as counts are recorded, so recording
// order never affects the final numbers.
type Session struct {
	shared.TenantAggregateRoot
	SessionNumber string // e.g. REC-2025-001
	WarehouseID   uuid.UUID
	Status        SessionStatus
	Notes         string
	// ScopeProductIDs restricts item generation to the listed products.
	// Empty means every product with on-hand stock in the warehouse.
	ScopeProductIDs []uuid.UUID
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
	CreatedByID   uuid.UUID
	CompletedByID *uuid.UUID
	TotalItems    int
	CountedItems  int
	SkippedItems  int
	VarianceItems int
	// TotalVariance sums counted minus expected quantities over variance
	// items. TotalVarianceValue is the same variance costed at the snapshot
	// unit cost, in minor currency units.
	TotalVariance      int64
	TotalVarianceValue int64
	Items              []SessionItem
}

// NewSession creates a reconciliation session in draft status
func NewSession(tenantID, warehouseID uuid.UUID, sessionNumber string, createdByID uuid.UUID, notes string) (*Session, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if sessionNumber == "" {
		return nil, shared.NewValidationError("INVALID_SESSION_NUMBER", "Session number cannot be empty")
	}
	if createdByID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_CREATOR", "Creator ID cannot be empty")
	}

	s := &Session{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		SessionNumber:       sessionNumber,
		WarehouseID:         warehouseID,
		Status:              SessionStatusDraft,
		Notes:               notes,
		CreatedByID:         createdByID,
		Items:               make([]SessionItem, 0),
	}

	s.AddDomainEvent(NewSessionCreatedEvent(s))

	return s, nil
}

// SetScope restricts item generation to the given products. Editable only
// while the session is a draft.
func (s *Session) SetScope(productIDs []uuid.UUID) error {
	if s.Status != SessionStatusDraft {
		return shared.NewBusinessRuleError("INVALID_STATUS", "Can only change scope in draft status")
	}
	s.ScopeProductIDs = productIDs
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// InScope reports whether a product falls inside the session's scope filter.
func (s *Session) InScope(productID uuid.UUID) bool {
	if len(s.ScopeProductIDs) == 0 {
		return true
	}
	for _, id := range s.ScopeProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// AddItem adds a product line with its expected-quantity snapshot
func (s *Session) AddItem(productID uuid.UUID, expectedQty, unitCost int64) error {
	if s.Status != SessionStatusDraft {
		return shared.NewBusinessRuleError("INVALID_STATUS", "Can only add items in draft status")
	}
	if productID == uuid.Nil {
		return shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	for _, item := range s.Items {
		if item.ProductID == productID {
			return shared.NewBusinessRuleError("DUPLICATE_PRODUCT", "Product already exists in session")
		}
	}

	item := NewSessionItem(s.ID, productID, expectedQty, unitCost)
	s.Items = append(s.Items, *item)
	s.TotalItems++
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	return nil
}

// RemoveItem removes a product line while the session is still a draft
func (s *Session) RemoveItem(productID uuid.UUID) error {
	if s.Status != SessionStatusDraft {
		return shared.NewBusinessRuleError("INVALID_STATUS", "Can only remove items in draft status")
	}
	for i, item := range s.Items {
		if item.ProductID == productID {
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.TotalItems--
			s.UpdatedAt = time.Now()
			s.IncrementVersion()
			return nil
		}
	}
	return shared.NewBusinessRuleError("ITEM_NOT_FOUND", "Product not found in session")
}

// Start moves the session to in_progress so counts can be recorded
func (s *Session) Start() error {
	if !s.Status.CanTransitionTo(SessionStatusInProgress) {
		return shared.NewBusinessRuleError("INVALID_TRANSITION", fmt.Sprintf("Cannot transition from %s to in_progress", s.Status))
	}
	if s.TotalItems == 0 {
		return shared.NewBusinessRuleError("NO_ITEMS", "Cannot start a session with no items")
	}

	now := time.Now()
	s.Status = SessionStatusInProgress
	s.StartedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSessionStartedEvent(s))

	return nil
}

// RecordCount records a physical count for one product. The aggregate totals
// are patched with the delta between the item's previous and new state.
func (s *Session) RecordCount(productID uuid.UUID, countedQty int64, note string) error {
	if s.Status != SessionStatusInProgress {
		return shared.NewBusinessRuleError("INVALID_STATUS", "Can only record counts in in_progress status")
	}

	for i := range s.Items {
		if s.Items[i].ProductID != productID {
			continue
		}
		prev := s.Items[i]
		if err := s.Items[i].RecordCount(countedQty, note); err != nil {
			return err
		}
		s.applyItemDelta(&prev, &s.Items[i])
		s.UpdatedAt = time.Now()
		s.IncrementVersion()
		return nil
	}
	return shared.NewBusinessRuleError("ITEM_NOT_FOUND", "Product not found in session")
}

// ClearCount resets a recorded count back to uncounted
func (s *Session) ClearCount(productID uuid.UUID) error {
	if s.Status != SessionStatusInProgress {
		return shared.NewBusinessRuleError("INVALID_STATUS", "Can only clear counts in in_progress status")
	}

	for i := range s.Items {
		if s.Items[i].ProductID != productID {
			continue
		}
		prev := s.Items[i]
		s.Items[i].ClearCount()
		s.applyItemDelta(&prev, &s.Items[i])
		s.UpdatedAt = time.Now()
		s.IncrementVersion()
		return nil
	}
	return shared.NewBusinessRuleError("ITEM_NOT_FOUND", "Product not found in session")
}

// SkipItem marks a product as skipped for this session
func (s *Session) SkipItem(productID uuid.UUID, note string) error {
	if s.Status != SessionStatusInProgress {
		return shared.NewBusinessRuleError("INVALID_STATUS", "Can only skip items in in_progress status")
	}

	for i := range s.Items {
		if s.Items[i].ProductID != productID {
			continue
		}
		prev := s.Items[i]
		s.Items[i].Skip(note)
		s.applyItemDelta(&prev, &s.Items[i])
		s.UpdatedAt = time.Now()
		s.IncrementVersion()
		return nil
	}
	return shared.NewBusinessRuleError("ITEM_NOT_FOUND", "Product not found in session")
}

// applyItemDelta patches the aggregate totals for one item's state change.
// Totals never need a full rescan of the item list.
func (s *Session) applyItemDelta(prev, next *SessionItem) {
	if prev.Counted {
		s.CountedItems--
	}
	if next.Counted {
		s.CountedItems++
	}
	if prev.Skipped {
		s.SkippedItems--
	}
	if next.Skipped {
		s.SkippedItems++
	}
	if prev.HasVariance() {
		s.VarianceItems--
		s.TotalVariance -= prev.VarianceQuantity
		s.TotalVarianceValue -= prev.VarianceValue
	}
	if next.HasVariance() {
		s.VarianceItems++
		s.TotalVariance += next.VarianceQuantity
		s.TotalVarianceValue += next.VarianceValue
	}
}

// Complete finalizes the session. Every item must be either counted or
// skipped. The caller posts adjustment movements for variance items in the
// same unit of work.
func (s *Session) Complete(completedByID uuid.UUID) error {
	if !s.Status.CanTransitionTo(SessionStatusCompleted) {
		return shared.NewBusinessRuleError("INVALID_TRANSITION", fmt.Sprintf("Cannot transition from %s to completed", s.Status))
	}
	if s.CountedItems+s.SkippedItems != s.TotalItems {
		return shared.NewBusinessRuleError("INCOMPLETE_COUNT",
			fmt.Sprintf("Not all items have been counted or skipped (%d/%d)", s.CountedItems+s.SkippedItems, s.TotalItems))
	}
	if completedByID == uuid.Nil {
		return shared.NewValidationError("INVALID_USER", "Completing user ID cannot be empty")
	}

	now := time.Now()
	s.Status = SessionStatusCompleted
	s.CompletedAt = &now
	s.CompletedByID = &completedByID
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSessionCompletedEvent(s))

	return nil
}

// Cancel abandons the session without posting any adjustments
func (s *Session) Cancel(reason string) error {
	if !s.Status.CanTransitionTo(SessionStatusCancelled) {
		return shared.NewBusinessRuleError("INVALID_TRANSITION", fmt.Sprintf("Cannot transition from %s to cancelled", s.Status))
	}

	now := time.Now()
	s.Status = SessionStatusCancelled
	s.CancelledAt = &now
	if reason != "" {
		s.Notes = reason
	}
	s.UpdatedAt = now
	s.IncrementVersion()

	s.AddDomainEvent(NewSessionCancelledEvent(s))

	return nil
}

// VarianceItemList returns the counted items whose quantity differs from the
// snapshot, the set that completion turns into adjustment movements.
func (s *Session) VarianceItemList() []SessionItem {
	result := make([]SessionItem, 0)
	for _, item := range s.Items {
		if item.HasVariance() {
			result = append(result, item)
		}
	}
	return result
}

// OutstandingItems returns items that are neither counted nor skipped
func (s *Session) OutstandingItems() []SessionItem {
	result := make([]SessionItem, 0)
	for _, item := range s.Items {
		if !item.Counted && !item.Skipped {
			result = append(result, item)
		}
	}
	return result
}

// AdjustmentIdempotencyKey derives the idempotency key for one item's
// variance adjustment. Stable across retries of Complete so the ledger
// absorbs replays.
func (s *Session) AdjustmentIdempotencyKey(item *SessionItem) string {
	return fmt.Sprintf("rec-%s-item-%s-%s", s.ID, item.ProductID, s.WarehouseID)
}

// IsComplete returns true if every item has been counted or skipped
func (s *Session) IsComplete() bool {
	return s.TotalItems > 0 && s.CountedItems+s.SkippedItems == s.TotalItems
}

// Progress returns the counting progress as a percentage
func (s *Session) Progress() float64 {
	if s.TotalItems == 0 {
		return 0
	}
	return float64(s.CountedItems+s.SkippedItems) / float64(s.TotalItems) * 100
}
