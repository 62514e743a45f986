package reconciliation

import (
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant for Session
const AggregateTypeSession = "ReconciliationSession"

// Session event type constants
const (
	EventTypeSessionCreated   = "ReconciliationSessionCreated"
	EventTypeSessionStarted   = "ReconciliationSessionStarted"
	EventTypeSessionCompleted = "ReconciliationSessionCompleted"
	EventTypeSessionCancelled = "ReconciliationSessionCancelled"
)

// SessionCreatedEvent is raised when a reconciliation session is created
type SessionCreatedEvent struct {
	shared.BaseDomainEvent
	SessionID     uuid.UUID `json:"session_id"`
	SessionNumber string    `json:"session_number"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	CreatedByID   uuid.UUID `json:"created_by_id"`
}

// NewSessionCreatedEvent creates a new SessionCreatedEvent
func NewSessionCreatedEvent(s *Session) *SessionCreatedEvent {
	return &SessionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionCreated, AggregateTypeSession, s.ID, s.TenantID),
		SessionID:       s.ID,
		SessionNumber:   s.SessionNumber,
		WarehouseID:     s.WarehouseID,
		CreatedByID:     s.CreatedByID,
	}
}

// EventType returns the event type name
func (e *SessionCreatedEvent) EventType() string {
	return EventTypeSessionCreated
}

// SessionStartedEvent is raised when counting starts
type SessionStartedEvent struct {
	shared.BaseDomainEvent
	SessionID     uuid.UUID `json:"session_id"`
	SessionNumber string    `json:"session_number"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	TotalItems    int       `json:"total_items"`
}

// NewSessionStartedEvent creates a new SessionStartedEvent
func NewSessionStartedEvent(s *Session) *SessionStartedEvent {
	return &SessionStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionStarted, AggregateTypeSession, s.ID, s.TenantID),
		SessionID:       s.ID,
		SessionNumber:   s.SessionNumber,
		WarehouseID:     s.WarehouseID,
		TotalItems:      s.TotalItems,
	}
}

// EventType returns the event type name
func (e *SessionStartedEvent) EventType() string {
	return EventTypeSessionStarted
}

// SessionCompletedEvent is raised when a session completes and variance
// adjustments have been posted to the ledger
type SessionCompletedEvent struct {
	shared.BaseDomainEvent
	SessionID          uuid.UUID `json:"session_id"`
	SessionNumber      string    `json:"session_number"`
	WarehouseID        uuid.UUID `json:"warehouse_id"`
	VarianceItems      int       `json:"variance_items"`
	TotalVariance      int64     `json:"total_variance"`
	TotalVarianceValue int64     `json:"total_variance_value"`
	CompletedByID      uuid.UUID `json:"completed_by_id"`
}

// NewSessionCompletedEvent creates a new SessionCompletedEvent
func NewSessionCompletedEvent(s *Session) *SessionCompletedEvent {
	var completedByID uuid.UUID
	if s.CompletedByID != nil {
		completedByID = *s.CompletedByID
	}
	return &SessionCompletedEvent{
		BaseDomainEvent:    shared.NewBaseDomainEvent(EventTypeSessionCompleted, AggregateTypeSession, s.ID, s.TenantID),
		SessionID:          s.ID,
		SessionNumber:      s.SessionNumber,
		WarehouseID:        s.WarehouseID,
		VarianceItems:      s.VarianceItems,
		TotalVariance:      s.TotalVariance,
		TotalVarianceValue: s.TotalVarianceValue,
		CompletedByID:      completedByID,
	}
}

// EventType returns the event type name
func (e *SessionCompletedEvent) EventType() string {
	return EventTypeSessionCompleted
}

// SessionCancelledEvent is raised when a session is abandoned
type SessionCancelledEvent struct {
	shared.BaseDomainEvent
	SessionID     uuid.UUID `json:"session_id"`
	SessionNumber string    `json:"session_number"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	Reason        string    `json:"reason"`
}

// NewSessionCancelledEvent creates a new SessionCancelledEvent
func NewSessionCancelledEvent(s *Session) *SessionCancelledEvent {
	return &SessionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSessionCancelled, AggregateTypeSession, s.ID, s.TenantID),
		SessionID:       s.ID,
		SessionNumber:   s.SessionNumber,
		WarehouseID:     s.WarehouseID,
		Reason:          s.Notes,
	}
}

// EventType returns the event type name
func (e *SessionCancelledEvent) EventType() string {
	return EventTypeSessionCancelled
}
