package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ledgerTestEvent implements DomainEvent for testing
type ledgerTestEvent struct {
	shared.BaseDomainEvent
	Quantity int64 `json:"quantity"`
}

func newLedgerTestEvent(eventType string, tenantID uuid.UUID) *ledgerTestEvent {
	return &ledgerTestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "StockMoveEntry", uuid.New(), tenantID),
		Quantity:        10,
	}
}

// recordingHandler implements EventHandler for testing
type recordingHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	mu         sync.Mutex
}

func newRecordingHandler(eventTypes ...string) *recordingHandler {
	return &recordingHandler{
		eventTypes: eventTypes,
		handled:    make([]shared.DomainEvent, 0),
	}
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	return h.err
}

func (h *recordingHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *recordingHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *recordingHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("StockMovePosted")
	bus.Subscribe(handler, "StockMovePosted")

	event := newLedgerTestEvent("StockMovePosted", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_MultipleEvents(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("StockMovePosted")
	bus.Subscribe(handler, "StockMovePosted")

	event1 := newLedgerTestEvent("StockMovePosted", uuid.New())
	event2 := newLedgerTestEvent("StockMovePosted", uuid.New())
	err := bus.Publish(context.Background(), event1, event2)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_MultipleHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newRecordingHandler("SessionCompleted")
	handler2 := newRecordingHandler("SessionCompleted")
	bus.Subscribe(handler1, "SessionCompleted")
	bus.Subscribe(handler2, "SessionCompleted")

	event := newLedgerTestEvent("SessionCompleted", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcardHandler := newRecordingHandler() // No event types = wildcard
	bus.Subscribe(wildcardHandler)

	err := bus.Publish(context.Background(), newLedgerTestEvent("StockMovePosted", uuid.New()))
	require.NoError(t, err)
	err = bus.Publish(context.Background(), newLedgerTestEvent("SessionCancelled", uuid.New()))
	require.NoError(t, err)

	assert.Len(t, wildcardHandler.getHandled(), 2)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler1 := newRecordingHandler("StockMovePosted")
	handler1.setError(errors.New("handler error"))
	handler2 := newRecordingHandler("StockMovePosted")
	bus.Subscribe(handler1, "StockMovePosted")
	bus.Subscribe(handler2, "StockMovePosted")

	event := newLedgerTestEvent("StockMovePosted", uuid.New())
	err := bus.Publish(context.Background(), event)

	// A failing handler never fails the publish or starves later handlers
	require.NoError(t, err)
	assert.Len(t, handler1.getHandled(), 1)
	assert.Len(t, handler2.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_NoMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("SessionStarted")
	bus.Subscribe(handler, "SessionStarted")

	event := newLedgerTestEvent("StockMovePosted", uuid.New())
	err := bus.Publish(context.Background(), event)

	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 0)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newRecordingHandler("StockMovePosted")
	bus.Subscribe(handler, "StockMovePosted")

	_ = bus.Publish(context.Background(), newLedgerTestEvent("StockMovePosted", uuid.New()))
	assert.Len(t, handler.getHandled(), 1)

	bus.Unsubscribe(handler)

	_ = bus.Publish(context.Background(), newLedgerTestEvent("StockMovePosted", uuid.New()))
	assert.Len(t, handler.getHandled(), 1) // Still 1, not 2
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	ctx := context.Background()
	err := bus.Start(ctx)
	require.NoError(t, err)

	// Can still publish after start
	handler := newRecordingHandler("StockMovePosted")
	bus.Subscribe(handler, "StockMovePosted")
	err = bus.Publish(ctx, newLedgerTestEvent("StockMovePosted", uuid.New()))
	require.NoError(t, err)
	assert.Len(t, handler.getHandled(), 1)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = bus.Stop(ctx)
	require.NoError(t, err)
}
