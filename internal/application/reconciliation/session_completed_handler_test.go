package reconciliation

import (
	"context"
	"testing"

	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// mockVarianceNotifier is a mock implementation of VarianceNotifier
type mockVarianceNotifier struct {
	notifications []VarianceNotification
	returnError   error
}

func (m *mockVarianceNotifier) NotifyVariance(ctx context.Context, notification VarianceNotification) error {
	if m.returnError != nil {
		return m.returnError
	}
	m.notifications = append(m.notifications, notification)
	return nil
}

func newCompletedEvent(tenantID, sessionID, warehouseID uuid.UUID, varianceItems int, totalVariance, totalVarianceValue int64) *reconciliation.SessionCompletedEvent {
	return &reconciliation.SessionCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			reconciliation.EventTypeSessionCompleted,
			reconciliation.AggregateTypeSession,
			sessionID,
			tenantID,
		),
		SessionID:          sessionID,
		SessionNumber:      "REC-2025-001",
		WarehouseID:        warehouseID,
		VarianceItems:      varianceItems,
		TotalVariance:      totalVariance,
		TotalVarianceValue: totalVarianceValue,
	}
}

func TestSessionCompletedHandler_EventTypes(t *testing.T) {
	handler := NewSessionCompletedHandler(zap.NewNop())

	eventTypes := handler.EventTypes()
	require.Len(t, eventTypes, 1)
	assert.Equal(t, reconciliation.EventTypeSessionCompleted, eventTypes[0])
}

func TestSessionCompletedHandler_Handle(t *testing.T) {
	logger := zap.NewNop()

	t.Run("notifies when the session closed with variances", func(t *testing.T) {
		notifier := &mockVarianceNotifier{}
		handler := NewSessionCompletedHandler(logger).WithNotifier(notifier)

		tenantID := uuid.New()
		sessionID := uuid.New()
		warehouseID := uuid.New()

		event := newCompletedEvent(tenantID, sessionID, warehouseID, 3, -5, -1250)

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)

		require.Len(t, notifier.notifications, 1)
		notification := notifier.notifications[0]
		assert.Equal(t, tenantID.String(), notification.TenantID)
		assert.Equal(t, sessionID.String(), notification.SessionID)
		assert.Equal(t, "REC-2025-001", notification.SessionNumber)
		assert.Equal(t, warehouseID.String(), notification.WarehouseID)
		assert.Equal(t, 3, notification.VarianceItems)
		assert.Equal(t, int64(-5), notification.TotalVariance)
		assert.Equal(t, int64(-1250), notification.TotalVarianceValue)
	})

	t.Run("skips notification for a clean count", func(t *testing.T) {
		notifier := &mockVarianceNotifier{}
		handler := NewSessionCompletedHandler(logger).WithNotifier(notifier)

		event := newCompletedEvent(uuid.New(), uuid.New(), uuid.New(), 0, 0, 0)

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)
		assert.Empty(t, notifier.notifications)
	})

	t.Run("handles without notifier configured", func(t *testing.T) {
		handler := NewSessionCompletedHandler(logger)

		event := newCompletedEvent(uuid.New(), uuid.New(), uuid.New(), 1, 5, 500)

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)
	})

	t.Run("notifier failure does not fail handling", func(t *testing.T) {
		notifier := &mockVarianceNotifier{returnError: assert.AnError}
		handler := NewSessionCompletedHandler(logger).WithNotifier(notifier)

		event := newCompletedEvent(uuid.New(), uuid.New(), uuid.New(), 2, 9, 900)

		err := handler.Handle(context.Background(), event)
		require.NoError(t, err)
		assert.Empty(t, notifier.notifications)
	})

	t.Run("rejects an unexpected event type", func(t *testing.T) {
		handler := NewSessionCompletedHandler(logger)

		event := reconciliation.NewSessionCancelledEvent(&reconciliation.Session{})

		err := handler.Handle(context.Background(), event)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected event type")
	})
}

func TestLoggingVarianceNotifier(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	notifier := NewLoggingVarianceNotifier(zap.New(core))

	err := notifier.NotifyVariance(context.Background(), VarianceNotification{
		SessionNumber:      "REC-2025-002",
		TotalVariance:      -4,
		TotalVarianceValue: -400,
	})
	assert.NoError(t, err)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, int64(-4), fields["total_variance"])
	// The monetary total renders in major units.
	assert.Equal(t, "-4.00 CNY", fields["total_variance_value"])
}
