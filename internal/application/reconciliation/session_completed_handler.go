package reconciliation

import (
	"context"
	"fmt"

	"github.com/erp/stockledger/internal/domain/reconciliation"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// SessionCompletedHandler handles SessionCompletedEvent and notifies
// other contexts when a count closed with stock variances
type SessionCompletedHandler struct {
	logger   *zap.Logger
	notifier VarianceNotifier
}

// VarianceNotifier is the interface for notifying about count variances
// Implementations can support different notification channels (in-app, webhook, etc.)
type VarianceNotifier interface {
	// NotifyVariance sends a notification when a session completed with variances
	NotifyVariance(ctx context.Context, notification VarianceNotification) error
}

// VarianceNotification represents a notification about a completed count
// that produced stock variances
type VarianceNotification struct {
	TenantID           string `json:"tenant_id"`
	SessionID          string `json:"session_id"`
	SessionNumber      string `json:"session_number"`
	WarehouseID        string `json:"warehouse_id"`
	VarianceItems      int    `json:"variance_items"`
	TotalVariance      int64  `json:"total_variance"`       // Counted minus expected quantities
	TotalVarianceValue int64  `json:"total_variance_value"` // Minor currency units
}

// NewSessionCompletedHandler creates a new handler for session completed events
func NewSessionCompletedHandler(logger *zap.Logger) *SessionCompletedHandler {
	return &SessionCompletedHandler{
		logger: logger,
	}
}

// WithNotifier sets the notifier for sending variance notifications
func (h *SessionCompletedHandler) WithNotifier(notifier VarianceNotifier) *SessionCompletedHandler {
	h.notifier = notifier
	return h
}

// EventTypes returns the event types this handler is interested in
func (h *SessionCompletedHandler) EventTypes() []string {
	return []string{reconciliation.EventTypeSessionCompleted}
}

// Handle processes a SessionCompletedEvent
func (h *SessionCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completedEvent, ok := event.(*reconciliation.SessionCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", reconciliation.EventTypeSessionCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			reconciliation.EventTypeSessionCompleted, event.EventType())
	}

	if completedEvent.VarianceItems == 0 {
		h.logger.Info("reconciliation session completed without variances",
			zap.String("tenant_id", event.TenantID().String()),
			zap.String("session_number", completedEvent.SessionNumber),
		)
		return nil
	}

	h.logger.Warn("reconciliation session completed with variances",
		zap.String("tenant_id", event.TenantID().String()),
		zap.String("session_number", completedEvent.SessionNumber),
		zap.String("warehouse_id", completedEvent.WarehouseID.String()),
		zap.Int("variance_items", completedEvent.VarianceItems),
		zap.Int64("total_variance", completedEvent.TotalVariance),
		zap.Int64("total_variance_value", completedEvent.TotalVarianceValue),
	)

	notification := VarianceNotification{
		TenantID:           event.TenantID().String(),
		SessionID:          completedEvent.SessionID.String(),
		SessionNumber:      completedEvent.SessionNumber,
		WarehouseID:        completedEvent.WarehouseID.String(),
		VarianceItems:      completedEvent.VarianceItems,
		TotalVariance:      completedEvent.TotalVariance,
		TotalVarianceValue: completedEvent.TotalVarianceValue,
	}

	if h.notifier != nil {
		if err := h.notifier.NotifyVariance(ctx, notification); err != nil {
			h.logger.Error("failed to send variance notification",
				zap.String("session_number", notification.SessionNumber),
				zap.Error(err),
			)
			// Don't return error - notification failure shouldn't fail the event handling
		} else {
			h.logger.Info("variance notification sent",
				zap.String("session_number", notification.SessionNumber),
				zap.Int("variance_items", notification.VarianceItems),
			)
		}
	}

	return nil
}

// Ensure SessionCompletedHandler implements shared.EventHandler
var _ shared.EventHandler = (*SessionCompletedHandler)(nil)

// LoggingVarianceNotifier is a simple notifier that logs notifications
// This is useful for development and testing
type LoggingVarianceNotifier struct {
	logger *zap.Logger
}

// NewLoggingVarianceNotifier creates a new logging notifier
func NewLoggingVarianceNotifier(logger *zap.Logger) *LoggingVarianceNotifier {
	return &LoggingVarianceNotifier{
		logger: logger,
	}
}

// NotifyVariance logs the variance notification
func (n *LoggingVarianceNotifier) NotifyVariance(ctx context.Context, notification VarianceNotification) error {
	n.logger.Warn("STOCK VARIANCE",
		zap.String("session_number", notification.SessionNumber),
		zap.String("warehouse_id", notification.WarehouseID),
		zap.Int64("total_variance", notification.TotalVariance),
		zap.Stringer("total_variance_value", valueobject.NewMoneyCents(notification.TotalVarianceValue)),
	)
	return nil
}

// Ensure LoggingVarianceNotifier implements VarianceNotifier
var _ VarianceNotifier = (*LoggingVarianceNotifier)(nil)
