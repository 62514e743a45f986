package reconciliation

import (
	"context"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Completing a session over the real in-memory bus must reach a subscribed
// variance notifier end to end.
func TestSessionCompletionNotifiesOverEventBus(t *testing.T) {
	f := newReconciliationFixture(t)
	ctx := context.Background()

	notifier := &mockVarianceNotifier{}
	bus := event.NewInMemoryEventBus(zap.NewNop())
	bus.Subscribe(NewSessionCompletedHandler(zap.NewNop()).WithNotifier(notifier))
	f.service = NewReconciliationService(f.sessionRepo, f.stock, f.costs, f.poster, &stubSequences{}, bus)

	productID := f.stockProduct(10, 250)
	session := f.startedSession(t)

	_, err := f.service.RecordCount(ctx, f.tenantID, session.ID, RecordCountRequest{
		ProductID:       productID,
		CountedQuantity: 7,
	})
	require.NoError(t, err)

	resp, err := f.service.CompleteSession(ctx, f.tenantID, session.ID, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.AdjustmentsPosted)

	require.Len(t, notifier.notifications, 1)
	notification := notifier.notifications[0]
	assert.Equal(t, f.tenantID.String(), notification.TenantID)
	assert.Equal(t, session.SessionNumber, notification.SessionNumber)
	assert.Equal(t, 1, notification.VarianceItems)
	assert.Equal(t, int64(-3), notification.TotalVariance)
	assert.Equal(t, int64(-3*250), notification.TotalVarianceValue)
}
