package service

import (
	"context"
	"testing"
	"time"

	"fulfillment-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deliveredOrderInStore(fs *fakeStore, userID int64) *models.Order {
	delivered := time.Now().Add(-24 * time.Hour)
	order := &models.Order{
		Code:         models.GenerateOrderCode(),
		UserID:       userID,
		CustomerName: "Rina Wati",
		Status:       models.OrderStatusDelivered,
		CreatedAt:    time.Now().Add(-72 * time.Hour),
		DeliveredAt:  &delivered,
	}
	items := []models.OrderItem{
		{ProductID: 11, Title: "Sneakers", Quantity: 1, UnitPrice: 50000, Subtotal: 50000},
		{ProductID: 12, Title: "Socks", Quantity: 2, UnitPrice: 5000, Subtotal: 10000},
	}
	fs.addOrder(order, items)
	return order
}

func approvedReturnInStore(fs *fakeStore, order *models.Order) *models.ReturnRequest {
	rr := &models.ReturnRequest{
		OrderID: order.ID,
		UserID:  order.UserID,
		Items:   models.SnapshotReturnItems(fs.items[order.ID]),
		Reason:  "wrong size",
		Status:  models.ReturnStatusApproved,
	}
	fs.addReturn(rr)
	return rr
}

func newReturnLifecycle(fs *fakeStore, provider *fakeProvider, locker *fakeLocker, pub *fakePublisher) *ReturnLifecycle {
	return NewReturnLifecycle(fs, fastCoordinator(provider), locker, pub, DefaultReturnWindow)
}

func TestCreateReturnRequestSnapshotsItems(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	pub := &fakePublisher{}
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, pub)

	rr, err := rl.CreateReturnRequest(context.Background(), 7, order.ID, "wrong size", "too small")
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusPending, rr.Status)
	assert.Len(t, rr.Items, 2)
	assert.Equal(t, int64(11), rr.Items[0].ProductID)
	assert.Contains(t, pub.published, models.EventTypeReturnRequested)

	// editing the order afterwards must not change the snapshot
	fs.items[order.ID][0].Title = "Renamed"
	stored, err := fs.GetReturnByID(context.Background(), rr.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sneakers", stored.Items[0].Title)
}

func TestCreateReturnRequestRequiresReason(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	_, err := rl.CreateReturnRequest(context.Background(), 7, order.ID, "   ", "")
	assert.ErrorIs(t, err, models.ErrMissingField)
}

func TestCreateReturnRequestRejectsUndelivered(t *testing.T) {
	fs := newFakeStore()
	order := &models.Order{UserID: 7, Status: models.OrderStatusShipped, CreatedAt: time.Now()}
	fs.addOrder(order, nil)
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	_, err := rl.CreateReturnRequest(context.Background(), 7, order.ID, "wrong size", "")
	assert.ErrorIs(t, err, models.ErrOrderNotDelivered)
}

func TestCreateReturnRequestRejectsDuplicatePending(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	fs.addReturn(&models.ReturnRequest{
		OrderID: order.ID,
		UserID:  7,
		Reason:  "first one",
		Status:  models.ReturnStatusPending,
	})
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	_, err := rl.CreateReturnRequest(context.Background(), 7, order.ID, "second one", "")
	assert.ErrorIs(t, err, models.ErrDuplicatePendingReturn)
}

func TestListReturnRequestsScopesNonAdminsToOwnRows(t *testing.T) {
	fs := newFakeStore()
	orderA := deliveredOrderInStore(fs, 7)
	orderB := deliveredOrderInStore(fs, 8)
	fs.addReturn(&models.ReturnRequest{OrderID: orderA.ID, UserID: 7, Reason: "a", Status: models.ReturnStatusPending})
	fs.addReturn(&models.ReturnRequest{OrderID: orderB.ID, UserID: 8, Reason: "b", Status: models.ReturnStatusPending})
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	own, err := rl.ListReturnRequests(context.Background(), 7, false, "", nil)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, int64(7), own[0].UserID)

	all, err := rl.ListReturnRequests(context.Background(), 7, true, "", nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSetStatusSchedulesReversePickup(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := approvedReturnInStore(fs, order)
	provider := &fakeProvider{
		reverseSnap: models.Shipment{
			ProviderOrderID: "998877",
			ShipmentID:      "SR123",
			AWBCode:         "AWB555",
			Status:          "NEW",
			Enabled:         true,
		},
	}
	pub := &fakePublisher{}
	rl := newReturnLifecycle(fs, provider, &fakeLocker{}, pub)

	updated, outcome, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "pickup booked", "", nil)
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusPickupScheduled, updated.Status)
	assert.Equal(t, "SR123", updated.ReversePickup.ShipmentID)
	assert.True(t, updated.ReversePickup.Enabled)
	assert.Equal(t, 1, provider.reverseCalls)

	assert.True(t, outcome.Attempted)
	assert.True(t, outcome.Scheduled)
	assert.Empty(t, outcome.Error)

	assert.Contains(t, pub.published, models.EventTypeReversePickupScheduled)
	assert.Contains(t, pub.published, models.EventTypeReturnStatusChanged)
}

func TestSetStatusProviderFailureDoesNotBlockTransition(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := approvedReturnInStore(fs, order)
	provider := &fakeProvider{
		reverseErrs: []error{models.ErrProviderUnavailable, models.ErrProviderUnavailable},
	}
	rl := newReturnLifecycle(fs, provider, &fakeLocker{}, &fakePublisher{})

	updated, outcome, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "", "", nil)
	require.NoError(t, err)

	// the status change lands even though the provider is down
	assert.Equal(t, models.ReturnStatusPickupScheduled, updated.Status)
	assert.False(t, updated.ReversePickup.Enabled)
	assert.Contains(t, updated.AdminComment, "reverse pickup creation failed")

	assert.True(t, outcome.Attempted)
	assert.False(t, outcome.Scheduled)
	assert.NotEmpty(t, outcome.Error)

	// transient failure is retried exactly once
	assert.Equal(t, 2, provider.reverseCalls)
}

func TestSetStatusReappliedPickupScheduledSkipsProvider(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := approvedReturnInStore(fs, order)
	provider := &fakeProvider{
		reverseSnap: models.Shipment{ShipmentID: "SR123", Enabled: true, Status: "NEW"},
	}
	rl := newReturnLifecycle(fs, provider, &fakeLocker{}, &fakePublisher{})

	_, _, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "", "", nil)
	require.NoError(t, err)
	require.Equal(t, 1, provider.reverseCalls)

	// re-applying pickup_scheduled must not call the provider again
	updated, outcome, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "courier confirmed", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, provider.reverseCalls)
	assert.False(t, outcome.Attempted)
	assert.Equal(t, "SR123", updated.ReversePickup.ShipmentID)
}

func TestSetStatusRetriesPickupAfterEarlierFailure(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := approvedReturnInStore(fs, order)
	provider := &fakeProvider{
		reverseSnap: models.Shipment{ShipmentID: "SR456", Enabled: true, Status: "NEW"},
		reverseErrs: []error{models.ErrProviderValidation},
	}
	rl := newReturnLifecycle(fs, provider, &fakeLocker{}, &fakePublisher{})

	_, outcome, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "", "", nil)
	require.NoError(t, err)
	require.False(t, outcome.Scheduled)
	require.Equal(t, 1, provider.reverseCalls)

	// provider failed, so no shipment was persisted; a later entry into
	// pickup_scheduled retries the provider call
	fs.returns[rr.ID].Status = models.ReturnStatusApproved

	updated, outcome, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "", "", nil)
	require.NoError(t, err)
	assert.True(t, outcome.Scheduled)
	assert.Equal(t, "SR456", updated.ReversePickup.ShipmentID)
	assert.Equal(t, 2, provider.reverseCalls)
}

func TestSetStatusAppendsAdminComment(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := &models.ReturnRequest{
		OrderID:      order.ID,
		UserID:       7,
		Reason:       "wrong size",
		Status:       models.ReturnStatusPending,
		AdminComment: "customer called support",
	}
	fs.addReturn(rr)
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	updated, _, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusApproved, "approved after photo review", "", nil)
	require.NoError(t, err)

	assert.Contains(t, updated.AdminComment, "customer called support")
	assert.Contains(t, updated.AdminComment, "approved after photo review")
}

func TestSetStatusRejectsInvalidTransition(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := approvedReturnInStore(fs, order)
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	_, _, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPending, "", "", nil)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, _, err = rl.SetStatus(context.Background(), rr.ID, "mailed_back", "", "", nil)
	assert.ErrorIs(t, err, models.ErrInvalidStatusValue)
}

func TestSetStatusRefundFields(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := &models.ReturnRequest{
		OrderID: order.ID,
		UserID:  7,
		Reason:  "wrong size",
		Status:  models.ReturnStatusPicked,
	}
	fs.addReturn(rr)
	rl := newReturnLifecycle(fs, &fakeProvider{}, &fakeLocker{}, &fakePublisher{})

	amount := int64(60000)
	updated, _, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusRefundInitiated, "", "refund", &amount)
	require.NoError(t, err)

	assert.Equal(t, models.ReturnStatusRefundInitiated, updated.Status)
	assert.Equal(t, "refund", updated.Resolution)
	require.NotNil(t, updated.RefundAmount)
	assert.Equal(t, amount, *updated.RefundAmount)
}

func TestSetStatusLockDeniedSkipsProviderCall(t *testing.T) {
	fs := newFakeStore()
	order := deliveredOrderInStore(fs, 7)
	rr := approvedReturnInStore(fs, order)
	provider := &fakeProvider{
		reverseSnap: models.Shipment{ShipmentID: "SR789", Enabled: true},
	}
	rl := newReturnLifecycle(fs, provider, &fakeLocker{denied: true}, &fakePublisher{})

	updated, outcome, err := rl.SetStatus(context.Background(), rr.ID, models.ReturnStatusPickupScheduled, "", "", nil)
	require.NoError(t, err)

	// a concurrent caller holds the lock, so this one defers to it
	assert.Equal(t, 0, provider.reverseCalls)
	assert.False(t, outcome.Attempted)
	assert.Equal(t, models.ReturnStatusPickupScheduled, updated.Status)
}
