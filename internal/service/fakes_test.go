package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/shipping"
	"fulfillment-service/internal/store"
)

// fakeProvider is a shipping provider test double with call counting and
// scriptable error queues
type fakeProvider struct {
	forwardCalls int
	reverseCalls int
	trackCalls   int

	forwardSnap models.Shipment
	forwardErrs []error

	reverseSnap models.Shipment
	reverseErrs []error

	trackResult shipping.TrackingResult
	trackErrs   []error
}

func popErr(q *[]error) error {
	if len(*q) == 0 {
		return nil
	}
	err := (*q)[0]
	*q = (*q)[1:]
	return err
}

func (f *fakeProvider) CreateForwardShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (models.Shipment, error) {
	f.forwardCalls++
	if err := popErr(&f.forwardErrs); err != nil {
		return models.Shipment{}, err
	}
	return f.forwardSnap, nil
}

func (f *fakeProvider) CreateReversePickup(ctx context.Context, order *models.Order, items models.ReturnItems, reason, comment string) (models.Shipment, error) {
	f.reverseCalls++
	if err := popErr(&f.reverseErrs); err != nil {
		return models.Shipment{}, err
	}
	return f.reverseSnap, nil
}

func (f *fakeProvider) TrackShipment(ctx context.Context, shipmentID string) (shipping.TrackingResult, error) {
	f.trackCalls++
	if err := popErr(&f.trackErrs); err != nil {
		return shipping.TrackingResult{}, err
	}
	return f.trackResult, nil
}

// fastCoordinator builds a coordinator whose retry backoff will not slow
// tests down
func fastCoordinator(provider ShippingProvider) *SyncCoordinator {
	sc := NewSyncCoordinator(provider)
	sc.backoff = time.Millisecond
	return sc
}

// fakeStore is an in-memory store double covering the order, return and
// intake surfaces
type fakeStore struct {
	orders  map[int64]*models.Order
	items   map[int64][]models.OrderItem
	returns map[int64]*models.ReturnRequest

	nextOrderID  int64
	nextReturnID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[int64]*models.Order),
		items:   make(map[int64][]models.OrderItem),
		returns: make(map[int64]*models.ReturnRequest),
	}
}

func (f *fakeStore) addOrder(order *models.Order, items []models.OrderItem) {
	if order.ID == 0 {
		f.nextOrderID++
		order.ID = f.nextOrderID
	}
	f.orders[order.ID] = order
	f.items[order.ID] = items
}

func (f *fakeStore) addReturn(rr *models.ReturnRequest) {
	if rr.ID == 0 {
		f.nextReturnID++
		rr.ID = f.nextReturnID
	}
	f.returns[rr.ID] = rr
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	f.addOrder(order, items)
	return nil
}

func (f *fakeStore) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, models.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeStore) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeStore) UpdateOrderStatus(ctx context.Context, orderID int64, status string, deliveredAt *time.Time) error {
	order, ok := f.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	order.Status = status
	if deliveredAt != nil {
		order.DeliveredAt = deliveredAt
	}
	return nil
}

func (f *fakeStore) SetOrderShipment(ctx context.Context, orderID int64, sh models.Shipment) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, models.ErrOrderNotFound
	}
	if order.Shipment.Enabled {
		return false, nil
	}
	order.Shipment = sh
	return true, nil
}

func (f *fakeStore) UpdateOrderShipmentTracking(ctx context.Context, orderID int64, status, trackingURL string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return models.ErrOrderNotFound
	}
	order.Shipment.Status = status
	if trackingURL != "" {
		order.Shipment.TrackingURL = trackingURL
	}
	return nil
}

func (f *fakeStore) CreateReturnRequest(ctx context.Context, rr *models.ReturnRequest) error {
	now := time.Now()
	rr.RequestedAt = now
	rr.UpdatedAt = now
	f.addReturn(rr)
	return nil
}

func (f *fakeStore) GetReturnByID(ctx context.Context, id int64) (*models.ReturnRequest, error) {
	rr, ok := f.returns[id]
	if !ok {
		return nil, models.ErrReturnNotFound
	}
	copied := *rr
	return &copied, nil
}

func (f *fakeStore) ListReturns(ctx context.Context, filter store.ReturnFilter) ([]models.ReturnRequest, error) {
	var out []models.ReturnRequest
	for _, rr := range f.returns {
		if filter.UserID != nil && rr.UserID != *filter.UserID {
			continue
		}
		if filter.OrderID != nil && rr.OrderID != *filter.OrderID {
			continue
		}
		if filter.Status != "" && rr.Status != filter.Status {
			continue
		}
		out = append(out, *rr)
	}
	return out, nil
}

func (f *fakeStore) HasPendingReturn(ctx context.Context, orderID, userID int64) (bool, error) {
	for _, rr := range f.returns {
		if rr.OrderID == orderID && rr.UserID == userID && rr.Status == models.ReturnStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) UpdateReturnStatus(ctx context.Context, id int64, status, adminComment, resolution string, refundAmount *int64) error {
	rr, ok := f.returns[id]
	if !ok {
		return models.ErrReturnNotFound
	}
	rr.Status = status
	rr.AdminComment = adminComment
	if resolution != "" {
		rr.Resolution = resolution
	}
	if refundAmount != nil {
		rr.RefundAmount = refundAmount
	}
	rr.UpdatedAt = time.Now()
	return nil
}

func (f *fakeStore) SetReversePickup(ctx context.Context, id int64, sh models.Shipment) (bool, error) {
	rr, ok := f.returns[id]
	if !ok {
		return false, fmt.Errorf("return not found: %d", id)
	}
	if rr.ReversePickup.Enabled {
		return false, nil
	}
	rr.ReversePickup = sh
	return true, nil
}

// fakePublisher records the event types it saw
type fakePublisher struct {
	published []string
}

func (f *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	f.published = append(f.published, event.EventType)
	return nil
}

func (f *fakePublisher) PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) error {
	f.published = append(f.published, event.EventType)
	return nil
}

func (f *fakePublisher) PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error {
	f.published = append(f.published, event.EventType)
	return nil
}

func (f *fakePublisher) PublishReturnStatusChanged(ctx context.Context, event *models.ReturnStatusChangedEvent) error {
	f.published = append(f.published, event.EventType)
	return nil
}

func (f *fakePublisher) PublishReversePickupScheduled(ctx context.Context, event *models.ReversePickupScheduledEvent) error {
	f.published = append(f.published, event.EventType)
	return nil
}

// fakeLocker always grants the pickup lock unless told otherwise
type fakeLocker struct {
	denied bool
}

func (f *fakeLocker) AcquirePickupLock(ctx context.Context, returnID int64, ttl time.Duration) (bool, error) {
	return !f.denied, nil
}

func (f *fakeLocker) ReleasePickupLock(ctx context.Context, returnID int64) error {
	return nil
}

// fakeCache is an in-memory tracking cache
type fakeCache struct {
	entries map[string]redisclient.TrackingStatus
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]redisclient.TrackingStatus)}
}

func (f *fakeCache) GetCachedTracking(ctx context.Context, shipmentID string) (redisclient.TrackingStatus, bool, error) {
	ts, ok := f.entries[shipmentID]
	return ts, ok, nil
}

func (f *fakeCache) CacheTracking(ctx context.Context, shipmentID string, ts redisclient.TrackingStatus, ttl time.Duration) error {
	f.entries[shipmentID] = ts
	return nil
}
