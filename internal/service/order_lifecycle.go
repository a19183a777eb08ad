package service

import (
	"context"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/redisclient"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// orderStore is the persistence surface OrderLifecycle needs
type orderStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string, deliveredAt *time.Time) error
	SetOrderShipment(ctx context.Context, orderID int64, sh models.Shipment) (bool, error)
	UpdateOrderShipmentTracking(ctx context.Context, orderID int64, status, trackingURL string) error
}

// orderEventPublisher is the event surface OrderLifecycle needs
type orderEventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishShipmentCreated(ctx context.Context, event *models.ShipmentCreatedEvent) error
}

// trackingCache caches refresh-on-demand tracking lookups
type trackingCache interface {
	GetCachedTracking(ctx context.Context, shipmentID string) (redisclient.TrackingStatus, bool, error)
	CacheTracking(ctx context.Context, shipmentID string, ts redisclient.TrackingStatus, ttl time.Duration) error
}

// OrderLifecycle owns the order fulfillment state machine and the forward
// shipment snapshot
type OrderLifecycle struct {
	store       orderStore
	coordinator *SyncCoordinator
	cache       trackingCache
	events      orderEventPublisher
	trackingTTL time.Duration
	logger      *zap.Logger
}

// NewOrderLifecycle creates a new order lifecycle service
func NewOrderLifecycle(
	store orderStore,
	coordinator *SyncCoordinator,
	cache trackingCache,
	events orderEventPublisher,
	trackingTTL time.Duration,
) *OrderLifecycle {
	return &OrderLifecycle{
		store:       store,
		coordinator: coordinator,
		cache:       cache,
		events:      events,
		trackingTTL: trackingTTL,
		logger:      util.GetLogger(),
	}
}

// Transition validates and applies an order status change. The path is
// forward-only; cancelled is reachable only before shipment. Shipment
// creation is a separate explicit action, never a side effect of a
// transition.
func (ol *OrderLifecycle) Transition(ctx context.Context, orderID int64, newStatus string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderLifecycle.Transition")
	defer span.End()

	if !models.IsValidOrderStatus(newStatus) {
		util.OrderTransitionsRejected.WithLabelValues("invalid_status").Inc()
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidStatusValue, newStatus)
	}

	order, err := ol.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !models.CanTransitionOrder(order.Status, newStatus) {
		util.OrderTransitionsRejected.WithLabelValues("invalid_transition").Inc()
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, order.Status, newStatus)
	}

	var deliveredAt *time.Time
	if newStatus == models.OrderStatusDelivered {
		now := time.Now()
		deliveredAt = &now
	}

	if err := ol.store.UpdateOrderStatus(ctx, orderID, newStatus, deliveredAt); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.OrderTransitionsTotal.WithLabelValues(newStatus).Inc()
	ol.logger.Info("Order status changed",
		zap.Int64("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", newStatus))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OrderCode:  order.Code,
		FromStatus: order.Status,
		ToStatus:   newStatus,
	}
	if err := ol.events.PublishOrderStatusChanged(ctx, event); err != nil {
		ol.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	order.Status = newStatus
	order.DeliveredAt = deliveredAt
	return order, nil
}

// CreateShipment registers a forward shipment for the order with the
// provider. An order that already carries an enabled shipment snapshot is a
// logged no-op; provider failures surface to the caller with the order left
// unmodified.
func (ol *OrderLifecycle) CreateShipment(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderLifecycle.CreateShipment")
	defer span.End()

	order, err := ol.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Shipment.Enabled {
		ol.logger.Info("Shipment already exists, skipping creation",
			zap.Int64("order_id", orderID),
			zap.String("shipment_id", order.Shipment.ShipmentID))
		return order, nil
	}

	items, err := ol.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	snap, err := ol.coordinator.CreateForwardShipment(ctx, order, items)
	if err != nil {
		return nil, err
	}

	claimed, err := ol.store.SetOrderShipment(ctx, orderID, snap)
	if err != nil {
		return nil, fmt.Errorf("failed to persist shipment snapshot: %w", err)
	}
	if !claimed {
		// a concurrent request won the guard; its snapshot is authoritative
		ol.logger.Info("Shipment snapshot already persisted by concurrent request",
			zap.Int64("order_id", orderID))
		return ol.store.GetOrderByID(ctx, orderID)
	}

	util.ShipmentsCreatedTotal.Inc()
	ol.logger.Info("Forward shipment registered",
		zap.Int64("order_id", orderID),
		zap.String("shipment_id", snap.ShipmentID),
		zap.String("awb_code", snap.AWBCode))

	event := &models.ShipmentCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeShipmentCreated,
			Timestamp: time.Now(),
		},
		OrderID:    order.ID,
		OrderCode:  order.Code,
		ShipmentID: snap.ShipmentID,
		AWBCode:    snap.AWBCode,
	}
	if err := ol.events.PublishShipmentCreated(ctx, event); err != nil {
		ol.logger.Error("Failed to publish ShipmentCreated event", zap.Error(err))
	}

	order.Shipment = snap
	return order, nil
}

// RefreshShipment pulls the latest provider status for the order's shipment
// and merges it into the snapshot. Provider failures surface to the caller
// and leave the order unmodified. Recently fetched results are served from
// cache.
func (ol *OrderLifecycle) RefreshShipment(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderLifecycle.RefreshShipment")
	defer span.End()

	order, err := ol.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Shipment.Enabled {
		return nil, models.ErrNoShipment
	}

	if cached, hit, err := ol.cache.GetCachedTracking(ctx, order.Shipment.ShipmentID); err != nil {
		ol.logger.Warn("Tracking cache lookup failed", zap.Error(err))
	} else if hit {
		util.ShipmentRefreshTotal.WithLabelValues("cache_hit").Inc()
		order.Shipment.Status = cached.Status
		if cached.TrackingURL != "" {
			order.Shipment.TrackingURL = cached.TrackingURL
		}
		return order, nil
	}

	result, err := ol.coordinator.TrackShipment(ctx, order.Shipment.ShipmentID)
	if err != nil {
		util.ShipmentRefreshTotal.WithLabelValues("provider_error").Inc()
		return nil, err
	}

	if err := ol.store.UpdateOrderShipmentTracking(ctx, orderID, result.Status, result.TrackingURL); err != nil {
		return nil, fmt.Errorf("failed to persist tracking update: %w", err)
	}

	ts := redisclient.TrackingStatus{
		Status:      result.Status,
		AWBCode:     result.AWBCode,
		TrackingURL: result.TrackingURL,
		FetchedAt:   time.Now(),
	}
	if err := ol.cache.CacheTracking(ctx, order.Shipment.ShipmentID, ts, ol.trackingTTL); err != nil {
		ol.logger.Warn("Failed to cache tracking status", zap.Error(err))
	}

	util.ShipmentRefreshTotal.WithLabelValues("refreshed").Inc()

	order.Shipment.Status = result.Status
	if result.TrackingURL != "" {
		order.Shipment.TrackingURL = result.TrackingURL
	}
	return order, nil
}
