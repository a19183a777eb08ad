package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/shipping"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// ShippingProvider is the adapter surface the lifecycles orchestrate against
type ShippingProvider interface {
	CreateForwardShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (models.Shipment, error)
	CreateReversePickup(ctx context.Context, order *models.Order, items models.ReturnItems, reason, comment string) (models.Shipment, error)
	TrackShipment(ctx context.Context, shipmentID string) (shipping.TrackingResult, error)
}

// SyncCoordinator wraps shipping provider calls so that failure handling is
// written once: a single retry on transient unavailability after a fixed
// short backoff, latency metrics, and a span per call. Auth and validation
// failures are never retried.
type SyncCoordinator struct {
	provider ShippingProvider
	backoff  time.Duration
	logger   *zap.Logger
}

const defaultRetryBackoff = 500 * time.Millisecond

// NewSyncCoordinator creates a new sync coordinator
func NewSyncCoordinator(provider ShippingProvider) *SyncCoordinator {
	return &SyncCoordinator{
		provider: provider,
		backoff:  defaultRetryBackoff,
		logger:   util.GetLogger(),
	}
}

// CreateForwardShipment registers a forward shipment, retrying once on a
// transient failure
func (sc *SyncCoordinator) CreateForwardShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (models.Shipment, error) {
	var snap models.Shipment
	err := sc.withRetry(ctx, "create_forward_shipment", func(ctx context.Context) error {
		var err error
		snap, err = sc.provider.CreateForwardShipment(ctx, order, items)
		return err
	})
	return snap, err
}

// CreateReversePickup registers a reverse pickup, retrying once on a
// transient failure
func (sc *SyncCoordinator) CreateReversePickup(ctx context.Context, order *models.Order, items models.ReturnItems, reason, comment string) (models.Shipment, error) {
	var snap models.Shipment
	err := sc.withRetry(ctx, "create_reverse_pickup", func(ctx context.Context) error {
		var err error
		snap, err = sc.provider.CreateReversePickup(ctx, order, items, reason, comment)
		return err
	})
	return snap, err
}

// TrackShipment fetches the latest shipment status, retrying once on a
// transient failure
func (sc *SyncCoordinator) TrackShipment(ctx context.Context, shipmentID string) (shipping.TrackingResult, error) {
	var result shipping.TrackingResult
	err := sc.withRetry(ctx, "track_shipment", func(ctx context.Context) error {
		var err error
		result, err = sc.provider.TrackShipment(ctx, shipmentID)
		return err
	})
	return result, err
}

func (sc *SyncCoordinator) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	ctx, span := util.StartSpan(ctx, "SyncCoordinator."+operation)
	defer span.End()

	start := time.Now()
	defer func() {
		util.ProviderRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}()

	err := fn(ctx)
	if err == nil || !errors.Is(err, models.ErrProviderUnavailable) {
		return err
	}

	util.ProviderRetriesTotal.WithLabelValues(operation).Inc()
	sc.logger.Warn("Transient shipping provider failure, retrying once",
		zap.String("operation", operation),
		zap.Error(err))

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", models.ErrProviderUnavailable, ctx.Err())
	case <-time.After(sc.backoff):
	}

	return fn(ctx)
}
