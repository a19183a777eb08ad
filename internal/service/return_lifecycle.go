package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/store"
	"fulfillment-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// returnStore is the persistence surface ReturnLifecycle needs
type returnStore interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	CreateReturnRequest(ctx context.Context, rr *models.ReturnRequest) error
	GetReturnByID(ctx context.Context, id int64) (*models.ReturnRequest, error)
	ListReturns(ctx context.Context, filter store.ReturnFilter) ([]models.ReturnRequest, error)
	HasPendingReturn(ctx context.Context, orderID, userID int64) (bool, error)
	UpdateReturnStatus(ctx context.Context, id int64, status, adminComment, resolution string, refundAmount *int64) error
	SetReversePickup(ctx context.Context, id int64, sh models.Shipment) (bool, error)
}

// returnEventPublisher is the event surface ReturnLifecycle needs
type returnEventPublisher interface {
	PublishReturnRequested(ctx context.Context, event *models.ReturnRequestedEvent) error
	PublishReturnStatusChanged(ctx context.Context, event *models.ReturnStatusChangedEvent) error
	PublishReversePickupScheduled(ctx context.Context, event *models.ReversePickupScheduledEvent) error
}

// pickupLocker narrows the window in which two concurrent status updates
// could both reach the provider; the store's conditional update stays the
// authoritative guard
type pickupLocker interface {
	AcquirePickupLock(ctx context.Context, returnID int64, ttl time.Duration) (bool, error)
	ReleasePickupLock(ctx context.Context, returnID int64) error
}

// ShippingOutcome reports the shipping side effect of a return status update
// separately from the primary operation, which always gets a definitive
// success or failure of its own.
type ShippingOutcome struct {
	Attempted bool   `json:"attempted"`
	Scheduled bool   `json:"scheduled"`
	Error     string `json:"error,omitempty"`
}

// ReturnLifecycle owns the return request state machine and the single
// trigger point for reverse pickup creation
type ReturnLifecycle struct {
	store        returnStore
	coordinator  *SyncCoordinator
	locker       pickupLocker
	events       returnEventPublisher
	returnWindow time.Duration
	logger       *zap.Logger
}

const pickupLockTTL = 30 * time.Second

// NewReturnLifecycle creates a new return lifecycle service
func NewReturnLifecycle(
	store returnStore,
	coordinator *SyncCoordinator,
	locker pickupLocker,
	events returnEventPublisher,
	returnWindow time.Duration,
) *ReturnLifecycle {
	if returnWindow <= 0 {
		returnWindow = DefaultReturnWindow
	}
	return &ReturnLifecycle{
		store:        store,
		coordinator:  coordinator,
		locker:       locker,
		events:       events,
		returnWindow: returnWindow,
		logger:       util.GetLogger(),
	}
}

// CreateReturnRequest opens a return request for a delivered order. The item
// snapshot is copied from the order at this instant and never recomputed.
func (rl *ReturnLifecycle) CreateReturnRequest(ctx context.Context, userID, orderID int64, reason, description string) (*models.ReturnRequest, error) {
	ctx, span := util.StartSpan(ctx, "ReturnLifecycle.CreateReturnRequest")
	defer span.End()

	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason", models.ErrMissingField)
	}

	order, err := rl.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	hasPending, err := rl.store.HasPendingReturn(ctx, orderID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending returns: %w", err)
	}

	if err := CheckReturnEligibility(order, hasPending, time.Now(), rl.returnWindow); err != nil {
		util.ReturnsRejectedTotal.WithLabelValues(rejectionReason(err)).Inc()
		return nil, err
	}

	items, err := rl.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	rr := &models.ReturnRequest{
		OrderID:     orderID,
		UserID:      userID,
		Items:       models.SnapshotReturnItems(items),
		Reason:      reason,
		Description: description,
		Status:      models.ReturnStatusPending,
	}

	if err := rl.store.CreateReturnRequest(ctx, rr); err != nil {
		return nil, fmt.Errorf("failed to create return request: %w", err)
	}

	util.ReturnsRequestedTotal.Inc()
	rl.logger.Info("Return request created",
		zap.Int64("return_id", rr.ID),
		zap.Int64("order_id", orderID),
		zap.Int64("user_id", userID))

	event := &models.ReturnRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnRequested,
			Timestamp: time.Now(),
		},
		ReturnID: rr.ID,
		OrderID:  orderID,
		UserID:   userID,
		Reason:   reason,
	}
	if err := rl.events.PublishReturnRequested(ctx, event); err != nil {
		rl.logger.Error("Failed to publish ReturnRequested event", zap.Error(err))
	}

	return rr, nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, models.ErrOrderNotDelivered):
		return "not_delivered"
	case errors.Is(err, models.ErrReturnWindowExpired):
		return "window_expired"
	case errors.Is(err, models.ErrDuplicatePendingReturn):
		return "duplicate_pending"
	default:
		return "other"
	}
}

// ListReturnRequests retrieves return requests: admins see everything that
// matches the filter, other users only their own requests
func (rl *ReturnLifecycle) ListReturnRequests(ctx context.Context, userID int64, isAdmin bool, status string, orderID *int64) ([]models.ReturnRequest, error) {
	filter := store.ReturnFilter{
		OrderID: orderID,
		Status:  status,
	}
	if !isAdmin {
		filter.UserID = &userID
	}
	return rl.store.ListReturns(ctx, filter)
}

// SetStatus validates and applies a return status transition. Field updates
// always persist. Entering pickup_scheduled from another state triggers
// reverse pickup creation, guarded so it happens at most once per return; a
// provider failure there never blocks the status change and is reported in
// the shipping outcome instead.
func (rl *ReturnLifecycle) SetStatus(ctx context.Context, returnID int64, newStatus, adminComment, resolution string, refundAmount *int64) (*models.ReturnRequest, ShippingOutcome, error) {
	ctx, span := util.StartSpan(ctx, "ReturnLifecycle.SetStatus")
	defer span.End()

	var outcome ShippingOutcome

	if !models.IsValidReturnStatus(newStatus) {
		return nil, outcome, fmt.Errorf("%w: %q", models.ErrInvalidStatusValue, newStatus)
	}

	rr, err := rl.store.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, outcome, err
	}

	if !models.CanTransitionReturn(rr.Status, newStatus) {
		return nil, outcome, fmt.Errorf("%w: %s -> %s", models.ErrInvalidTransition, rr.Status, newStatus)
	}

	comment := appendComment(rr.AdminComment, adminComment)

	if newStatus == models.ReturnStatusPickupScheduled && rr.Status != models.ReturnStatusPickupScheduled {
		outcome = rl.scheduleReversePickup(ctx, rr, &comment)
	}

	if err := rl.store.UpdateReturnStatus(ctx, returnID, newStatus, comment, resolution, refundAmount); err != nil {
		return nil, outcome, fmt.Errorf("failed to update return status: %w", err)
	}

	util.ReturnTransitionsTotal.WithLabelValues(newStatus).Inc()
	rl.logger.Info("Return status changed",
		zap.Int64("return_id", returnID),
		zap.String("from", rr.Status),
		zap.String("to", newStatus))

	event := &models.ReturnStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReturnStatusChanged,
			Timestamp: time.Now(),
		},
		ReturnID:   returnID,
		OrderID:    rr.OrderID,
		FromStatus: rr.Status,
		ToStatus:   newStatus,
	}
	if err := rl.events.PublishReturnStatusChanged(ctx, event); err != nil {
		rl.logger.Error("Failed to publish ReturnStatusChanged event", zap.Error(err))
	}

	updated, err := rl.store.GetReturnByID(ctx, returnID)
	if err != nil {
		return nil, outcome, err
	}
	return updated, outcome, nil
}

// scheduleReversePickup attempts reverse pickup creation for the transition
// into pickup_scheduled. It never returns an error: provider failures are
// recorded on the comment and in the outcome so the status change proceeds.
func (rl *ReturnLifecycle) scheduleReversePickup(ctx context.Context, rr *models.ReturnRequest, comment *string) ShippingOutcome {
	var outcome ShippingOutcome

	if rr.ReversePickup.Enabled {
		util.ReversePickupSkippedTotal.Inc()
		rl.logger.Info("Reverse pickup already exists, skipping creation",
			zap.Int64("return_id", rr.ID),
			zap.String("shipment_id", rr.ReversePickup.ShipmentID))
		outcome.Scheduled = true
		return outcome
	}

	if locked, err := rl.locker.AcquirePickupLock(ctx, rr.ID, pickupLockTTL); err != nil {
		// the conditional update below still guards correctness
		rl.logger.Warn("Pickup lock unavailable, relying on store guard", zap.Error(err))
	} else if !locked {
		util.ReversePickupSkippedTotal.Inc()
		rl.logger.Info("Reverse pickup creation already in flight",
			zap.Int64("return_id", rr.ID))
		return outcome
	} else {
		defer func() {
			if err := rl.locker.ReleasePickupLock(ctx, rr.ID); err != nil {
				rl.logger.Warn("Failed to release pickup lock", zap.Error(err))
			}
		}()
	}

	outcome.Attempted = true

	order, err := rl.store.GetOrderByID(ctx, rr.OrderID)
	if err != nil {
		outcome.Error = err.Error()
		*comment = appendComment(*comment, fmt.Sprintf("reverse pickup not created: %v", err))
		return outcome
	}

	snap, err := rl.coordinator.CreateReversePickup(ctx, order, rr.Items, rr.Reason, rr.Description)
	if err != nil {
		util.ReversePickupFailuresTotal.WithLabelValues(providerErrorKind(err)).Inc()
		rl.logger.Error("Reverse pickup creation failed, status change proceeds",
			zap.Int64("return_id", rr.ID),
			zap.Error(err))
		outcome.Error = err.Error()
		*comment = appendComment(*comment,
			fmt.Sprintf("reverse pickup creation failed at %s: %v", time.Now().Format(time.RFC3339), err))
		return outcome
	}

	claimed, err := rl.store.SetReversePickup(ctx, rr.ID, snap)
	if err != nil {
		outcome.Error = err.Error()
		*comment = appendComment(*comment, fmt.Sprintf("reverse pickup not persisted: %v", err))
		return outcome
	}
	if !claimed {
		// a concurrent update won the guard; its shipment is authoritative
		util.ReversePickupSkippedTotal.Inc()
		rl.logger.Info("Reverse pickup already persisted by concurrent update",
			zap.Int64("return_id", rr.ID))
		outcome.Scheduled = true
		return outcome
	}

	util.ReversePickupsCreatedTotal.Inc()
	rl.logger.Info("Reverse pickup registered",
		zap.Int64("return_id", rr.ID),
		zap.String("shipment_id", snap.ShipmentID),
		zap.String("awb_code", snap.AWBCode))

	event := &models.ReversePickupScheduledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeReversePickupScheduled,
			Timestamp: time.Now(),
		},
		ReturnID:   rr.ID,
		OrderID:    rr.OrderID,
		ShipmentID: snap.ShipmentID,
		AWBCode:    snap.AWBCode,
	}
	if err := rl.events.PublishReversePickupScheduled(ctx, event); err != nil {
		rl.logger.Error("Failed to publish ReversePickupScheduled event", zap.Error(err))
	}

	outcome.Scheduled = true
	return outcome
}

func providerErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrProviderAuth):
		return "auth"
	case errors.Is(err, models.ErrProviderValidation):
		return "validation"
	case errors.Is(err, models.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

// appendComment appends a note to an existing admin comment without
// overwriting earlier content
func appendComment(existing, note string) string {
	note = strings.TrimSpace(note)
	if note == "" {
		return existing
	}
	if existing == "" {
		return note
	}
	return existing + "\n" + note
}
