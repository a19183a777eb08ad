package service

import (
	"time"

	"fulfillment-service/internal/models"
)

// DefaultReturnWindow is how long after delivery a return may be requested
const DefaultReturnWindow = 7 * 24 * time.Hour

// CheckReturnEligibility decides whether a new return request may be created
// for an order. Pure decision function, no side effects.
//
// The window is measured from the delivery timestamp; orders persisted before
// delivery tracking existed fall back to the creation timestamp.
func CheckReturnEligibility(order *models.Order, hasPendingReturn bool, now time.Time, window time.Duration) error {
	if order.Status != models.OrderStatusDelivered {
		return models.ErrOrderNotDelivered
	}

	windowStart := order.CreatedAt
	if order.DeliveredAt != nil {
		windowStart = *order.DeliveredAt
	}
	if now.Sub(windowStart) > window {
		return models.ErrReturnWindowExpired
	}

	if hasPendingReturn {
		return models.ErrDuplicatePendingReturn
	}

	return nil
}
