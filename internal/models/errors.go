package models

import "errors"

// Validation errors: surfaced immediately, nothing persisted
var (
	ErrInvalidStatusValue = errors.New("invalid status value")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrMissingField       = errors.New("missing required field")
	ErrOrderNotFound      = errors.New("order not found")
	ErrNoShipment         = errors.New("order has no shipment to refresh")
	ErrReturnNotFound     = errors.New("return request not found")
	ErrForbidden          = errors.New("operation requires admin privilege")
)

// Policy errors: the return request is rejected, no entity created
var (
	ErrOrderNotDelivered      = errors.New("order has not been delivered")
	ErrReturnWindowExpired    = errors.New("return window has expired")
	ErrDuplicatePendingReturn = errors.New("a pending return request already exists for this order")
)

// Provider errors: classified outcomes of shipping provider calls
var (
	ErrProviderAuth        = errors.New("shipping provider authentication failed")
	ErrProviderValidation  = errors.New("shipping provider rejected the payload")
	ErrProviderUnavailable = errors.New("shipping provider unavailable")
)

// IsProviderError reports whether err belongs to the provider taxonomy
func IsProviderError(err error) bool {
	return errors.Is(err, ErrProviderAuth) ||
		errors.Is(err, ErrProviderValidation) ||
		errors.Is(err, ErrProviderUnavailable)
}
