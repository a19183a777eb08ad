package models

// Order fulfillment statuses
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirm    = "confirm"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// orderStatusRank orders the forward fulfillment path. Higher rank is further
// along; cancelled sits outside the path.
var orderStatusRank = map[string]int{
	OrderStatusPending:    0,
	OrderStatusConfirm:    1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

// IsValidOrderStatus reports whether s is a known order status
func IsValidOrderStatus(s string) bool {
	if s == OrderStatusCancelled {
		return true
	}
	_, ok := orderStatusRank[s]
	return ok
}

// CanTransitionOrder reports whether an order may move from one status to
// another. The path is strictly forward (jumps ahead are allowed, moving
// backward never is) and cancelled is reachable only before shipment.
func CanTransitionOrder(from, to string) bool {
	if from == OrderStatusCancelled || from == OrderStatusDelivered {
		return false
	}
	if to == OrderStatusCancelled {
		switch from {
		case OrderStatusPending, OrderStatusConfirm, OrderStatusProcessing:
			return true
		}
		return false
	}
	fromRank, ok := orderStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := orderStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Return request statuses
const (
	ReturnStatusPending         = "pending"
	ReturnStatusApproved        = "approved"
	ReturnStatusRejected        = "rejected"
	ReturnStatusPickupScheduled = "pickup_scheduled"
	ReturnStatusPicked          = "picked"
	ReturnStatusRefundInitiated = "refund_initiated"
	ReturnStatusRefundCompleted = "refund_completed"
	ReturnStatusClosed          = "closed"
)

var returnStatusRank = map[string]int{
	ReturnStatusPending:         0,
	ReturnStatusApproved:        1,
	ReturnStatusPickupScheduled: 2,
	ReturnStatusPicked:          3,
	ReturnStatusRefundInitiated: 4,
	ReturnStatusRefundCompleted: 5,
	ReturnStatusClosed:          6,
}

// IsValidReturnStatus reports whether s is a known return status
func IsValidReturnStatus(s string) bool {
	if s == ReturnStatusRejected {
		return true
	}
	_, ok := returnStatusRank[s]
	return ok
}

// IsTerminalReturnStatus reports whether a return admits no further transitions
func IsTerminalReturnStatus(s string) bool {
	return s == ReturnStatusRejected || s == ReturnStatusClosed
}

// CanTransitionReturn reports whether a return request may move from one
// status to another. The main chain is forward-only, rejected is reachable
// from pending only, and closed is always reachable from any non-terminal
// state as an administrative override.
// Re-applying the current status is allowed so admins can amend comments or
// refund fields without moving the state.
func CanTransitionReturn(from, to string) bool {
	if IsTerminalReturnStatus(from) {
		return false
	}
	if from == to {
		return true
	}
	if to == ReturnStatusClosed {
		return true
	}
	if to == ReturnStatusRejected {
		return from == ReturnStatusPending
	}
	fromRank, ok := returnStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := returnStatusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}
