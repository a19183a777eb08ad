package models

import "time"

// Event types
const (
	EventTypeOrderStatusChanged     = "ORDER_STATUS_CHANGED"
	EventTypeShipmentCreated        = "SHIPMENT_CREATED"
	EventTypeReturnRequested        = "RETURN_REQUESTED"
	EventTypeReturnStatusChanged    = "RETURN_STATUS_CHANGED"
	EventTypeReversePickupScheduled = "REVERSE_PICKUP_SCHEDULED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent published when an order moves along the
// fulfillment path
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	OrderCode  string `json:"order_code"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// ShipmentCreatedEvent published when a forward shipment is registered with
// the provider
type ShipmentCreatedEvent struct {
	BaseEvent
	OrderID    int64  `json:"order_id"`
	OrderCode  string `json:"order_code"`
	ShipmentID string `json:"shipment_id"`
	AWBCode    string `json:"awb_code"`
}

// ReturnRequestedEvent published when a customer opens a return request
type ReturnRequestedEvent struct {
	BaseEvent
	ReturnID int64  `json:"return_id"`
	OrderID  int64  `json:"order_id"`
	UserID   int64  `json:"user_id"`
	Reason   string `json:"reason"`
}

// ReturnStatusChangedEvent published on every admin-driven return transition
type ReturnStatusChangedEvent struct {
	BaseEvent
	ReturnID   int64  `json:"return_id"`
	OrderID    int64  `json:"order_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// ReversePickupScheduledEvent published when a reverse pickup is registered
// with the provider
type ReversePickupScheduledEvent struct {
	BaseEvent
	ReturnID   int64  `json:"return_id"`
	OrderID    int64  `json:"order_id"`
	ShipmentID string `json:"shipment_id"`
	AWBCode    string `json:"awb_code"`
}
