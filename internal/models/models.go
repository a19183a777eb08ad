package models

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"time"
)

// Order represents a customer order moving through fulfillment
type Order struct {
	ID            int64      `db:"id" json:"id"`
	Code          string     `db:"code" json:"code"`
	UserID        int64      `db:"user_id" json:"user_id"`
	CustomerName  string     `db:"customer_name" json:"customer_name"`
	CustomerEmail string     `db:"customer_email" json:"customer_email"`
	CustomerPhone string     `db:"customer_phone" json:"customer_phone"`
	AddressLine   string     `db:"address_line" json:"address_line"`
	City          string     `db:"city" json:"city"`
	State         string     `db:"state" json:"state"`
	PostalCode    string     `db:"postal_code" json:"postal_code"`
	Country       string     `db:"country" json:"country"`
	TotalAmount   int64      `db:"total_amount" json:"total_amount"`
	PaymentRef    string     `db:"payment_ref" json:"payment_ref,omitempty"`
	PaymentType   string     `db:"payment_type" json:"payment_type,omitempty"`
	Status        string     `db:"status" json:"status"`
	Shipment      Shipment   `db:"shipment" json:"shipment"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
	DeliveredAt   *time.Time `db:"delivered_at" json:"delivered_at,omitempty"`
}

// OrderItem is a line item snapshot taken at checkout time
type OrderItem struct {
	ID        int64  `db:"id" json:"id"`
	OrderID   int64  `db:"order_id" json:"order_id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Title     string `db:"title" json:"title"`
	ImageURL  string `db:"image_url" json:"image_url,omitempty"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	Subtotal  int64  `db:"subtotal" json:"subtotal"`
}

// Shipment is the denormalized provider snapshot stored on an order or a
// return request. Enabled is the idempotency guard: once true the shipment
// is never re-created for the same entity.
type Shipment struct {
	ProviderOrderID string `db:"provider_order_id" json:"provider_order_id,omitempty"`
	ShipmentID      string `db:"shipment_id" json:"shipment_id,omitempty"`
	AWBCode         string `db:"awb_code" json:"awb_code,omitempty"`
	TrackingURL     string `db:"tracking_url" json:"tracking_url,omitempty"`
	Status          string `db:"status" json:"status,omitempty"`
	Enabled         bool   `db:"enabled" json:"enabled"`
}

// ReturnRequest represents a customer's request to return items from one order
type ReturnRequest struct {
	ID            int64       `db:"id" json:"id"`
	OrderID       int64       `db:"order_id" json:"order_id"`
	UserID        int64       `db:"user_id" json:"user_id"`
	Items         ReturnItems `db:"items" json:"items"`
	Reason        string      `db:"reason" json:"reason"`
	Description   string      `db:"description" json:"description,omitempty"`
	Resolution    string      `db:"resolution" json:"resolution,omitempty"`
	AdminComment  string      `db:"admin_comment" json:"admin_comment,omitempty"`
	RefundAmount  *int64      `db:"refund_amount" json:"refund_amount,omitempty"`
	Status        string      `db:"status" json:"status"`
	ReversePickup Shipment    `db:"reverse_pickup" json:"reverse_pickup"`
	RequestedAt   time.Time   `db:"requested_at" json:"requested_at"`
	UpdatedAt     time.Time   `db:"updated_at" json:"updated_at"`
}

// ReturnItem is one returned line item, copied from the order at request time.
// The snapshot is authoritative even if the order is edited afterwards.
type ReturnItem struct {
	ProductID int64  `json:"product_id"`
	Title     string `json:"title"`
	ImageURL  string `json:"image_url,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Subtotal  int64  `json:"subtotal"`
}

// ReturnItems is the JSONB-backed item snapshot of a return request
type ReturnItems []ReturnItem

// Value implements driver.Valuer for JSONB storage
func (ri ReturnItems) Value() (driver.Value, error) {
	if ri == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(ri)
}

// Scan implements sql.Scanner for JSONB storage
func (ri *ReturnItems) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, ri)
	case string:
		return json.Unmarshal([]byte(v), ri)
	case nil:
		*ri = nil
		return nil
	default:
		return fmt.Errorf("unsupported type for ReturnItems: %T", src)
	}
}

// SnapshotReturnItems copies order line items into a return snapshot
func SnapshotReturnItems(items []OrderItem) ReturnItems {
	snapshot := make(ReturnItems, 0, len(items))
	for _, it := range items {
		snapshot = append(snapshot, ReturnItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	return snapshot
}

// OrderCodePrefix is the fixed prefix of externally visible order codes
const OrderCodePrefix = "ORD-"

const orderCodeDigits = 10

// GenerateOrderCode builds a human-readable order code: fixed prefix plus a
// random numeric suffix. Assigned once before first persistence, immutable.
func GenerateOrderCode() string {
	limit := big.NewInt(1)
	for i := 0; i < orderCodeDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		n = big.NewInt(time.Now().UnixNano() % 1e10)
	}
	return fmt.Sprintf("%s%0*d", OrderCodePrefix, orderCodeDigits, n)
}

// AuditEvent is an append-only record of a consumed fulfillment event
type AuditEvent struct {
	ID         int64     `db:"id" json:"id"`
	EventID    string    `db:"event_id" json:"event_id"`
	EventType  string    `db:"event_type" json:"event_type"`
	EntityKind string    `db:"entity_kind" json:"entity_kind"`
	EntityID   int64     `db:"entity_id" json:"entity_id"`
	Payload    []byte    `db:"payload" json:"payload,omitempty"`
	RecordedAt time.Time `db:"recorded_at" json:"recorded_at"`
}
