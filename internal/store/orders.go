package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"fulfillment-service/internal/models"
)

const orderColumns = `
	id, code, user_id, customer_name, customer_email, customer_phone,
	address_line, city, state, postal_code, country,
	total_amount, payment_ref, payment_type, status,
	shipment_provider_order_id AS "shipment.provider_order_id",
	shipment_id AS "shipment.shipment_id",
	shipment_awb_code AS "shipment.awb_code",
	shipment_tracking_url AS "shipment.tracking_url",
	shipment_status AS "shipment.status",
	shipment_enabled AS "shipment.enabled",
	created_at, updated_at, delivered_at`

// CreateOrder creates a new order together with its item snapshots.
// The order code must be assigned by the caller before the first insert.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (
			code, user_id, customer_name, customer_email, customer_phone,
			address_line, city, state, postal_code, country,
			total_amount, payment_ref, payment_type, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at`

	row := tx.QueryRowxContext(ctx, query,
		order.Code, order.UserID, order.CustomerName, order.CustomerEmail, order.CustomerPhone,
		order.AddressLine, order.City, order.State, order.PostalCode, order.Country,
		order.TotalAmount, order.PaymentRef, order.PaymentType, order.Status)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err := tx.QueryRowxContext(ctx, `
			INSERT INTO order_items (order_id, product_id, title, image_url, quantity, unit_price, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].Title, items[i].ImageURL,
			items[i].Quantity, items[i].UnitPrice, items[i].Subtotal,
		).Scan(&items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByCode retrieves an order by its external order code
func (s *Store) GetOrderByCode(ctx context.Context, code string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE code = $1", code)
	if err == sql.ErrNoRows {
		return nil, models.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItems retrieves the line item snapshots of an order
func (s *Store) GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1 ORDER BY id", orderID)
	return items, err
}

// UpdateOrderStatus updates the fulfillment status. deliveredAt is set only
// when the order enters the delivered state.
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, status string, deliveredAt *time.Time) error {
	var err error
	if deliveredAt != nil {
		_, err = s.db.ExecContext(ctx,
			"UPDATE orders SET status = $1, delivered_at = $2, updated_at = NOW() WHERE id = $3",
			status, *deliveredAt, orderID)
	} else {
		_, err = s.db.ExecContext(ctx,
			"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
			status, orderID)
	}
	return err
}

// SetOrderShipment stores the forward shipment snapshot, but only when no
// enabled snapshot exists yet. Returns false when the guard was already set
// by a concurrent writer.
func (s *Store) SetOrderShipment(ctx context.Context, orderID int64, sh models.Shipment) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			shipment_provider_order_id = $1,
			shipment_id = $2,
			shipment_awb_code = $3,
			shipment_tracking_url = $4,
			shipment_status = $5,
			shipment_enabled = TRUE,
			updated_at = NOW()
		WHERE id = $6 AND shipment_enabled IS NOT TRUE`,
		sh.ProviderOrderID, sh.ShipmentID, sh.AWBCode, sh.TrackingURL, sh.Status, orderID)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpdateOrderShipmentTracking merges refreshed tracking fields into an
// already-enabled shipment snapshot
func (s *Store) UpdateOrderShipmentTracking(ctx context.Context, orderID int64, status, trackingURL string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders SET
			shipment_status = $1,
			shipment_tracking_url = COALESCE(NULLIF($2, ''), shipment_tracking_url),
			updated_at = NOW()
		WHERE id = $3 AND shipment_enabled IS TRUE`,
		status, trackingURL, orderID)
	return err
}
