package store

import (
	"context"
	"database/sql"
	"fmt"

	"fulfillment-service/internal/models"
)

const returnColumns = `
	id, order_id, user_id, items, reason, description, resolution,
	admin_comment, refund_amount, status,
	reverse_pickup_provider_order_id AS "reverse_pickup.provider_order_id",
	reverse_pickup_shipment_id AS "reverse_pickup.shipment_id",
	reverse_pickup_awb_code AS "reverse_pickup.awb_code",
	reverse_pickup_tracking_url AS "reverse_pickup.tracking_url",
	reverse_pickup_status AS "reverse_pickup.status",
	reverse_pickup_enabled AS "reverse_pickup.enabled",
	requested_at, updated_at`

// CreateReturnRequest inserts a new return request with its item snapshot
func (s *Store) CreateReturnRequest(ctx context.Context, rr *models.ReturnRequest) error {
	query := `
		INSERT INTO return_requests (order_id, user_id, items, reason, description, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, requested_at, updated_at`

	row := s.db.QueryRowxContext(ctx, query,
		rr.OrderID, rr.UserID, rr.Items, rr.Reason, rr.Description, rr.Status)
	if err := row.Scan(&rr.ID, &rr.RequestedAt, &rr.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert return request: %w", err)
	}
	return nil
}

// GetReturnByID retrieves a return request by ID
func (s *Store) GetReturnByID(ctx context.Context, id int64) (*models.ReturnRequest, error) {
	var rr models.ReturnRequest
	err := s.db.GetContext(ctx, &rr,
		"SELECT "+returnColumns+" FROM return_requests WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrReturnNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rr, nil
}

// ReturnFilter narrows ListReturns results
type ReturnFilter struct {
	UserID  *int64
	OrderID *int64
	Status  string
}

// ListReturns retrieves return requests matching the filter, newest first
func (s *Store) ListReturns(ctx context.Context, filter ReturnFilter) ([]models.ReturnRequest, error) {
	query := "SELECT " + returnColumns + " FROM return_requests WHERE 1=1"
	args := []interface{}{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		query += fmt.Sprintf(" AND user_id = $%d", len(args))
	}
	if filter.OrderID != nil {
		args = append(args, *filter.OrderID)
		query += fmt.Sprintf(" AND order_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY requested_at DESC"

	var returns []models.ReturnRequest
	err := s.db.SelectContext(ctx, &returns, query, args...)
	return returns, err
}

// HasPendingReturn reports whether a pending return already exists for the
// given order and user
func (s *Store) HasPendingReturn(ctx context.Context, orderID, userID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM return_requests
			WHERE order_id = $1 AND user_id = $2 AND status = $3
		)`, orderID, userID, models.ReturnStatusPending)
	return exists, err
}

// UpdateReturnStatus applies the status plus optional admin fields. The
// admin comment is the full new value; callers are responsible for appending
// to existing content.
func (s *Store) UpdateReturnStatus(ctx context.Context, id int64, status, adminComment, resolution string, refundAmount *int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE return_requests SET
			status = $1,
			admin_comment = $2,
			resolution = COALESCE(NULLIF($3, ''), resolution),
			refund_amount = COALESCE($4, refund_amount),
			updated_at = NOW()
		WHERE id = $5`,
		status, adminComment, resolution, refundAmount, id)
	return err
}

// SetReversePickup stores the reverse pickup snapshot behind the idempotency
// guard: the conditional update succeeds only while no enabled snapshot
// exists. Returns false when a concurrent writer already claimed the guard.
func (s *Store) SetReversePickup(ctx context.Context, id int64, sh models.Shipment) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE return_requests SET
			reverse_pickup_provider_order_id = $1,
			reverse_pickup_shipment_id = $2,
			reverse_pickup_awb_code = $3,
			reverse_pickup_tracking_url = $4,
			reverse_pickup_status = $5,
			reverse_pickup_enabled = TRUE,
			updated_at = NOW()
		WHERE id = $6 AND reverse_pickup_enabled IS NOT TRUE`,
		sh.ProviderOrderID, sh.ShipmentID, sh.AWBCode, sh.TrackingURL, sh.Status, id)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
