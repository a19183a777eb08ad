package service

import (
	"context"
	"fmt"

	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// intakeStore is the persistence surface OrderIntake needs
type intakeStore interface {
	CreateOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// OrderIntake is the narrow hook the checkout collaborator calls to register
// orders. Line items arrive as snapshots; live product data is never re-read.
type OrderIntake struct {
	store  intakeStore
	logger *zap.Logger
}

// NewOrderIntake creates a new order intake service
func NewOrderIntake(store intakeStore) *OrderIntake {
	return &OrderIntake{
		store:  store,
		logger: util.GetLogger(),
	}
}

// CreateOrderIntakeRequest is the checkout collaborator's order payload
type CreateOrderIntakeRequest struct {
	UserID        int64               `json:"user_id" binding:"required"`
	CustomerName  string              `json:"customer_name" binding:"required"`
	CustomerEmail string              `json:"customer_email" binding:"required"`
	CustomerPhone string              `json:"customer_phone" binding:"required"`
	AddressLine   string              `json:"address_line" binding:"required"`
	City          string              `json:"city" binding:"required"`
	State         string              `json:"state" binding:"required"`
	PostalCode    string              `json:"postal_code" binding:"required"`
	Country       string              `json:"country" binding:"required"`
	PaymentRef    string              `json:"payment_ref"`
	PaymentType   string              `json:"payment_type"`
	Items         []IntakeItemRequest `json:"items" binding:"required,min=1"`
}

// IntakeItemRequest is one line item snapshot in an intake payload
type IntakeItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Title     string `json:"title" binding:"required"`
	ImageURL  string `json:"image_url"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
	UnitPrice int64  `json:"unit_price" binding:"required,min=0"`
}

// CreateOrder registers a new order. The order code is generated exactly
// once, before the first insert, and never changes afterwards.
func (oi *OrderIntake) CreateOrder(ctx context.Context, req *CreateOrderIntakeRequest) (*models.Order, []models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "OrderIntake.CreateOrder")
	defer span.End()

	items := make([]models.OrderItem, 0, len(req.Items))
	var total int64
	for _, it := range req.Items {
		subtotal := it.UnitPrice * int64(it.Quantity)
		items = append(items, models.OrderItem{
			ProductID: it.ProductID,
			Title:     it.Title,
			ImageURL:  it.ImageURL,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  subtotal,
		})
		total += subtotal
	}

	order := &models.Order{
		Code:          models.GenerateOrderCode(),
		UserID:        req.UserID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		AddressLine:   req.AddressLine,
		City:          req.City,
		State:         req.State,
		PostalCode:    req.PostalCode,
		Country:       req.Country,
		TotalAmount:   total,
		PaymentRef:    req.PaymentRef,
		PaymentType:   req.PaymentType,
		Status:        models.OrderStatusPending,
	}

	if err := oi.store.CreateOrder(ctx, order, items); err != nil {
		return nil, nil, fmt.Errorf("failed to create order: %w", err)
	}

	oi.logger.Info("Order registered",
		zap.Int64("order_id", order.ID),
		zap.String("code", order.Code),
		zap.Int64("total_amount", total))
	return order, items, nil
}

// GetOrder retrieves an order and its item snapshots
func (oi *OrderIntake) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := oi.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := oi.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}
