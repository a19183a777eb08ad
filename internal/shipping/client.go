package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fulfillment-service/config"
	"fulfillment-service/internal/models"
	"fulfillment-service/internal/util"

	"go.uber.org/zap"
)

// Client talks to the external shipping provider's HTTP API. It owns the
// auth token lifecycle: acquire, cache with expiry, refresh on 401. Only one
// refresh is ever in flight; concurrent callers wait on it.
type Client struct {
	baseURL        string
	email          string
	password       string
	pickupLocation string
	timeout        time.Duration
	httpClient     *http.Client
	logger         *zap.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// Provider tokens are valid for 10 days; refresh a day early so in-flight
// requests never carry a token about to expire.
const (
	tokenLifetime   = 9 * 24 * time.Hour
	defaultTimeout  = 10 * time.Second
	trackingURLBase = "https://shiprocket.co/tracking/"
)

// NewClient creates a new shipping provider client
func NewClient(cfg config.ShippingConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		baseURL:        cfg.BaseURL,
		email:          cfg.Email,
		password:       cfg.Password,
		pickupLocation: cfg.PickupLocation,
		timeout:        timeout,
		httpClient:     &http.Client{Timeout: timeout},
		logger:         util.GetLogger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// ensureToken returns a valid bearer token, logging in when the cached one
// is missing or expired. The mutex is held across the login call so that
// exactly one refresh happens and every waiter picks up its result.
func (c *Client) ensureToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	token, err := c.login(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.tokenExpiry = time.Now().Add(tokenLifetime)
	util.ProviderAuthRefreshTotal.Inc()
	c.logger.Info("Shipping provider token refreshed",
		zap.Time("expires_at", c.tokenExpiry))
	return token, nil
}

// invalidateToken drops the cached token unless another caller already
// replaced it
func (c *Client) invalidateToken(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == stale {
		c.token = ""
	}
}

func (c *Client) login(ctx context.Context) (string, error) {
	body, err := json.Marshal(loginRequest{Email: c.email, Password: c.password})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: login request failed: %v", models.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("%w: login returned %d", models.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: login returned %d", models.ErrProviderAuth, resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return "", fmt.Errorf("%w: failed to decode login response: %v", models.ErrProviderUnavailable, err)
	}
	if lr.Token == "" {
		return "", fmt.Errorf("%w: login response carried no token", models.ErrProviderAuth)
	}
	return lr.Token, nil
}

// do performs an authenticated JSON call with one transparent re-auth on 401
func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.ensureToken(ctx)
		if err != nil {
			return err
		}

		status, err := c.doOnce(ctx, method, path, token, payload, out)
		if err != nil {
			return err
		}

		switch {
		case status == http.StatusOK || status == http.StatusCreated:
			return nil
		case status == http.StatusUnauthorized && attempt == 0:
			c.logger.Warn("Shipping provider rejected token, re-authenticating",
				zap.String("path", path))
			c.invalidateToken(token)
			continue
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return fmt.Errorf("%w: %s returned %d", models.ErrProviderAuth, path, status)
		case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
			return fmt.Errorf("%w: %s returned %d", models.ErrProviderValidation, path, status)
		default:
			return fmt.Errorf("%w: %s returned %d", models.ErrProviderUnavailable, path, status)
		}
	}
	return fmt.Errorf("%w: re-authentication loop exhausted", models.ErrProviderAuth)
}

func (c *Client) doOnce(ctx context.Context, method, path, token string, payload, out interface{}) (int, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// timeouts and network failures are both provider unavailability
		return 0, fmt.Errorf("%w: %s: %v", models.ErrProviderUnavailable, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return 0, fmt.Errorf("%w: failed to decode %s response: %v", models.ErrProviderUnavailable, path, err)
			}
		}
	} else {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	}

	return resp.StatusCode, nil
}

type shipmentItemPayload struct {
	Name         string `json:"name"`
	SKU          string `json:"sku"`
	Units        int    `json:"units"`
	SellingPrice int64  `json:"selling_price"`
}

type createShipmentPayload struct {
	OrderID        string                `json:"order_id"`
	OrderDate      string                `json:"order_date"`
	PickupLocation string                `json:"pickup_location"`
	BillingName    string                `json:"billing_customer_name"`
	BillingAddress string                `json:"billing_address"`
	BillingCity    string                `json:"billing_city"`
	BillingState   string                `json:"billing_state"`
	BillingPincode string                `json:"billing_pincode"`
	BillingCountry string                `json:"billing_country"`
	BillingEmail   string                `json:"billing_email"`
	BillingPhone   string                `json:"billing_phone"`
	PaymentMethod  string                `json:"payment_method"`
	SubTotal       int64                 `json:"sub_total"`
	OrderItems     []shipmentItemPayload `json:"order_items"`
	Reason         string                `json:"reason,omitempty"`
	Comment        string                `json:"comment,omitempty"`
}

type createShipmentResponse struct {
	OrderID    json.Number `json:"order_id"`
	ShipmentID json.Number `json:"shipment_id"`
	AWBCode    string      `json:"awb_code"`
	Status     string      `json:"status"`
}

func (r createShipmentResponse) snapshot() models.Shipment {
	status := r.Status
	if status == "" {
		status = "NEW"
	}
	sh := models.Shipment{
		ProviderOrderID: r.OrderID.String(),
		ShipmentID:      r.ShipmentID.String(),
		AWBCode:         r.AWBCode,
		Status:          status,
		Enabled:         true,
	}
	if r.AWBCode != "" {
		sh.TrackingURL = trackingURLBase + r.AWBCode
	}
	return sh
}

func (c *Client) shipmentPayload(order *models.Order, items []shipmentItemPayload) createShipmentPayload {
	return createShipmentPayload{
		OrderID:        order.Code,
		OrderDate:      order.CreatedAt.Format("2006-01-02 15:04"),
		PickupLocation: c.pickupLocation,
		BillingName:    order.CustomerName,
		BillingAddress: order.AddressLine,
		BillingCity:    order.City,
		BillingState:   order.State,
		BillingPincode: order.PostalCode,
		BillingCountry: order.Country,
		BillingEmail:   order.CustomerEmail,
		BillingPhone:   order.CustomerPhone,
		PaymentMethod:  order.PaymentType,
		SubTotal:       order.TotalAmount,
		OrderItems:     items,
	}
}

// CreateForwardShipment registers a seller-to-customer shipment for the order
func (c *Client) CreateForwardShipment(ctx context.Context, order *models.Order, items []models.OrderItem) (models.Shipment, error) {
	payloadItems := make([]shipmentItemPayload, 0, len(items))
	for _, it := range items {
		payloadItems = append(payloadItems, shipmentItemPayload{
			Name:         it.Title,
			SKU:          strconv.FormatInt(it.ProductID, 10),
			Units:        it.Quantity,
			SellingPrice: it.UnitPrice,
		})
	}

	var resp createShipmentResponse
	if err := c.do(ctx, http.MethodPost, "/orders/create/adhoc", c.shipmentPayload(order, payloadItems), &resp); err != nil {
		return models.Shipment{}, err
	}

	c.logger.Info("Forward shipment created",
		zap.String("order_code", order.Code),
		zap.String("shipment_id", resp.ShipmentID.String()))
	return resp.snapshot(), nil
}

// CreateReversePickup registers a customer-to-seller pickup for a return
// request. The item snapshot comes from the return, never the live order.
func (c *Client) CreateReversePickup(ctx context.Context, order *models.Order, items models.ReturnItems, reason, comment string) (models.Shipment, error) {
	payloadItems := make([]shipmentItemPayload, 0, len(items))
	var subTotal int64
	for _, it := range items {
		payloadItems = append(payloadItems, shipmentItemPayload{
			Name:         it.Title,
			SKU:          strconv.FormatInt(it.ProductID, 10),
			Units:        it.Quantity,
			SellingPrice: it.UnitPrice,
		})
		subTotal += it.Subtotal
	}

	payload := c.shipmentPayload(order, payloadItems)
	payload.SubTotal = subTotal
	payload.Reason = reason
	payload.Comment = comment

	var resp createShipmentResponse
	if err := c.do(ctx, http.MethodPost, "/orders/create/return", payload, &resp); err != nil {
		return models.Shipment{}, err
	}

	c.logger.Info("Reverse pickup created",
		zap.String("order_code", order.Code),
		zap.String("shipment_id", resp.ShipmentID.String()))
	return resp.snapshot(), nil
}

// TrackingResult carries the latest provider-side view of a shipment
type TrackingResult struct {
	Status      string
	AWBCode     string
	TrackingURL string
}

type trackResponse struct {
	TrackingData struct {
		ShipmentStatus string `json:"current_status"`
		AWBCode        string `json:"awb_code"`
		TrackURL       string `json:"track_url"`
	} `json:"tracking_data"`
}

// TrackShipment fetches the latest status of a shipment by provider id
func (c *Client) TrackShipment(ctx context.Context, shipmentID string) (TrackingResult, error) {
	var resp trackResponse
	if err := c.do(ctx, http.MethodGet, "/courier/track/shipment/"+shipmentID, nil, &resp); err != nil {
		return TrackingResult{}, err
	}

	return TrackingResult{
		Status:      resp.TrackingData.ShipmentStatus,
		AWBCode:     resp.TrackingData.AWBCode,
		TrackingURL: resp.TrackingData.TrackURL,
	}, nil
}
