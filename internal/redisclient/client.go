package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// TrackingStatus is the cached refresh-on-demand view of a shipment
type TrackingStatus struct {
	Status      string    `json:"status"`
	AWBCode     string    `json:"awb_code"`
	TrackingURL string    `json:"tracking_url"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// CacheTracking stores the provider tracking result for a shipment with a TTL
func (c *Client) CacheTracking(ctx context.Context, shipmentID string, ts TrackingStatus, ttl time.Duration) error {
	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("failed to marshal tracking status: %w", err)
	}
	return c.rdb.Set(ctx, fmt.Sprintf("tracking:%s", shipmentID), data, ttl).Err()
}

// GetCachedTracking retrieves a cached tracking result; the bool reports a hit
func (c *Client) GetCachedTracking(ctx context.Context, shipmentID string) (TrackingStatus, bool, error) {
	var ts TrackingStatus

	data, err := c.rdb.Get(ctx, fmt.Sprintf("tracking:%s", shipmentID)).Bytes()
	if err == redis.Nil {
		return ts, false, nil
	}
	if err != nil {
		return ts, false, err
	}

	if err := json.Unmarshal(data, &ts); err != nil {
		return ts, false, fmt.Errorf("failed to unmarshal tracking status: %w", err)
	}
	return ts, true, nil
}

// AcquirePickupLock takes a short-lived lock around reverse pickup creation
// for one return request. The store's conditional update stays the
// authoritative guard; the lock only narrows the duplicate-call window.
func (c *Client) AcquirePickupLock(ctx context.Context, returnID int64, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("lock:return_pickup:%d", returnID), "1", ttl).Result()
}

// ReleasePickupLock releases the reverse pickup lock
func (c *Client) ReleasePickupLock(ctx context.Context, returnID int64) error {
	return c.rdb.Del(ctx, fmt.Sprintf("lock:return_pickup:%d", returnID)).Err()
}
