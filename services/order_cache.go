package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"payment-service/models"

	"github.com/redis/go-redis/v9"
)

const (
	orderCachePrefix  = "payment:order:"
	orderIntentPrefix = "payment:order-intent:"
)

// OrderForgetter drops a cached order once it has been paid, so the next
// purchase of the same plan gets a fresh gateway order.
type OrderForgetter interface {
	Forget(ctx context.Context, orderID string) error
}

// OrderCache remembers recently created orders so a retried checkout intent
// gets the same gateway order back instead of a duplicate.
type OrderCache interface {
	OrderForgetter
	Get(ctx context.Context, key string) (*models.OrderResult, bool, error)
	Set(ctx context.Context, key string, order *models.OrderResult, ttl time.Duration) error
}

// orderIntentKey identifies a checkout intent by who is buying what for how
// much. Receipts and timestamps are not part of it; the idempotency window
// is the TTL of the entry.
func orderIntentKey(req *models.OrderRequest) string {
	raw := fmt.Sprintf("%s|%s|%s|%s", req.UserID, req.PlanID, req.Amount.String(), req.Currency)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RedisOrderCache stores order results as JSON strings with a TTL.
type RedisOrderCache struct {
	client *redis.Client
}

// NewRedisOrderCache wraps an existing Redis client.
func NewRedisOrderCache(client *redis.Client) *RedisOrderCache {
	return &RedisOrderCache{client: client}
}

// Get returns the cached order for key; a miss is (nil, false, nil).
func (c *RedisOrderCache) Get(ctx context.Context, key string) (*models.OrderResult, bool, error) {
	val, err := c.client.Get(ctx, orderCachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var order models.OrderResult
	if err := json.Unmarshal([]byte(val), &order); err != nil {
		return nil, false, fmt.Errorf("decode cached order: %w", err)
	}
	return &order, true, nil
}

// Set stores order under key for ttl, indexed by order id for Forget.
func (c *RedisOrderCache) Set(ctx context.Context, key string, order *models.OrderResult, ttl time.Duration) error {
	b, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("encode order: %w", err)
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, orderCachePrefix+key, b, ttl)
		pipe.Set(ctx, orderIntentPrefix+order.OrderID, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Forget removes the cached order with the given gateway order id. Unknown
// ids are not an error.
func (c *RedisOrderCache) Forget(ctx context.Context, orderID string) error {
	key, err := c.client.Get(ctx, orderIntentPrefix+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis get: %w", err)
	}
	if err := c.client.Del(ctx, orderCachePrefix+key, orderIntentPrefix+orderID).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
