package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

// Claims reserves idempotency keys across API replicas with SET NX.
type Claims struct{ RDB redis.Cmdable }

func (c Claims) Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return c.RDB.SetNX(ctx, fmt.Sprintf(KeyIdemOrderCreate, key), owner, ttl).Result()
}

// hapus hanya kalau masih milik owner yg sama
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (c Claims) Release(ctx context.Context, key, owner string) error {
	return releaseScript.Run(ctx, c.RDB, []string{fmt.Sprintf(KeyIdemOrderCreate, key)}, owner).Err()
}

type CachedStatus struct {
	OrderID       string        `json:"order_id"`
	Status        orders.Status `json:"status"`
	PaymentID     string        `json:"payment_id,omitempty"`
	FailureReason string        `json:"failure_reason,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// StatusCache is the read-through cache behind GET /orders/{id}.
type StatusCache struct {
	RDB redis.Cmdable
	TTL time.Duration
}

func (c StatusCache) Get(ctx context.Context, orderID string) (CachedStatus, bool, error) {
	raw, err := c.RDB.Get(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedStatus{}, false, nil
	}
	if err != nil {
		return CachedStatus{}, false, err
	}
	var s CachedStatus
	if err := json.Unmarshal(raw, &s); err != nil {
		return CachedStatus{}, false, fmt.Errorf("decode cached status: %w", err)
	}
	return s, true, nil
}

// Put stores s unless the cache already holds a newer update for the order.
func (c StatusCache) Put(ctx context.Context, s CachedStatus) error {
	if cur, ok, err := c.Get(ctx, s.OrderID); err == nil && ok && cur.UpdatedAt.After(s.UpdatedAt) {
		return nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = TTLStatusCache
	}
	return c.RDB.Set(ctx, fmt.Sprintf(KeyOrderStatus, s.OrderID), b, ttl).Err()
}

func (c StatusCache) Invalidate(ctx context.Context, orderID string) error {
	return c.RDB.Del(ctx, fmt.Sprintf(KeyOrderStatus, orderID)).Err()
}

// FirstSeen marks (consumer, eventID) as processed and reports whether this
// is the first delivery.
func FirstSeen(ctx context.Context, rdb redis.Cmdable, consumer, eventID string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, consumer, eventID), 1, TTLDedup).Result()
}

// Forget drops the dedup mark so a redelivery is processed again.
func Forget(ctx context.Context, rdb redis.Cmdable, consumer, eventID string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, consumer, eventID)).Err()
}
