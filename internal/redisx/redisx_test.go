package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-saga-orders/internal/orders"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestClaims(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	c := Claims{RDB: rdb}

	ok, err := c.Claim(ctx, "IDEM-1", "ORD-A", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ORD-A", mustGet(t, mr, "idem:order:create:IDEM-1"))

	ok, err = c.Claim(ctx, "IDEM-1", "ORD-B", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// only the owner may release
	require.NoError(t, c.Release(ctx, "IDEM-1", "ORD-B"))
	assert.True(t, mr.Exists("idem:order:create:IDEM-1"))
	require.NoError(t, c.Release(ctx, "IDEM-1", "ORD-A"))
	assert.False(t, mr.Exists("idem:order:create:IDEM-1"))

	_, err = c.Claim(ctx, "IDEM-2", "ORD-C", time.Minute)
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)
	ok, err = c.Claim(ctx, "IDEM-2", "ORD-D", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "expired claim can be taken")
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestStatusCache(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	c := StatusCache{RDB: rdb, TTL: time.Minute}

	_, ok, err := c.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, ok)

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, c.Put(ctx, CachedStatus{OrderID: "ORD-1", Status: orders.StatusInventoryDeducted, PaymentID: "PAY-1", UpdatedAt: t0.Add(time.Second)}))
	// older event arriving late does not overwrite
	require.NoError(t, c.Put(ctx, CachedStatus{OrderID: "ORD-1", Status: orders.StatusPaymentAuthorized, PaymentID: "PAY-1", UpdatedAt: t0}))

	got, ok, err := c.Get(ctx, "ORD-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, orders.StatusInventoryDeducted, got.Status)
	assert.Equal(t, time.Minute, mr.TTL("order_status:ORD-1"))

	require.NoError(t, c.Invalidate(ctx, "ORD-1"))
	_, ok, err = c.Get(ctx, "ORD-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFirstSeen(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)

	first, err := FirstSeen(ctx, rdb, "projector", "evt-1")
	require.NoError(t, err)
	assert.True(t, first)
	first, err = FirstSeen(ctx, rdb, "projector", "evt-1")
	require.NoError(t, err)
	assert.False(t, first)
	first, err = FirstSeen(ctx, rdb, "audit", "evt-1")
	require.NoError(t, err)
	assert.True(t, first)
}
