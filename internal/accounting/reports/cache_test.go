package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, ttl), mr
}

func TestCacheRoundTrip(t *testing.T) {
	c, _ := testCache(t, time.Minute)
	ctx := context.Background()

	stored := TrialBalance{TotalDebit: 100, TotalCredit: 100, IsBalanced: true}
	c.Set(ctx, "reports:tb", stored)

	var got TrialBalance
	require.True(t, c.Get(ctx, "reports:tb", &got))
	assert.Equal(t, stored, got)
}

func TestCacheMiss(t *testing.T) {
	c, _ := testCache(t, time.Minute)

	var got TrialBalance
	assert.False(t, c.Get(context.Background(), "reports:absent", &got))
}

func TestCacheExpires(t *testing.T) {
	c, mr := testCache(t, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "reports:tb", TrialBalance{IsBalanced: true})
	mr.FastForward(2 * time.Minute)

	var got TrialBalance
	assert.False(t, c.Get(ctx, "reports:tb", &got))
}

func TestNilCacheIsNoOp(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	c.Set(ctx, "reports:tb", TrialBalance{})
	var got TrialBalance
	assert.False(t, c.Get(ctx, "reports:tb", &got))
}
