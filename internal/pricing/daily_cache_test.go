package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func TestDailyPriceCache_MemoryOnly(t *testing.T) {
	cache := NewDailyPriceCache(nil, time.Hour)
	ctx := context.Background()

	_, ok := cache.Get(ctx, testDate)
	assert.False(t, ok)

	price := decimal.NewFromFloat(142.55)
	cache.Put(ctx, testDate, price)

	got, ok := cache.Get(ctx, testDate)
	require.True(t, ok)
	assert.True(t, got.Equal(price))
	assert.Equal(t, 1, cache.Len())

	// Same calendar day, different clock time, hits the same entry.
	later := testDate.Add(5 * time.Hour)
	got, ok = cache.Get(ctx, later)
	require.True(t, ok)
	assert.True(t, got.Equal(price))
}

func TestDailyPriceCache_RedisBacked(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cache := NewDailyPriceCache(client, time.Hour)
	ctx := context.Background()

	price := decimal.NewFromFloat(99.5)
	cache.Put(ctx, testDate, price)

	// A second cache over the same Redis sees the entry and promotes it.
	other := NewDailyPriceCache(client, time.Hour)
	got, ok := other.Get(ctx, testDate)
	require.True(t, ok)
	assert.True(t, got.Equal(price))
	assert.Equal(t, 1, other.Len())
}

func TestDailyPriceCache_RedisExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cache := NewDailyPriceCache(client, time.Minute)
	ctx := context.Background()
	cache.Put(ctx, testDate, decimal.NewFromInt(100))

	mr.FastForward(2 * time.Minute)

	// Redis entry expired; a fresh cache finds nothing.
	fresh := NewDailyPriceCache(client, time.Minute)
	_, ok := fresh.Get(ctx, testDate)
	assert.False(t, ok)
}

func TestDailyPriceCache_RedisDownDegradesGracefully(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewDailyPriceCache(client, time.Hour)
	ctx := context.Background()

	mr.Close()

	// Writes and reads fall through to the memory layer without error.
	price := decimal.NewFromInt(77)
	cache.Put(ctx, testDate, price)
	got, ok := cache.Get(ctx, testDate)
	require.True(t, ok)
	assert.True(t, got.Equal(price))
}

func TestDateKey_UTCNormalization(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	late := time.Date(2024, 3, 15, 23, 0, 0, 0, est)

	// 23:00 EST is already March 16 in UTC.
	assert.Equal(t, "2024-03-16", DateKey(late))
}
