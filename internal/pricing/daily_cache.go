// Package pricing maps transaction tokens to USD values at transaction time.
package pricing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/wallet-taxscan/internal/logging"
)

// dailyPriceKeyPrefix namespaces cache keys in a shared Redis instance
const dailyPriceKeyPrefix = "taxscan:solprice:"

// DailyPriceCache caches the native currency's daily USD price keyed by date
// (YYYY-MM-DD). Entries are append-only within their lifetime: a date's
// closing price never changes, so there is no invalidation, only a TTL to
// bound growth. The in-memory layer always applies; Redis is an optional
// second layer shared across processes.
type DailyPriceCache struct {
	mu     sync.Mutex
	memory map[string]decimal.Decimal
	redis  *redis.Client
	ttl    time.Duration
}

// NewDailyPriceCache creates a daily price cache. The Redis client may be nil
// for memory-only operation.
func NewDailyPriceCache(client *redis.Client, ttl time.Duration) *DailyPriceCache {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &DailyPriceCache{
		memory: make(map[string]decimal.Decimal),
		redis:  client,
		ttl:    ttl,
	}
}

// DateKey formats a timestamp into the cache's date key
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Get returns the cached price for a date, if present
func (c *DailyPriceCache) Get(ctx context.Context, date time.Time) (decimal.Decimal, bool) {
	key := DateKey(date)

	c.mu.Lock()
	price, ok := c.memory[key]
	c.mu.Unlock()
	if ok {
		return price, true
	}

	if c.redis == nil {
		return decimal.Zero, false
	}

	raw, err := c.redis.Get(ctx, dailyPriceKeyPrefix+key).Result()
	if err != nil {
		if err != redis.Nil {
			logging.FromContext(ctx).WithError(err).Warn("Redis price cache read failed")
		}
		return decimal.Zero, false
	}

	price, err = decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}

	// Promote to the memory layer for the rest of the run.
	c.mu.Lock()
	c.memory[key] = price
	c.mu.Unlock()

	return price, true
}

// Put stores the price for a date in both layers
func (c *DailyPriceCache) Put(ctx context.Context, date time.Time, price decimal.Decimal) {
	key := DateKey(date)

	c.mu.Lock()
	c.memory[key] = price
	c.mu.Unlock()

	if c.redis == nil {
		return
	}

	if err := c.redis.Set(ctx, dailyPriceKeyPrefix+key, price.String(), c.ttl).Err(); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Redis price cache write failed")
	}
}

// Len returns the number of entries in the memory layer
func (c *DailyPriceCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.memory)
}

// NewRedisClient builds a Redis client from host/port settings
func NewRedisClient(host, port, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       db,
	})
}
