package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// CachedOracle wraps a primary Oracle with a Redis read-through cache.
// Reads check Redis first and fall back to the primary, populating the
// cache on a miss. Cache failures degrade to the primary, never to an
// order failure of their own.
type CachedOracle struct {
	primary Oracle
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedOracle creates a cached wrapper around a primary oracle.
func NewCachedOracle(primary Oracle, rdb *redis.Client, ttl time.Duration) *CachedOracle {
	return &CachedOracle{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// CurrentPrice returns the cached quote when present, otherwise asks the
// primary and caches the result for the configured TTL.
func (o *CachedOracle) CurrentPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if raw, err := o.rdb.Get(ctx, quoteKey(symbol)).Result(); err == nil {
		if price, perr := decimal.NewFromString(raw); perr == nil && price.IsPositive() {
			return price, nil
		}
	}

	price, err := o.primary.CurrentPrice(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}

	o.rdb.Set(ctx, quoteKey(symbol), price.String(), o.ttl)
	return price, nil
}

// Invalidate drops the cached quote for a symbol, forcing the next read
// through to the primary.
func (o *CachedOracle) Invalidate(ctx context.Context, symbol string) {
	o.rdb.Del(ctx, quoteKey(symbol))
}

func quoteKey(symbol string) string { return fmt.Sprintf("quote:%s", symbol) }
