package cache

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"mbobook/domain/market"
)

// QuoteChannel is where every stored quote is also published.
const QuoteChannel = "quotes"

type client interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
	Close() error
}

// QuoteCache keeps the latest aggregated quote per instrument.
type QuoteCache struct {
	client client
	ttl    time.Duration
}

func NewQuoteCache(addr, password string, db int, ttl time.Duration) *QuoteCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &QuoteCache{client: rdb, ttl: ttl}
}

func key(instrument uint32) string { return "quote:" + strconv.FormatUint(uint64(instrument), 10) }

func (c *QuoteCache) Put(ctx context.Context, q market.Quote) error {
	b, err := json.Marshal(q)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, key(q.InstrumentID), b, c.ttl).Err(); err != nil {
		return errors.Wrapf(err, "cache quote %d", q.InstrumentID)
	}
	return errors.Wrap(c.client.Publish(ctx, QuoteChannel, b).Err(), "publish quote")
}

// Get returns the cached quote; ok is false when none is stored.
func (c *QuoteCache) Get(ctx context.Context, instrument uint32) (q market.Quote, ok bool, err error) {
	b, err := c.client.Get(ctx, key(instrument)).Bytes()
	if errors.Is(err, redis.Nil) {
		return q, false, nil
	}
	if err != nil {
		return q, false, errors.Wrapf(err, "cached quote %d", instrument)
	}
	if err := json.Unmarshal(b, &q); err != nil {
		return q, false, err
	}
	return q, true, nil
}

func (c *QuoteCache) Close() error {
	return c.client.Close()
}
