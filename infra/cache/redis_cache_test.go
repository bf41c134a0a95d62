package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mbobook/domain/market"
	"mbobook/domain/mbo"
	"mbobook/domain/orderbook"
)

type memClient struct {
	values    map[string]string
	ttls      map[string]time.Duration
	published []string
}

func newMemClient() *memClient {
	return &memClient{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memClient) Set(_ context.Context, key string, value any, exp time.Duration) *redis.StatusCmd {
	m.values[key] = string(value.([]byte))
	m.ttls[key] = exp
	return redis.NewStatusResult("OK", nil)
}

func (m *memClient) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *memClient) Publish(_ context.Context, channel string, message any) *redis.IntCmd {
	m.published = append(m.published, channel+":"+string(message.([]byte)))
	return redis.NewIntResult(1, nil)
}

func (m *memClient) Close() error { return nil }

func TestQuoteRoundTrip(t *testing.T) {
	mem := newMemClient()
	c := &QuoteCache{client: mem, ttl: time.Minute}
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	assert.False(t, ok)

	q := market.Quote{
		InstrumentID: 7,
		Symbol:       "ESZ5",
		TsRecv:       42,
		Bid:          orderbook.PriceLevel{Price: 99 * mbo.PriceScale, Size: 10, Count: 2},
		Ask:          orderbook.EmptyLevel,
	}
	require.NoError(t, c.Put(ctx, q))

	got, ok, err := c.Get(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, q, got)
	assert.True(t, got.Ask.Empty())

	assert.Equal(t, time.Minute, mem.ttls["quote:7"])
	require.Len(t, mem.published, 1)
	assert.Contains(t, mem.published[0], QuoteChannel+":")
}
