package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	"github.com/uaidecants/storefront/pkg/database"
)

const quoteKeyPrefix = "shipping:quotes:"

// QuoteCache implements repository.QuoteCache on Redis strings with a fixed
// TTL.
type QuoteCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ repository.QuoteCache = (*QuoteCache)(nil)

// NewQuoteCache creates a quote cache whose entries live for ttl.
func NewQuoteCache(client redis.Cmdable, ttl time.Duration) *QuoteCache {
	return &QuoteCache{client: client, ttl: ttl}
}

// Get returns the cached quotes for key.
func (c *QuoteCache) Get(ctx context.Context, key string) (_ []domain.ShippingQuote, _ bool, err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "quotes.get", "GET "+quoteKeyPrefix+"*")
	defer func() { done(err) }()

	data, err := c.client.Get(ctx, quoteKeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get quotes: %w", err)
	}

	var quotes []domain.ShippingQuote
	if err := json.Unmarshal(data, &quotes); err != nil {
		return nil, false, fmt.Errorf("unmarshal quotes: %w", err)
	}
	return quotes, true, nil
}

// Set stores quotes under key. An empty slice is cached too: it records a
// provider that answered with no services for this route.
func (c *QuoteCache) Set(ctx context.Context, key string, quotes []domain.ShippingQuote) (err error) {
	ctx, done := database.TraceQuery(ctx, dbSystem, "quotes.set", "SET "+quoteKeyPrefix+"*")
	defer func() { done(err) }()

	if quotes == nil {
		quotes = []domain.ShippingQuote{}
	}
	data, err := json.Marshal(quotes)
	if err != nil {
		return fmt.Errorf("marshal quotes: %w", err)
	}
	if err := c.client.Set(ctx, quoteKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set quotes: %w", err)
	}
	return nil
}
