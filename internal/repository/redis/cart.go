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
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

const (
	dbSystem      = "redis"
	cartKeyPrefix = "cart:"
)

// CartRepository implements repository.CartRepository using Redis. Every
// save refreshes the TTL, so only idle carts expire.
type CartRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates a new Redis-backed cart repository.
func NewCartRepository(client redis.Cmdable, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

// Get retrieves a customer's cart.
func (r *CartRepository) Get(ctx context.Context, customerID string) (_ *domain.Cart, err error) {
	key := cartKeyPrefix + customerID

	ctx, done := database.TraceQuery(ctx, dbSystem, "cart.get", "GET "+cartKeyPrefix+"*")
	defer func() { done(err) }()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", customerID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("unmarshal cart: %w", err)
	}
	return &cart, nil
}

// Save stores the cart with the configured TTL.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) (err error) {
	key := cartKeyPrefix + cart.CustomerID

	ctx, done := database.TraceQuery(ctx, dbSystem, "cart.save", "SET "+cartKeyPrefix+"*")
	defer func() { done(err) }()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}

	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}
