package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

// CartRepository keeps carts without expiry. It backs the cart store when
// Redis is disabled.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string]domain.Cart
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string]domain.Cart)}
}

func (r *CartRepository) Get(_ context.Context, customerID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[customerID]
	if !ok {
		return nil, apperrors.NotFound("cart", customerID)
	}
	c.Items = slices.Clone(c.Items)
	return &c, nil
}

func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *cart
	c.Items = slices.Clone(cart.Items)
	r.carts[cart.CustomerID] = c
	return nil
}
