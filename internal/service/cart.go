package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/validator"
)

// maxCartItems bounds one saved cart.
const maxCartItems = 50

// CartService stores one cart per customer.
type CartService struct {
	repo   repository.CartRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(repo repository.CartRepository, logger *slog.Logger) *CartService {
	return &CartService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the customer's cart, or an empty one when nothing is saved.
func (s *CartService) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	cart, err := s.repo.Get(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &domain.Cart{CustomerID: customerID, Items: []domain.CartItem{}}, nil
		}
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// Replace overwrites the customer's cart with items.
func (s *CartService) Replace(ctx context.Context, customerID string, items []domain.CartItem) (*domain.Cart, error) {
	if len(items) > maxCartItems {
		return nil, apperrors.LimitExceeded("cart items", maxCartItems)
	}

	cleaned := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		item.Volume = strings.TrimSpace(item.Volume)
		if err := validator.Validate(item); err != nil {
			return nil, err
		}
		cleaned = append(cleaned, item)
	}

	cart := &domain.Cart{
		CustomerID: customerID,
		Items:      cleaned,
		UpdatedAt:  s.now(),
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart saved",
		slog.String("customer_id", customerID),
		slog.Int("items", len(cleaned)),
	)
	return cart, nil
}
