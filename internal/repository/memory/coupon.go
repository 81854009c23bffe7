package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
)

// CouponRepository keeps coupons keyed by ID.
type CouponRepository struct {
	mu      sync.RWMutex
	coupons map[string]domain.Coupon
}

var _ repository.CouponRepository = (*CouponRepository)(nil)

// NewCouponRepository creates an in-memory coupon repository holding seed.
func NewCouponRepository(seed ...domain.Coupon) *CouponRepository {
	r := &CouponRepository{coupons: make(map[string]domain.Coupon, len(seed))}
	for _, c := range seed {
		r.coupons[c.ID] = c
	}
	return r
}

func (r *CouponRepository) GetByCode(_ context.Context, code string) (*domain.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.coupons {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("coupon", code)
}

func (r *CouponRepository) GetByID(_ context.Context, id string) (*domain.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.coupons[id]
	if !ok {
		return nil, apperrors.NotFound("coupon", id)
	}
	return &c, nil
}

func (r *CouponRepository) List(_ context.Context) ([]domain.Coupon, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b domain.Coupon) int { return strings.Compare(a.Code, b.Code) })
	return out, nil
}

func (r *CouponRepository) Create(_ context.Context, c *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.codeTaken(c.Code, "") {
		return apperrors.AlreadyExists("coupon", "code", c.Code)
	}
	r.coupons[c.ID] = *c
	return nil
}

func (r *CouponRepository) Update(_ context.Context, c *domain.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[c.ID]; !ok {
		return apperrors.NotFound("coupon", c.ID)
	}
	if r.codeTaken(c.Code, c.ID) {
		return apperrors.AlreadyExists("coupon", "code", c.Code)
	}
	r.coupons[c.ID] = *c
	return nil
}

func (r *CouponRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.coupons[id]; !ok {
		return apperrors.NotFound("coupon", id)
	}
	delete(r.coupons, id)
	return nil
}

func (r *CouponRepository) codeTaken(code, exceptID string) bool {
	for id, c := range r.coupons {
		if id != exceptID && c.Code == code {
			return true
		}
	}
	return false
}
