package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/uaidecants/storefront/internal/domain"
	"github.com/uaidecants/storefront/internal/event"
	"github.com/uaidecants/storefront/internal/identity"
	"github.com/uaidecants/storefront/internal/repository"
	apperrors "github.com/uaidecants/storefront/pkg/errors"
	"github.com/uaidecants/storefront/pkg/validator"
)

var hundred = decimal.NewFromInt(100)

// CouponService evaluates coupon eligibility and manages the coupon
// collection for admins.
type CouponService struct {
	repo     repository.CouponRepository
	verifier identity.Verifier
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCouponService creates a new coupon service. verifier may be nil, in
// which case every caller is anonymous.
func NewCouponService(
	repo repository.CouponRepository,
	verifier identity.Verifier,
	producer *event.Producer,
	logger *slog.Logger,
) *CouponService {
	return &CouponService{
		repo:     repo,
		verifier: verifier,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// --- Input types ---

// ValidateCouponInput holds the parameters for a coupon check.
type ValidateCouponInput struct {
	Code        string
	Subtotal    float64
	BearerToken string
}

// CreateCouponInput holds the parameters for creating a coupon. A nil
// Active means active.
type CreateCouponInput struct {
	Code         string            `json:"code"`
	Type         domain.CouponType `json:"type"`
	Value        float64           `json:"value"`
	MinSubtotal  float64           `json:"min_subtotal"`
	Active       *bool             `json:"active"`
	ExpiresAt    *time.Time        `json:"expires_at"`
	RequireLogin bool              `json:"require_login"`
}

// UpdateCouponInput holds the fields to change on a coupon. Nil fields are
// left untouched; ClearExpiry removes an expiry date.
type UpdateCouponInput struct {
	Code         *string            `json:"code"`
	Type         *domain.CouponType `json:"type"`
	Value        *float64           `json:"value"`
	MinSubtotal  *float64           `json:"min_subtotal"`
	Active       *bool              `json:"active"`
	ExpiresAt    *time.Time         `json:"expires_at"`
	ClearExpiry  bool               `json:"clear_expiry"`
	RequireLogin *bool              `json:"require_login"`
}

// --- Evaluation ---

// Validate decides whether a code applies to a subtotal. Checks run in a
// fixed order and the first failure is the reported reason. The caller's
// token is only verified when the coupon requires login; a token that does
// not verify counts as anonymous.
func (s *CouponService) Validate(ctx context.Context, input ValidateCouponInput) (*domain.CouponOutcome, error) {
	code := domain.NormalizeCouponCode(input.Code)
	if code == "" {
		return nil, apperrors.InvalidInput("coupon code is required")
	}
	if math.IsNaN(input.Subtotal) || math.IsInf(input.Subtotal, 0) || input.Subtotal < 0 {
		return nil, apperrors.InvalidInput("subtotal must be a finite non-negative number")
	}

	coupon, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.Rejected(domain.ReasonNotFound), nil
		}
		return nil, fmt.Errorf("get coupon by code: %w", err)
	}

	switch {
	case !coupon.Active:
		return domain.Rejected(domain.ReasonInactive), nil
	case coupon.Expired(s.now()):
		return domain.Rejected(domain.ReasonExpired), nil
	case coupon.RequireLogin && !s.identified(ctx, input.BearerToken):
		return domain.Rejected(domain.ReasonLoginRequired), nil
	case input.Subtotal < coupon.MinSubtotal:
		return domain.RejectedBelowMinimum(coupon.MinSubtotal), nil
	}

	discount, total := applyDiscount(coupon, input.Subtotal)
	public := coupon.Public()
	return &domain.CouponOutcome{
		Valid:              true,
		Coupon:             &public,
		Discount:           discount,
		TotalAfterDiscount: total,
	}, nil
}

func (s *CouponService) identified(ctx context.Context, token string) bool {
	if token == "" || s.verifier == nil {
		return false
	}
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		s.logger.DebugContext(ctx, "coupon caller treated as anonymous",
			slog.String("error", err.Error()),
		)
		return false
	}
	return claims != nil && claims.CustomerID != ""
}

// applyDiscount returns the discount clamped to [0, subtotal] and the
// remaining total. Amounts are not rounded; presentation is left to callers.
func applyDiscount(c *domain.Coupon, subtotal float64) (discount, total float64) {
	sub := decimal.NewFromFloat(subtotal)
	value := decimal.NewFromFloat(c.Value)

	var d decimal.Decimal
	switch c.Type {
	case domain.CouponFixed:
		d = value
	default:
		d = sub.Mul(value).Div(hundred)
	}

	if d.IsNegative() {
		d = decimal.Zero
	}
	if d.GreaterThan(sub) {
		d = sub
	}
	return d.InexactFloat64(), sub.Sub(d).InexactFloat64()
}

// --- Administration ---

// List returns every coupon.
func (s *CouponService) List(ctx context.Context) ([]domain.Coupon, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

// Create normalizes, validates and stores a new coupon.
func (s *CouponService) Create(ctx context.Context, input CreateCouponInput) (*domain.Coupon, error) {
	now := s.now().UTC()
	coupon := &domain.Coupon{
		ID:           uuid.NewString(),
		Code:         input.Code,
		Type:         input.Type,
		Value:        input.Value,
		MinSubtotal:  input.MinSubtotal,
		Active:       input.Active == nil || *input.Active,
		ExpiresAt:    input.ExpiresAt,
		RequireLogin: input.RequireLogin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	coupon.Normalize()
	if err := validator.Validate(coupon); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, fmt.Errorf("create coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon created",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
	)

	if err := s.producer.PublishCouponCreated(ctx, coupon); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon created event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
	}

	return coupon, nil
}

// Update applies input to an existing coupon and revalidates the result.
func (s *CouponService) Update(ctx context.Context, id string, input UpdateCouponInput) (*domain.Coupon, error) {
	coupon, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get coupon: %w", err)
	}

	if input.Code != nil {
		coupon.Code = *input.Code
	}
	if input.Type != nil {
		coupon.Type = *input.Type
	}
	if input.Value != nil {
		coupon.Value = *input.Value
	}
	if input.MinSubtotal != nil {
		coupon.MinSubtotal = *input.MinSubtotal
	}
	if input.Active != nil {
		coupon.Active = *input.Active
	}
	if input.RequireLogin != nil {
		coupon.RequireLogin = *input.RequireLogin
	}
	switch {
	case input.ClearExpiry:
		coupon.ExpiresAt = nil
	case input.ExpiresAt != nil:
		coupon.ExpiresAt = input.ExpiresAt
	}

	coupon.Normalize()
	if err := validator.Validate(coupon); err != nil {
		return nil, err
	}
	coupon.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, fmt.Errorf("update coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon updated",
		slog.String("coupon_id", coupon.ID),
		slog.String("code", coupon.Code),
	)

	if err := s.producer.PublishCouponUpdated(ctx, coupon); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon updated event",
			slog.String("coupon_id", coupon.ID),
			slog.String("error", err.Error()),
		)
	}

	return coupon, nil
}

// Delete removes a coupon.
func (s *CouponService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}

	s.logger.InfoContext(ctx, "coupon deleted", slog.String("coupon_id", id))

	if err := s.producer.PublishCouponDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish coupon deleted event",
			slog.String("coupon_id", id),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
