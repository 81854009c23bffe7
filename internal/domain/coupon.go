package domain

import (
	"strings"
	"time"
)

// CouponType is the discount kind.
type CouponType string

const (
	CouponPercent CouponType = "percent"
	CouponFixed   CouponType = "fixed"
)

// Coupon is a globally unique discount code.
type Coupon struct {
	ID           string     `json:"id" firestore:"-"`
	Code         string     `json:"code" firestore:"code" validate:"required,max=64"`
	Type         CouponType `json:"type" firestore:"type" validate:"required,oneof=percent fixed"`
	Value        float64    `json:"value" firestore:"value" validate:"gt=0"`
	MinSubtotal  float64    `json:"min_subtotal" firestore:"min_subtotal" validate:"gte=0"`
	Active       bool       `json:"active" firestore:"active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" firestore:"expires_at"`
	RequireLogin bool       `json:"require_login" firestore:"require_login"`
	CreatedAt    time.Time  `json:"created_at" firestore:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" firestore:"updated_at"`
}

// NormalizeCouponCode trims and upper-cases a code for storage and lookup.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Normalize canonicalises the code and type. An empty type means percent.
func (c *Coupon) Normalize() {
	c.Code = NormalizeCouponCode(c.Code)
	c.Type = CouponType(strings.ToLower(strings.TrimSpace(string(c.Type))))
	if c.Type == "" {
		c.Type = CouponPercent
	}
}

// Expired reports whether the coupon has an expiry strictly before now.
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// RejectionReason explains why a coupon did not apply.
type RejectionReason string

const (
	ReasonNotFound      RejectionReason = "not_found"
	ReasonInactive      RejectionReason = "inactive"
	ReasonExpired       RejectionReason = "expired"
	ReasonLoginRequired RejectionReason = "login_required"
	ReasonMinSubtotal   RejectionReason = "min_subtotal"
)

// PublicCoupon is the subset of Coupon shown to shoppers.
type PublicCoupon struct {
	ID           string     `json:"id"`
	Code         string     `json:"code"`
	Type         CouponType `json:"type"`
	Value        float64    `json:"value"`
	MinSubtotal  float64    `json:"min_subtotal"`
	RequireLogin bool       `json:"require_login"`
}

// Public strips administrative fields.
func (c *Coupon) Public() PublicCoupon {
	return PublicCoupon{
		ID:           c.ID,
		Code:         c.Code,
		Type:         c.Type,
		Value:        c.Value,
		MinSubtotal:  c.MinSubtotal,
		RequireLogin: c.RequireLogin,
	}
}

// CouponOutcome is the verdict of a validation. Exactly one of Reason or
// Coupon is set.
type CouponOutcome struct {
	Valid              bool            `json:"valid"`
	Reason             RejectionReason `json:"reason,omitempty"`
	MinSubtotal        *float64        `json:"min_subtotal,omitempty"`
	Coupon             *PublicCoupon   `json:"coupon,omitempty"`
	Discount           float64         `json:"discount"`
	TotalAfterDiscount float64         `json:"total_after_discount"`
}

// Rejected builds an invalid outcome.
func Rejected(reason RejectionReason) *CouponOutcome {
	return &CouponOutcome{Reason: reason}
}

// RejectedBelowMinimum builds the min_subtotal outcome with the threshold.
func RejectedBelowMinimum(min float64) *CouponOutcome {
	return &CouponOutcome{Reason: ReasonMinSubtotal, MinSubtotal: &min}
}
