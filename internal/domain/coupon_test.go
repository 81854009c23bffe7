package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uaidecants/storefront/pkg/validator"
)

func TestCoupon_Normalize(t *testing.T) {
	c := Coupon{Code: "  save10 ", Type: " FIXED "}
	c.Normalize()
	assert.Equal(t, "SAVE10", c.Code)
	assert.Equal(t, CouponFixed, c.Type)

	d := Coupon{Code: "x"}
	d.Normalize()
	assert.Equal(t, CouponPercent, d.Type)
}

func TestCoupon_Validation(t *testing.T) {
	ok := Coupon{Code: "SAVE10", Type: CouponPercent, Value: 10}
	assert.NoError(t, validator.Validate(ok))

	bad := Coupon{Code: "", Type: "bogus", Value: 0, MinSubtotal: -1}
	err := validator.Validate(bad)
	var ve *validator.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.ElementsMatch(t, []string{"code", "type", "value", "min_subtotal"}, ve.FieldNames())
}

func TestCoupon_Expired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Hour)

	assert.False(t, (&Coupon{}).Expired(now))
	assert.True(t, (&Coupon{ExpiresAt: &past}).Expired(now))
	assert.False(t, (&Coupon{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Coupon{ExpiresAt: &now}).Expired(now))
}

func TestRejectedBelowMinimum(t *testing.T) {
	o := RejectedBelowMinimum(50)
	assert.False(t, o.Valid)
	assert.Equal(t, ReasonMinSubtotal, o.Reason)
	require.NotNil(t, o.MinSubtotal)
	assert.Equal(t, 50.0, *o.MinSubtotal)
	assert.Nil(t, o.Coupon)
}
