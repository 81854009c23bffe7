package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uaidecants/storefront/internal/domain"
)

func TestParseVolumeML(t *testing.T) {
	assert.Equal(t, 5, ParseVolumeML("5ml"))
	assert.Equal(t, 10, ParseVolumeML("Decant 10 ML"))
	assert.Equal(t, 15, ParseVolumeML("15mL"))
	assert.Equal(t, 0, ParseVolumeML("frasco"))
	assert.Equal(t, 0, ParseVolumeML(""))
}

// The item weights below follow the packaging heuristic; they are not
// measured values.
func TestEstimateItemWeightGrams(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"2ml", 12},    // 1.8 + 10
		{"5ml", 23},    // 4.5 + 18
		{"8ml", 38},    // 7.2 + 30
		{"15ml", 69},   // 13.5 + 55
		{"10ml", 29},   // 9 + fallback 20
		{"sample", 21}, // 1 g floor + fallback 20
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EstimateItemWeightGrams(tt.label), tt.label)
	}
}

func TestEstimateCartWeightGrams(t *testing.T) {
	t.Run("small cart is floored at minimum", func(t *testing.T) {
		got := EstimateCartWeightGrams([]domain.CartItem{{Volume: "5ml", Quantity: 2}})
		assert.Equal(t, MinBilledWeightGrams, got)
	})

	t.Run("empty cart", func(t *testing.T) {
		assert.Equal(t, MinBilledWeightGrams, EstimateCartWeightGrams(nil))
	})

	t.Run("sum with margin", func(t *testing.T) {
		items := []domain.CartItem{
			{Volume: "15ml", Quantity: 2}, // 138
			{Volume: "8ml", Quantity: 1},  // 38
		}
		assert.Equal(t, 138+38+CartMarginGrams, EstimateCartWeightGrams(items))
	})

	t.Run("non-positive quantity counts once", func(t *testing.T) {
		items := []domain.CartItem{{Volume: "15ml", Quantity: 0}, {Volume: "15ml", Quantity: -3}}
		assert.Equal(t, 69*2+CartMarginGrams, EstimateCartWeightGrams(items))
	})
}

func TestBillableWeightKg(t *testing.T) {
	assert.Equal(t, 0.1, BillableWeightKg(40))
	assert.Equal(t, 0.25, BillableWeightKg(250))
}
