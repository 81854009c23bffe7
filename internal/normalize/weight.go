package normalize

import (
	"math"
	"regexp"
	"strconv"

	"github.com/uaidecants/storefront/internal/domain"
)

const (
	// MinBilledWeightGrams is the lowest weight carriers will quote.
	MinBilledWeightGrams = 100
	// CartMarginGrams covers padding and the outer box.
	CartMarginGrams = 20
	// FallbackPackagingGrams is used for volume tiers missing from
	// packagingGrams.
	FallbackPackagingGrams = 20
)

// packagingGrams is the weight of the atomizer and wrapping per tier in ml.
var packagingGrams = map[int]int{2: 10, 5: 18, 8: 30, 15: 55}

var volumePattern = regexp.MustCompile(`(?i)(\d+)\s*ml`)

// ParseVolumeML returns the millilitres in a label such as "5ml" or
// "10 ML", or 0 when the label has none.
func ParseVolumeML(label string) int {
	m := volumePattern.FindStringSubmatch(label)
	if m == nil {
		return 0
	}
	ml, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return ml
}

// EstimateItemWeightGrams is a heuristic, not a measurement: liquid at
// 0.9 g/ml (at least 1 g) plus the packaging for the tier, rounded up.
func EstimateItemWeightGrams(volumeLabel string) int {
	ml := ParseVolumeML(volumeLabel)
	liquid := math.Max(float64(ml)*0.9, 1)
	pkg, ok := packagingGrams[ml]
	if !ok {
		pkg = FallbackPackagingGrams
	}
	return int(math.Ceil(liquid + float64(pkg)))
}

// EstimateCartWeightGrams sums item weights times quantity, adds the
// margin and floors the result at MinBilledWeightGrams. A non-positive
// quantity counts as one unit.
func EstimateCartWeightGrams(items []domain.CartItem) int {
	total := 0
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += EstimateItemWeightGrams(it.Volume) * qty
	}
	return max(total+CartMarginGrams, MinBilledWeightGrams)
}

// BillableWeightKg converts grams to the kilograms sent to carriers,
// never below the minimum billable weight.
func BillableWeightKg(grams int) float64 {
	return float64(max(grams, MinBilledWeightGrams)) / 1000
}
