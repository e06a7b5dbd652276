package reward

import "math"

// The constants below are business policy, not physics. They must stay
// fixed table lookups so reward amounts are deterministic and
// reproducible for identical input.

const (
	// pointRate is the price-proportional share of the point score
	pointRate = 0.1

	// preparedFoodBonus and defaultBonus are the two observed category
	// bonus tiers
	preparedFoodBonus = 50
	defaultBonus      = 30

	// reductionPriceDivisor and reductionPriceCap shape the price
	// multiplier applied to the per-category base reduction
	reductionPriceDivisor = 200.0
	reductionPriceCap     = 2.0
)

// baseReductionKg is the estimated food-waste reduction per category in
// kilograms before price scaling. Prepared food ranks highest, beverages
// lowest.
var baseReductionKg = map[Category]float64{
	CategoryPreparedFood: 0.8,
	CategoryDairy:        0.4,
	CategoryDeli:         0.3,
	CategoryFrozen:       0.3,
	CategoryBakery:       0.2,
	CategoryDessert:      0.2,
	CategoryBeverage:     0.1,
	CategoryOther:        0.1,
}

// categoryBonus returns the fixed additive point bonus for a category
func categoryBonus(category Category) int {
	if category == CategoryPreparedFood {
		return preparedFoodBonus
	}
	return defaultBonus
}

// PointValue computes the point score for one selected item:
// floor(price × 0.1) plus the category bonus
func PointValue(price int, category Category) int {
	return int(math.Floor(float64(price)*pointRate)) + categoryBonus(category)
}

// EstimatedReduction computes the estimated waste reduction in kg for
// one item: the category base scaled by min(price/200, 2.0), rounded to
// one decimal place
func EstimatedReduction(price int, category Category) float64 {
	base, ok := baseReductionKg[category]
	if !ok {
		base = baseReductionKg[CategoryOther]
	}
	multiplier := math.Min(float64(price)/reductionPriceDivisor, reductionPriceCap)
	return math.Round(base*multiplier*10) / 10
}
