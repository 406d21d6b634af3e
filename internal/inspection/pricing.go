package inspection

import "math"

// PricingConfig holds the parameters of the deterministic depreciation and
// adjustment formula. The same formula is rendered into the pricing stage's
// prompt as grounding instructions and used as the authoritative fallback
// when the stage cannot produce a valid answer.
type PricingConfig struct {
	// BaseAnnualRate is the first-year depreciation rate (0.35 = 35%/year,
	// aggressive for the C2C market).
	BaseAnnualRate float64

	// Deductions in currency units for missing accessories.
	NoBoxDeduction      int
	NoWarrantyDeduction int

	// Quick-sale discount band. The high end produces the suggested minimum
	// price, the low end the suggested maximum.
	QuickSaleLow  int
	QuickSaleHigh int

	// PriceFloor keeps suggested prices positive for very cheap or very old
	// devices.
	PriceFloor int
}

// DefaultPricingConfig returns the production formula parameters.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		BaseAnnualRate:      0.35,
		NoBoxDeduction:      500,
		NoWarrantyDeduction: 1000,
		QuickSaleLow:        1000,
		QuickSaleHigh:       2000,
		PriceFloor:          500,
	}
}

// conditionFactors maps a condition tier to its price adjustment.
var conditionFactors = map[string]float64{
	ConditionExcellent: 0.05,
	ConditionVeryGood:  0.0,
	ConditionGood:      -0.05,
	ConditionFair:      -0.10,
	ConditionPoor:      -0.20,
}

// PriceBand is the output of the deterministic calculator.
type PriceBand struct {
	SuggestedMinPrice int
	SuggestedMaxPrice int
	MarketAverage     int
	DepreciationPct   float64
}

// Calculate applies the depreciation/adjustment formula. It is a pure
// function of its arguments and the config.
func (c PricingConfig) Calculate(retailPrice, ageMonths int, condition string, hasBox, hasWarranty bool) PriceBand {
	depreciation := math.Min(1, float64(ageMonths)/12*c.BaseAnnualRate)
	basePrice := float64(retailPrice) * (1 - depreciation)

	adjusted := basePrice * (1 + conditionFactors[condition])

	deduction := 0
	if !hasBox {
		deduction += c.NoBoxDeduction
	}
	if !hasWarranty {
		deduction += c.NoWarrantyDeduction
	}
	preDiscount := adjusted - float64(deduction)

	minPrice := int(math.Round(preDiscount)) - c.QuickSaleHigh
	maxPrice := int(math.Round(preDiscount)) - c.QuickSaleLow
	if minPrice < c.PriceFloor {
		minPrice = c.PriceFloor
	}
	if maxPrice <= minPrice {
		maxPrice = minPrice + (c.QuickSaleHigh - c.QuickSaleLow)
	}

	return PriceBand{
		SuggestedMinPrice: minPrice,
		SuggestedMaxPrice: maxPrice,
		MarketAverage:     (minPrice + maxPrice) / 2,
		DepreciationPct:   depreciation,
	}
}

// Fallback computes the deterministic fallback pricing result for an input.
// The condition comes from the vision stage when it produced one, otherwise
// the vision fallback's "Good" tier applies. Confidence is always "low" so
// a default answer is never mistaken for model output.
func (c PricingConfig) Fallback(in Input, condition string) *PricingResult {
	if !validCondition(condition) {
		condition = ConditionGood
	}
	band := c.Calculate(in.RetailPrice, in.AgeMonths, condition, in.HasBox, in.HasWarranty)
	return &PricingResult{
		SuggestedMinPrice: band.SuggestedMinPrice,
		SuggestedMaxPrice: band.SuggestedMaxPrice,
		MarketAverage:     band.MarketAverage,
		ConfidenceLevel:   "low",
		PTAImpactApplied:  false,
	}
}
