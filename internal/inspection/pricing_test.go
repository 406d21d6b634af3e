package inspection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateDeterministicFormula(t *testing.T) {
	// 27000 PKR retail, 14 months old, Very Good, no box, no warranty:
	// depreciation = min(1, 14/12*0.35) = 0.4083 -> base 15975
	// condition factor 0% -> adjusted 15975
	// accessories -1500 -> pre-discount 14475
	// quick-sale band 1000-2000 -> 12475..13475
	cfg := DefaultPricingConfig()
	band := cfg.Calculate(27000, 14, ConditionVeryGood, false, false)

	assert.InDelta(t, 0.4083, band.DepreciationPct, 0.0001)
	assert.Equal(t, 12475, band.SuggestedMinPrice)
	assert.Equal(t, 13475, band.SuggestedMaxPrice)
	assert.Equal(t, 12975, band.MarketAverage)
	assert.Less(t, band.SuggestedMinPrice, band.SuggestedMaxPrice)
	assert.Positive(t, band.SuggestedMinPrice)
}

func TestCalculateIsDeterministic(t *testing.T) {
	cfg := DefaultPricingConfig()
	first := cfg.Calculate(85000, 26, ConditionExcellent, true, false)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, cfg.Calculate(85000, 26, ConditionExcellent, true, false))
	}
}

func TestCalculateConditionFactors(t *testing.T) {
	cfg := DefaultPricingConfig()
	excellent := cfg.Calculate(50000, 12, ConditionExcellent, true, true)
	good := cfg.Calculate(50000, 12, ConditionGood, true, true)
	poor := cfg.Calculate(50000, 12, ConditionPoor, true, true)

	assert.Greater(t, excellent.MarketAverage, good.MarketAverage)
	assert.Greater(t, good.MarketAverage, poor.MarketAverage)
}

func TestCalculateDepreciationCapped(t *testing.T) {
	cfg := DefaultPricingConfig()
	// 60 months at 35%/year would be 175%; the cap keeps it at 100%.
	band := cfg.Calculate(100000, 60, ConditionGood, true, true)
	assert.Equal(t, 1.0, band.DepreciationPct)
	// Fully depreciated device still yields a positive band via the floor.
	assert.Positive(t, band.SuggestedMinPrice)
	assert.Greater(t, band.SuggestedMaxPrice, band.SuggestedMinPrice)
}

func TestCalculatePriceFloor(t *testing.T) {
	cfg := DefaultPricingConfig()
	band := cfg.Calculate(2000, 3, ConditionFair, false, false)
	assert.GreaterOrEqual(t, band.SuggestedMinPrice, cfg.PriceFloor)
	assert.Greater(t, band.SuggestedMaxPrice, band.SuggestedMinPrice)
	assert.Equal(t, (band.SuggestedMinPrice+band.SuggestedMaxPrice)/2, band.MarketAverage)
}

func TestFallbackPricing(t *testing.T) {
	cfg := DefaultPricingConfig()
	in := Input{RetailPrice: 27000, AgeMonths: 14, HasBox: false, HasWarranty: false}

	res := cfg.Fallback(in, ConditionVeryGood)
	assert.NoError(t, res.Validate())
	assert.Equal(t, "low", res.ConfidenceLevel)
	assert.False(t, res.PTAImpactApplied)
	assert.Equal(t, 12475, res.SuggestedMinPrice)
	assert.Equal(t, 13475, res.SuggestedMaxPrice)

	// Unknown condition falls back to the Good tier.
	unknown := cfg.Fallback(in, "Mint")
	good := cfg.Fallback(in, ConditionGood)
	assert.Equal(t, good, unknown)
}
