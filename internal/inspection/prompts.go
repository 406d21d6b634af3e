package inspection

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func dedentf(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

const visionPromptTemplate = `
	Role: Senior Device Condition Inspector
	Goal: Assess the physical condition and authenticity of a used phone from its listing photos.
	Backstory: You have inspected thousands of secondhand phones for a C2C marketplace and can spot scratches, dents, screen damage and counterfeit devices from photos alone.

	Task: Analyze %d images of %s %s.
	Images: %s

	Assess condition (0-10), detect physical issues, verify authenticity (0-100).

	Return ONLY valid JSON:
	{
	  "condition_score": <number 0-10>,
	  "condition": "<Excellent/Very Good/Good/Fair/Poor>",
	  "detected_issues": ["<issue 1>", "<issue 2>", ...],
	  "authenticity": {
	    "score": <number 0-100>,
	    "is_authentic": <boolean>
	  }
	}`

const textPromptTemplate = `
	Role: Listing Quality Analyst
	Goal: Evaluate how complete and trustworthy a used-phone listing description is.

	Task: Evaluate description: %q
	Phone: %s %s, %s, Box: %t, Warranty: %t

	Rate quality, assess completeness percentage, identify 3-5 specific missing details.

	Return ONLY valid JSON:
	{
	  "description_quality": "<excellent/good/fair/poor>",
	  "completeness": <number 0-100>,
	  "missing_information": ["<detail 1>", "<detail 2>", ...]
	}`

const pricingPromptTemplate = `
	Role: C2C Market Pricing Analyst for used phones in Pakistan.
	Backstory: You price secondhand phones for direct customer-to-customer sales, with no shopkeeper margin. You ground every estimate in live market data and a fixed depreciation formula.

	TOOL RESULTS (already executed):

	1. Retail price lookup:
	%s

	2. Used-market listings:
	%s

	Now calculate pricing based on:
	- Age: %d months
	- Condition: %s (%.1f/10)
	- PTA Approved: %t
	- Has Box: %t
	- Has Warranty: %t
	- Description Quality: %s
	- Retail Price NEW: PKR %d
	- Launch Date: %s

	%s

	If the market listings contain prices, use their average as a sanity check.

	Return ONLY this JSON (no explanations):
	{
	  "suggested_min_price": <integer>,
	  "suggested_max_price": <integer>,
	  "market_average": <integer>,
	  "confidence_level": "<low/medium/high>",
	  "pta_impact_applied": <boolean>
	}`

func buildVisionPrompt(in Input) string {
	return dedentf(visionPromptTemplate,
		len(in.Images), in.Brand, in.Model, strings.Join(in.Images, ", "))
}

func buildTextPrompt(in Input) string {
	return dedentf(textPromptTemplate,
		in.Description, in.Brand, in.Model, in.Storage, in.HasBox, in.HasWarranty)
}

func buildPricingPrompt(st *State, cfg PricingConfig) string {
	var retailText, listingsText string
	if st.MarketData != nil {
		retailText = st.MarketData.PrimaryRetailText
		listingsText = st.MarketData.MarketListingsText
	}
	return dedentf(pricingPromptTemplate,
		retailText,
		listingsText,
		st.AgeMonths,
		st.VisionResult.Condition, st.VisionResult.ConditionScore,
		st.PTAApproved, st.HasBox, st.HasWarranty,
		st.TextResult.DescriptionQuality,
		st.RetailPrice, st.LaunchDate,
		cfg.Instructions(st.Input, st.VisionResult.Condition))
}

// Instructions renders the deterministic formula as grounding text for the
// pricing prompt, including the calculator's own expected band so the model's
// answer stays consistent with the fallback computation.
func (c PricingConfig) Instructions(in Input, condition string) string {
	band := c.Calculate(in.RetailPrice, in.AgeMonths, condition, in.HasBox, in.HasWarranty)
	return dedentf(`
		PRICING FORMULA FOR C2C MARKET:
		1. Depreciation: min(100%%, age/12 x %.0f%%) -> %d months = %.1f%%
		2. Base price: retail x (1 - depreciation)
		3. Condition adjustment: Excellent +5%%, Very Good 0%%, Good -5%%, Fair -10%%, Poor -20%%
		4. Missing accessories: no box -PKR %d, no warranty -PKR %d
		5. Quick sale discount: subtract PKR %d-%d (no shopkeeper margin)

		Formula result for this phone: PKR %d - PKR %d (average PKR %d).`,
		c.BaseAnnualRate*100, in.AgeMonths, band.DepreciationPct*100,
		c.NoBoxDeduction, c.NoWarrantyDeduction,
		c.QuickSaleLow, c.QuickSaleHigh,
		band.SuggestedMinPrice, band.SuggestedMaxPrice, band.MarketAverage)
}
