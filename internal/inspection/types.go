package inspection

import (
	"fmt"
	"time"

	"github.com/MohdAleeRehman/Phonely/internal/market"
)

// Condition tiers reported by the vision stage.
const (
	ConditionExcellent = "Excellent"
	ConditionVeryGood  = "Very Good"
	ConditionGood      = "Good"
	ConditionFair      = "Fair"
	ConditionPoor      = "Poor"
)

// Input is the immutable listing record handed to one pipeline run.
type Input struct {
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Storage     string   `json:"storage"`
	RAM         string   `json:"ram"`
	Color       string   `json:"color"`
	Description string   `json:"description"`
	Images      []string `json:"images"`
	HasBox      bool     `json:"has_box"`
	HasWarranty bool     `json:"has_warranty"`
	LaunchDate  string   `json:"launch_date"` // YYYY-MM
	RetailPrice int      `json:"retail_price"`
	AgeMonths   int      `json:"age_months"`
	PTAApproved bool     `json:"pta_approved"`
}

// Authenticity is the vision stage's judgment of whether the device is genuine.
type Authenticity struct {
	Score       float64 `json:"score"`
	IsAuthentic bool    `json:"is_authentic"`
}

// VisionResult is the device-condition judgment from listing photos.
type VisionResult struct {
	ConditionScore float64      `json:"condition_score"`
	Condition      string       `json:"condition"`
	DetectedIssues []string     `json:"detected_issues"`
	Authenticity   Authenticity `json:"authenticity"`
}

func validCondition(c string) bool {
	switch c {
	case ConditionExcellent, ConditionVeryGood, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Validate checks all schema constraints. A result is either fully valid or
// rejected; partially populated results never enter the state.
func (r *VisionResult) Validate() error {
	if r.ConditionScore < 0 || r.ConditionScore > 10 {
		return fmt.Errorf("condition_score %v out of range [0,10]", r.ConditionScore)
	}
	if !validCondition(r.Condition) {
		return fmt.Errorf("invalid condition %q", r.Condition)
	}
	if r.DetectedIssues == nil {
		return fmt.Errorf("detected_issues missing")
	}
	if r.Authenticity.Score < 0 || r.Authenticity.Score > 100 {
		return fmt.Errorf("authenticity.score %v out of range [0,100]", r.Authenticity.Score)
	}
	return nil
}

// TextResult is the listing-description quality judgment.
type TextResult struct {
	DescriptionQuality string   `json:"description_quality"`
	Completeness       float64  `json:"completeness"`
	MissingInformation []string `json:"missing_information"`
}

func (r *TextResult) Validate() error {
	switch r.DescriptionQuality {
	case "excellent", "good", "fair", "poor":
	default:
		return fmt.Errorf("invalid description_quality %q", r.DescriptionQuality)
	}
	if r.Completeness < 0 || r.Completeness > 100 {
		return fmt.Errorf("completeness %v out of range [0,100]", r.Completeness)
	}
	if r.MissingInformation == nil {
		return fmt.Errorf("missing_information missing")
	}
	return nil
}

// PricingResult is the fair resale price band.
type PricingResult struct {
	SuggestedMinPrice int    `json:"suggested_min_price"`
	SuggestedMaxPrice int    `json:"suggested_max_price"`
	MarketAverage     int    `json:"market_average"`
	ConfidenceLevel   string `json:"confidence_level"`
	PTAImpactApplied  bool   `json:"pta_impact_applied"`
}

func (r *PricingResult) Validate() error {
	if r.SuggestedMinPrice <= 0 || r.SuggestedMaxPrice <= 0 || r.MarketAverage <= 0 {
		return fmt.Errorf("prices must be positive (min=%d, max=%d, avg=%d)",
			r.SuggestedMinPrice, r.SuggestedMaxPrice, r.MarketAverage)
	}
	if r.SuggestedMinPrice > r.MarketAverage || r.MarketAverage > r.SuggestedMaxPrice {
		return fmt.Errorf("price ordering violated (min=%d, avg=%d, max=%d)",
			r.SuggestedMinPrice, r.MarketAverage, r.SuggestedMaxPrice)
	}
	switch r.ConfidenceLevel {
	case "low", "medium", "high":
	default:
		return fmt.Errorf("invalid confidence_level %q", r.ConfidenceLevel)
	}
	return nil
}

// Status tracks where a pipeline run is. Transitions are monotonic except
// for in-stage retries, which re-enter the same stage.
type Status string

const (
	StatusProcessing    Status = "processing"
	StatusVisionFailed  Status = "vision_failed"
	StatusTextFailed    Status = "text_failed"
	StatusPricingFailed Status = "pricing_failed"
	StatusCompleted     Status = "completed"
	StatusFailed        Status = "failed"
)

// Terminal reports whether no further stage may execute.
func (s Status) Terminal() bool {
	return s != StatusProcessing
}

// State is the mutable record owned exclusively by one pipeline run.
// No locking is needed: concurrent inspections each own their own State.
type State struct {
	Input

	VisionResult  *VisionResult
	TextResult    *TextResult
	PricingResult *PricingResult

	// MarketData is ephemeral grounding for the pricing stage.
	MarketData *market.Snapshot

	VisionRetries  int
	TextRetries    int
	PricingRetries int

	ToolsCalled []string
	Status      Status
	Error       string
}

// StageTimings holds measured wall-clock time per stage. Market-data
// gathering is attributed to the pricing stage.
type StageTimings struct {
	Vision  time.Duration
	Text    time.Duration
	Pricing time.Duration
}

// FinalState is what Run hands to the result assembler.
type FinalState struct {
	State
	Timings StageTimings
	Elapsed time.Duration
}
