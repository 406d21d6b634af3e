package inspection

import "time"

// Processing-time attribution weights, used when the orchestrator reports no
// per-stage timings. Fixed configuration; do not vary per run.
const (
	visionTimeWeight  = 0.3
	textTimeWeight    = 0.2
	pricingTimeWeight = 0.5
)

// RetryCounts mirrors the per-stage retry counters in the output record.
type RetryCounts struct {
	Vision  int `json:"vision"`
	Text    int `json:"text"`
	Pricing int `json:"pricing"`
}

// ProcessingTime is the wall-clock breakdown in float milliseconds.
type ProcessingTime struct {
	Total        float64 `json:"total"`
	VisionAgent  float64 `json:"visionAgent"`
	TextAgent    float64 `json:"textAgent"`
	PricingAgent float64 `json:"pricingAgent"`
}

// ReportResults carries the three judgments.
type ReportResults struct {
	VisionAnalysis  *VisionResult  `json:"vision_analysis"`
	TextAnalysis    *TextResult    `json:"text_analysis"`
	PricingAnalysis *PricingResult `json:"pricing_analysis"`
}

// Report is the output record delivered to the caller.
type Report struct {
	Status         string          `json:"status"`
	Results        *ReportResults  `json:"results,omitempty"`
	ProcessingTime *ProcessingTime `json:"processing_time,omitempty"`
	ToolsExecuted  []string        `json:"tools_executed"`
	Retries        RetryCounts     `json:"retries"`
	Error          string          `json:"error,omitempty"`
}

// Assembler converts a terminated pipeline state into the output record,
// substituting fixed fallback defaults for missing stage results.
type Assembler struct {
	pricing PricingConfig
}

func NewAssembler(pricing PricingConfig) *Assembler {
	return &Assembler{pricing: pricing}
}

// Assemble builds the output record. A stage-failure run still yields a
// complete results payload (fallback defaults fill the gaps); a system
// failure yields status=failed with only an error.
func (a *Assembler) Assemble(fs *FinalState) *Report {
	report := &Report{
		Status:        "completed",
		ToolsExecuted: fs.ToolsCalled,
		Retries: RetryCounts{
			Vision:  fs.VisionRetries,
			Text:    fs.TextRetries,
			Pricing: fs.PricingRetries,
		},
	}
	if report.ToolsExecuted == nil {
		report.ToolsExecuted = []string{}
	}
	if fs.Status != StatusCompleted {
		report.Status = "failed"
		report.Error = fs.Error
	}

	// StatusFailed without a stage marker means the run died outside the
	// retry taxonomy; there is no results payload to report.
	if fs.Status == StatusFailed {
		return report
	}

	vision := fs.VisionResult
	if vision == nil {
		vision = defaultVisionResult()
	}
	text := fs.TextResult
	if text == nil {
		text = defaultTextResult()
	}
	pricing := fs.PricingResult
	if pricing == nil {
		pricing = a.pricing.Fallback(fs.Input, vision.Condition)
	}

	report.Results = &ReportResults{
		VisionAnalysis:  vision,
		TextAnalysis:    text,
		PricingAnalysis: pricing,
	}
	report.ProcessingTime = breakdown(fs.Elapsed, fs.Timings)
	return report
}

// breakdown attributes total elapsed time across stages: measured per-stage
// durations when the orchestrator reported them, the fixed weighting
// otherwise.
func breakdown(total time.Duration, timings StageTimings) *ProcessingTime {
	totalMs := toMillis(total)
	if timings.Vision == 0 && timings.Text == 0 && timings.Pricing == 0 {
		return &ProcessingTime{
			Total:        totalMs,
			VisionAgent:  round2(totalMs * visionTimeWeight),
			TextAgent:    round2(totalMs * textTimeWeight),
			PricingAgent: round2(totalMs * pricingTimeWeight),
		}
	}
	return &ProcessingTime{
		Total:        totalMs,
		VisionAgent:  toMillis(timings.Vision),
		TextAgent:    toMillis(timings.Text),
		PricingAgent: toMillis(timings.Pricing),
	}
}

func toMillis(d time.Duration) float64 {
	return round2(float64(d.Microseconds()) / 1000)
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

// Fallback defaults. The vision and text defaults are fixed literals; the
// pricing default comes from the deterministic calculator.
func defaultVisionResult() *VisionResult {
	return &VisionResult{
		ConditionScore: 7.5,
		Condition:      ConditionGood,
		DetectedIssues: []string{"Unable to analyze images"},
		Authenticity:   Authenticity{Score: 85, IsAuthentic: true},
	}
}

func defaultTextResult() *TextResult {
	return &TextResult{
		DescriptionQuality: "fair",
		Completeness:       50,
		MissingInformation: []string{"Unable to analyze description"},
	}
}
