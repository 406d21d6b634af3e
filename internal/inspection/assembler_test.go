package inspection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleCompletedRun(t *testing.T) {
	vision := &VisionResult{ConditionScore: 9, Condition: ConditionExcellent, DetectedIssues: []string{}, Authenticity: Authenticity{Score: 98, IsAuthentic: true}}
	text := &TextResult{DescriptionQuality: "excellent", Completeness: 90, MissingInformation: []string{}}
	pricing := &PricingResult{SuggestedMinPrice: 15000, SuggestedMaxPrice: 18000, MarketAverage: 16500, ConfidenceLevel: "high", PTAImpactApplied: true}

	fs := &FinalState{
		State: State{
			Input:         testInput(),
			VisionResult:  vision,
			TextResult:    text,
			PricingResult: pricing,
			ToolsCalled:   []string{"WhatMobile_Pakistan_Info", "OLX_Market_Scraper"},
			Status:        StatusCompleted,
		},
		Timings: StageTimings{Vision: 2 * time.Second, Text: 1 * time.Second, Pricing: 3 * time.Second},
		Elapsed: 6 * time.Second,
	}

	report := NewAssembler(DefaultPricingConfig()).Assemble(fs)

	assert.Equal(t, "completed", report.Status)
	assert.Empty(t, report.Error)
	require.NotNil(t, report.Results)
	assert.Same(t, vision, report.Results.VisionAnalysis)
	assert.Same(t, text, report.Results.TextAnalysis)
	assert.Same(t, pricing, report.Results.PricingAnalysis)
	assert.Equal(t, []string{"WhatMobile_Pakistan_Info", "OLX_Market_Scraper"}, report.ToolsExecuted)
	assert.Equal(t, RetryCounts{}, report.Retries)

	// Measured per-stage timings are reported as-is.
	require.NotNil(t, report.ProcessingTime)
	assert.Equal(t, 6000.0, report.ProcessingTime.Total)
	assert.Equal(t, 2000.0, report.ProcessingTime.VisionAgent)
	assert.Equal(t, 1000.0, report.ProcessingTime.TextAgent)
	assert.Equal(t, 3000.0, report.ProcessingTime.PricingAgent)
}

func TestAssembleStageFailureSubstitutesDefaults(t *testing.T) {
	fs := &FinalState{
		State: State{
			Input:  testInput(),
			Status: StatusVisionFailed,
			Error:  "vision stage failed after 4 attempts: invalid condition \"Mint\"",
		},
		Elapsed: 3 * time.Second,
	}

	cfg := DefaultPricingConfig()
	report := NewAssembler(cfg).Assemble(fs)

	assert.Equal(t, "failed", report.Status)
	assert.Contains(t, report.Error, "vision stage failed")

	// A stage failure still produces a full results payload from the fixed
	// defaults and the deterministic calculator.
	require.NotNil(t, report.Results)
	assert.Equal(t, defaultVisionResult(), report.Results.VisionAnalysis)
	assert.Equal(t, defaultTextResult(), report.Results.TextAnalysis)
	assert.Equal(t, cfg.Fallback(fs.Input, ConditionGood), report.Results.PricingAnalysis)
	assert.Equal(t, "low", report.Results.PricingAnalysis.ConfidenceLevel)
	assert.NoError(t, report.Results.PricingAnalysis.Validate())
}

func TestAssemblePricingFallbackUsesVisionCondition(t *testing.T) {
	vision := &VisionResult{ConditionScore: 9.5, Condition: ConditionExcellent, DetectedIssues: []string{}, Authenticity: Authenticity{Score: 99, IsAuthentic: true}}
	fs := &FinalState{
		State: State{
			Input:          testInput(),
			VisionResult:   vision,
			TextResult:     &TextResult{DescriptionQuality: "good", Completeness: 80, MissingInformation: []string{}},
			PricingRetries: MaxStageRetries,
			Status:         StatusPricingFailed,
			Error:          "pricing stage failed after 4 attempts: no JSON object found in response",
		},
	}

	cfg := DefaultPricingConfig()
	report := NewAssembler(cfg).Assemble(fs)

	require.NotNil(t, report.Results)
	assert.Same(t, vision, report.Results.VisionAnalysis)
	assert.Equal(t, cfg.Fallback(fs.Input, ConditionExcellent), report.Results.PricingAnalysis)
	assert.Equal(t, MaxStageRetries, report.Retries.Pricing)
}

func TestAssembleSystemFailureOmitsResults(t *testing.T) {
	fs := &FinalState{
		State: State{
			Input:  testInput(),
			Status: StatusFailed,
			Error:  "unexpected failure: scraper blew up",
		},
		Elapsed: time.Second,
	}

	report := NewAssembler(DefaultPricingConfig()).Assemble(fs)

	assert.Equal(t, "failed", report.Status)
	assert.Equal(t, "unexpected failure: scraper blew up", report.Error)
	assert.Nil(t, report.Results)
	assert.Nil(t, report.ProcessingTime)
	assert.NotNil(t, report.ToolsExecuted)
	assert.Empty(t, report.ToolsExecuted)
}

func TestBreakdownWeightsWithoutTimings(t *testing.T) {
	pt := breakdown(10*time.Second, StageTimings{})
	assert.Equal(t, 10000.0, pt.Total)
	assert.Equal(t, 3000.0, pt.VisionAgent)
	assert.Equal(t, 2000.0, pt.TextAgent)
	assert.Equal(t, 5000.0, pt.PricingAgent)
}
