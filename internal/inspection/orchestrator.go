package inspection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MohdAleeRehman/Phonely/internal/llm"
	"github.com/MohdAleeRehman/Phonely/internal/market"
	"github.com/rs/zerolog/log"
)

// MaxStageRetries bounds re-attempts per stage: one initial attempt plus up
// to three retries.
const MaxStageRetries = 3

// Gatherer collects grounding facts from the market-data sources. It never
// fails: degraded lookups surface as explanatory text in the snapshot.
type Gatherer interface {
	Gather(ctx context.Context, brand, model, storage string) (market.Snapshot, []string)
}

// Orchestrator runs one inspection as a strictly sequential state machine:
// Vision -> Text -> market gather -> Pricing. Each Run owns its State
// exclusively; many runs may execute concurrently.
type Orchestrator struct {
	gen     llm.Generator
	market  Gatherer
	pricing PricingConfig
}

func NewOrchestrator(gen llm.Generator, gatherer Gatherer, pricing PricingConfig) *Orchestrator {
	return &Orchestrator{gen: gen, market: gatherer, pricing: pricing}
}

// PricingConfig exposes the formula parameters, for rendering fallbacks
// outside a run.
func (o *Orchestrator) PricingConfig() PricingConfig {
	return o.pricing
}

// Run executes the pipeline to termination. It never returns an error:
// unexpected faults (panics, generation transport errors) terminate the run
// with StatusFailed and a populated Error instead.
func (o *Orchestrator) Run(ctx context.Context, input Input) (final *FinalState) {
	start := time.Now()
	state := State{Input: input, Status: StatusProcessing}
	var timings StageTimings
	final = &FinalState{}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("model", input.Model).Msg("inspection run panicked")
			state.Status = StatusFailed
			state.Error = fmt.Sprintf("unexpected failure: %v", r)
		}
		final.State = state
		final.Timings = timings
		final.Elapsed = time.Since(start)
	}()

	log.Info().
		Str("brand", input.Brand).
		Str("model", input.Model).
		Str("storage", input.Storage).
		Int("images", len(input.Images)).
		Msg("inspection started")

	if !o.runStage(ctx, &state, "vision", StatusVisionFailed, &state.VisionRetries, &timings.Vision, o.visionAttempt) {
		return
	}
	if !o.runStage(ctx, &state, "text", StatusTextFailed, &state.TextRetries, &timings.Text, o.textAttempt) {
		return
	}

	// The orchestrator itself invokes the market lookup, unconditionally,
	// before pricing. The model only consumes already-fetched data and never
	// decides whether a lookup happens.
	gatherStart := time.Now()
	snapshot, tools := o.market.Gather(ctx, input.Brand, input.Model, input.Storage)
	state.MarketData = &snapshot
	state.ToolsCalled = append(state.ToolsCalled, tools...)
	timings.Pricing += time.Since(gatherStart)

	if !o.runStage(ctx, &state, "pricing", StatusPricingFailed, &state.PricingRetries, &timings.Pricing, o.pricingAttempt) {
		return
	}

	state.Status = StatusCompleted
	log.Info().
		Str("model", input.Model).
		Dur("elapsed", time.Since(start)).
		Ints("retries", []int{state.VisionRetries, state.TextRetries, state.PricingRetries}).
		Msg("inspection completed")
	return
}

// runStage executes one stage under the bounded retry loop. Returns false
// once the state is terminal. Retry counters live in the State, not in the
// executor; the loop's termination follows directly from the counter bound.
func (o *Orchestrator) runStage(
	ctx context.Context,
	state *State,
	name string,
	failedStatus Status,
	retries *int,
	elapsed *time.Duration,
	attempt func(ctx context.Context, state *State) error,
) bool {
	stageStart := time.Now()
	defer func() { *elapsed += time.Since(stageStart) }()

	for {
		err := attempt(ctx, state)
		if err == nil {
			log.Info().Str("stage", name).Int("retries", *retries).Msg("stage completed")
			return true
		}

		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			// Outside the retryable taxonomy: transport outage or similar.
			log.Error().Err(err).Str("stage", name).Msg("stage hit unexpected failure")
			state.Status = StatusFailed
			state.Error = err.Error()
			return false
		}

		if *retries >= MaxStageRetries {
			log.Warn().Err(err).Str("stage", name).Msg("stage retry budget exhausted")
			state.Status = failedStatus
			state.Error = fmt.Sprintf("%s stage failed after %d attempts: %v", name, MaxStageRetries+1, err)
			return false
		}
		*retries++
		log.Warn().Err(err).Str("stage", name).Int("attempt", *retries+1).Msg("retrying stage")
	}
}

// visionAttempt makes one outbound generation call and stores the result on
// success. The executor itself holds no memory across calls.
func (o *Orchestrator) visionAttempt(ctx context.Context, state *State) error {
	out, err := o.gen.Generate(ctx, buildVisionPrompt(state.Input))
	if err != nil {
		return fmt.Errorf("vision generation call failed: %w", err)
	}
	res, err := parseVisionResult(out)
	if err != nil {
		return err
	}
	state.VisionResult = res
	return nil
}

func (o *Orchestrator) textAttempt(ctx context.Context, state *State) error {
	out, err := o.gen.Generate(ctx, buildTextPrompt(state.Input))
	if err != nil {
		return fmt.Errorf("text generation call failed: %w", err)
	}
	res, err := parseTextResult(out)
	if err != nil {
		return err
	}
	state.TextResult = res
	return nil
}

func (o *Orchestrator) pricingAttempt(ctx context.Context, state *State) error {
	out, err := o.gen.Generate(ctx, buildPricingPrompt(state, o.pricing))
	if err != nil {
		return fmt.Errorf("pricing generation call failed: %w", err)
	}
	res, err := parsePricingResult(out)
	if err != nil {
		return err
	}
	state.PricingResult = res
	return nil
}
