package market

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source is one external market-data lookup. Implementations may fail or
// time out; the Aggregator contains those failures.
type Source interface {
	// Name returns the tool identifier recorded in the inspection trace.
	Name() string
	// Query looks up market data for a device. Storage may be empty.
	Query(ctx context.Context, brand, model, storage string) (string, error)
}

// GatherTimeout bounds the combined source calls for one snapshot.
const GatherTimeout = 60 * time.Second

// Snapshot carries raw grounding text for one pricing stage invocation.
// Failed lookups appear as explanatory text, not as missing fields.
type Snapshot struct {
	PrimaryRetailText  string
	MarketListingsText string
}

// Aggregator issues deterministic, non-throwing calls to a fixed pair of
// sources: a retail-price lookup and a used-market scraper.
type Aggregator struct {
	retail   Source
	listings Source
}

func NewAggregator(retail, listings Source) *Aggregator {
	return &Aggregator{retail: retail, listings: listings}
}

// Gather queries both sources concurrently and joins within the time
// budget. It never fails: a failing call yields explanatory text in the
// snapshot, and both tool identifiers are always part of the trace.
func (a *Aggregator) Gather(ctx context.Context, brand, model, storage string) (Snapshot, []string) {
	ctx, cancel := context.WithTimeout(ctx, GatherTimeout)
	defer cancel()

	var snapshot Snapshot
	g := new(errgroup.Group)
	g.Go(func() error {
		snapshot.PrimaryRetailText = a.query(ctx, a.retail, brand, model, storage)
		return nil
	})
	g.Go(func() error {
		snapshot.MarketListingsText = a.query(ctx, a.listings, brand, model, storage)
		return nil
	})
	_ = g.Wait()

	return snapshot, []string{a.retail.Name(), a.listings.Name()}
}

// query wraps one source call so that neither errors nor panics propagate
// past the aggregator boundary.
func (a *Aggregator) query(ctx context.Context, src Source, brand, model, storage string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("tool", src.Name()).Msg("market source panicked")
			text = fmt.Sprintf("%s lookup crashed: %v. Use the provided retail price as fallback.", src.Name(), r)
		}
	}()

	start := time.Now()
	result, err := src.Query(ctx, brand, model, storage)
	if err != nil {
		log.Warn().
			Err(err).
			Str("tool", src.Name()).
			Str("brand", brand).
			Str("model", model).
			Msg("market lookup failed")
		return fmt.Sprintf("%s lookup failed: %v. Use the provided retail price as fallback.", src.Name(), err)
	}

	log.Debug().
		Str("tool", src.Name()).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(result)).
		Msg("market lookup completed")
	return result
}
