package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/MohdAleeRehman/Phonely/config"
	"github.com/MohdAleeRehman/Phonely/internal/inspection"
	"github.com/MohdAleeRehman/Phonely/internal/llm"
	"github.com/MohdAleeRehman/Phonely/internal/market"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// One-shot inspection from a JSON input file, for local testing without the
// HTTP front door.
//
// Usage: inspect -input listing.json
func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	config.LoadEnvFile()

	inputPath := flag.String("input", "", "path to JSON file with inspection input")
	flag.Parse()

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect -input listing.json")
		os.Exit(1)
	}
	if os.Getenv("GEMINI_API_KEY") == "" {
		log.Fatal().Msg("GEMINI_API_KEY is not set")
	}

	data, err := os.ReadFile(*inputPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read input file")
	}
	var input inspection.Input
	if err := json.Unmarshal(data, &input); err != nil {
		log.Fatal().Err(err).Msg("failed to parse input file")
	}

	ctx := context.Background()
	generator, err := llm.NewGeminiGenerator(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini generator")
	}

	aggregator := market.NewAggregator(market.NewWhatMobileSource(), market.NewOLXSource())
	orch := inspection.NewOrchestrator(generator, aggregator, inspection.DefaultPricingConfig())

	final := orch.Run(ctx, input)
	report := inspection.NewAssembler(orch.PricingConfig()).Assemble(final)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to encode report")
	}
	fmt.Println(string(out))
}
