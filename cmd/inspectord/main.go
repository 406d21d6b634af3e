package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MohdAleeRehman/Phonely/config"
	"github.com/MohdAleeRehman/Phonely/internal/inspection"
	"github.com/MohdAleeRehman/Phonely/internal/llm"
	"github.com/MohdAleeRehman/Phonely/internal/market"
	"github.com/MohdAleeRehman/Phonely/internal/server"
	"github.com/MohdAleeRehman/Phonely/internal/storage"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const marketCacheTTL = 6 * time.Hour

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()

	if missing := config.Missing("GEMINI_API_KEY", "API_KEY"); len(missing) > 0 {
		log.Fatal().Strs("missing", missing).Msg("missing required config")
	}

	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = "http://localhost:3000"
	}
	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}
	dbPath := os.Getenv("PHONELY_DB_PATH")
	if dbPath == "" {
		dbPath = "inspections.db"
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStore(dbPath, marketCacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer store.Close()
	log.Info().Str("dbPath", dbPath).Msg("store initialized")

	generator, err := llm.NewGeminiGenerator(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize gemini generator")
	}
	log.Info().Msg("gemini generator initialized")

	aggregator := market.NewAggregator(
		market.NewCachedSource(market.NewWhatMobileSource(), store),
		market.NewCachedSource(market.NewOLXSource(), store),
	)

	orch := inspection.NewOrchestrator(generator, aggregator, inspection.DefaultPricingConfig())
	srv := server.New(server.Config{
		APIKey:     os.Getenv("API_KEY"),
		BackendURL: backendURL,
	}, orch, store)

	httpServer := &http.Server{
		Addr:    ":" + strings.TrimPrefix(port, ":"),
		Handler: srv.Router(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("inspection service listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("http shutdown error")
		}
		log.Info().Msg("waiting for active inspections to finish")
		srv.Wait()
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
