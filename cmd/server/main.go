// Package main is the entry point for the portfolio diversity server.
// On startup it fetches (or loads from cache) the benchmark country weights,
// builds the immutable segment space and region resolver, and serves the
// coverage and weight evaluation API. The tables never change while the
// process runs; a background job refreshes the snapshot cache so a restart
// picks up fresh weights.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alex-golts/portfolio-diversity/internal/clients/ssga"
	"github.com/alex-golts/portfolio-diversity/internal/config"
	"github.com/alex-golts/portfolio-diversity/internal/database"
	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/coverage"
	"github.com/alex-golts/portfolio-diversity/internal/modules/marketdata"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
	"github.com/alex-golts/portfolio-diversity/internal/scheduler"
	"github.com/alex-golts/portfolio-diversity/internal/server"
	"github.com/alex-golts/portfolio-diversity/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	log.Info().Msg("Starting portfolio diversity server")

	// Snapshot cache. Holds fetched country weights so the server can start
	// offline with stale data.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open snapshot cache database")
	}
	defer cacheDB.Close()

	repo, err := marketdata.NewRepository(cacheDB.Conn())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot repository")
	}

	// Cap bands and region groupings: YAML files when configured, otherwise
	// the built-in defaults.
	bands := config.DefaultCapBands()
	sourceURL := cfg.SourceURL
	if cfg.BandsFile != "" {
		doc, err := config.LoadBands(cfg.BandsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.BandsFile).Msg("Failed to load cap bands")
		}
		bands = doc.Bands
		if doc.SourceURL != "" {
			sourceURL = doc.SourceURL
		}
	}

	groups := config.DefaultRegionGroups()
	if cfg.RegionsFile != "" {
		groups, err = config.LoadRegions(cfg.RegionsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.RegionsFile).Msg("Failed to load region groupings")
		}
	}

	policy, err := coverage.ParsePolicy(cfg.OverlapPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid overlap policy")
	}

	// Fetch country weights, falling back to the cached snapshot when the
	// source page is unreachable.
	client := ssga.NewClient(sourceURL, log)
	syncSvc := marketdata.NewSyncService(client, repo, sourceURL, log)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	percentWeights, err := syncSvc.CountryWeights(ctx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("No country weights available (source unreachable, cache empty)")
	}

	// Build the immutable tables. Countries known to the region groupings but
	// absent from the source get a zero weight so coverage accounting can
	// still report them as missing or covered.
	resolver, err := regions.New(groups, countryNames(percentWeights))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid region groupings")
	}

	// Published weights are rounded per country, so the fetched total drifts
	// off 100; rescale before the strict construction checks.
	weights, err := benchmark.Normalize(benchmark.FromPercent(benchmark.EnsureCountries(percentWeights, resolver.AllCountries())))
	if err != nil {
		log.Fatal().Err(err).Msg("Fetched country weights failed validation")
	}
	space, err := benchmark.NewSpace(weights, bands)
	if err != nil {
		log.Fatal().Err(err).Msg("Benchmark weights failed validation")
	}

	log.Info().
		Int("countries", len(space.Countries())).
		Int("bands", len(space.Bands())).
		Int("regions", len(resolver.RegionNames())).
		Msg("Benchmark tables built")

	// Background refresh keeps the snapshot cache fresh for the next restart.
	var sched *scheduler.Scheduler
	if cfg.RefreshSchedule != "" {
		sched = scheduler.New(log)
		job := scheduler.NewWeightRefreshJob(syncSvc, cfg.RefreshSchedule, log)
		if err := sched.Register(job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register weight refresh job")
		}
		sched.Start()
	}

	srv := server.New(server.Config{
		Log:      log,
		Space:    space,
		Resolver: resolver,
		Policy:   policy,
		Port:     cfg.Port,
		DevMode:  cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
	}

	// Let any in-flight refresh run finish before exiting.
	if sched != nil {
		<-sched.Stop().Done()
	}

	log.Info().Msg("Server stopped")
}

func countryNames(weights []benchmark.CountryWeight) []string {
	names := make([]string, len(weights))
	for i, cw := range weights {
		names[i] = cw.Country
	}
	return names
}
