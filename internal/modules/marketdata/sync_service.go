package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
)

// keepSnapshots is how many historical snapshots to retain per source.
const keepSnapshots = 10

// Fetcher retrieves country weights from a remote source.
// Implemented by the ssga client; mocked in tests.
type Fetcher interface {
	FetchCountryWeights(ctx context.Context) ([]benchmark.CountryWeight, error)
}

// SyncService fetches country weights and maintains the snapshot cache.
type SyncService struct {
	fetcher Fetcher
	repo    *Repository
	source  string
	log     zerolog.Logger
}

// NewSyncService creates a new sync service. The source label identifies the
// fetcher's origin in the snapshot cache (e.g. the source URL).
func NewSyncService(fetcher Fetcher, repo *Repository, source string, log zerolog.Logger) *SyncService {
	return &SyncService{
		fetcher: fetcher,
		repo:    repo,
		source:  source,
		log:     log.With().Str("service", "marketdata-sync").Logger(),
	}
}

// Sync fetches fresh weights and stores them as a new snapshot.
func (s *SyncService) Sync(ctx context.Context) (*Snapshot, error) {
	weights, err := s.fetcher.FetchCountryWeights(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch country weights: %w", err)
	}

	snap := &Snapshot{
		Source:    s.source,
		FetchedAt: time.Now().UTC(),
		Weights:   weights,
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		return nil, err
	}
	if err := s.repo.Prune(ctx, s.source, keepSnapshots); err != nil {
		s.log.Warn().Err(err).Msg("Failed to prune old snapshots")
	}

	s.log.Info().Int("countries", len(weights)).Msg("Country weights synced")
	return snap, nil
}

// CountryWeights returns fresh weights, falling back to the newest cached
// snapshot when the source is unreachable (stale data > no data).
func (s *SyncService) CountryWeights(ctx context.Context) ([]benchmark.CountryWeight, error) {
	snap, err := s.Sync(ctx)
	if err == nil {
		return snap.Weights, nil
	}

	cached, cacheErr := s.repo.Latest(ctx, s.source)
	if cacheErr != nil {
		return nil, fmt.Errorf("fetch failed (%w) and cache lookup failed: %w", err, cacheErr)
	}
	if cached == nil {
		return nil, fmt.Errorf("fetch failed and no cached snapshot available: %w", err)
	}

	s.log.Warn().
		Err(err).
		Time("fetched_at", cached.FetchedAt).
		Msg("Fetch failed, using stale cached snapshot")
	return cached.Weights, nil
}
