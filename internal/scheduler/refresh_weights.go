package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/modules/marketdata"
)

// Syncer defines the contract for market data sync operations.
// Used by the refresh job to enable testing with mocks.
type Syncer interface {
	Sync(ctx context.Context) (*marketdata.Snapshot, error)
}

// WeightRefreshJob periodically refreshes the country-weight snapshot cache.
// The running process keeps serving its startup tables (they are immutable
// for the process lifetime); the refreshed snapshot takes effect on the next
// restart.
type WeightRefreshJob struct {
	syncer   Syncer
	schedule string
	log      zerolog.Logger
}

// NewWeightRefreshJob creates the refresh job with the given cron schedule.
func NewWeightRefreshJob(syncer Syncer, schedule string, log zerolog.Logger) *WeightRefreshJob {
	return &WeightRefreshJob{
		syncer:   syncer,
		schedule: schedule,
		log:      log.With().Str("job", "weight-refresh").Logger(),
	}
}

// Name implements Job.
func (j *WeightRefreshJob) Name() string { return "weight-refresh" }

// Schedule implements Job.
func (j *WeightRefreshJob) Schedule() string { return j.schedule }

// Run fetches and caches a fresh snapshot.
func (j *WeightRefreshJob) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	snap, err := j.syncer.Sync(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("countries", len(snap.Weights)).
		Msg("Snapshot cached; takes effect on next restart")
	return nil
}
