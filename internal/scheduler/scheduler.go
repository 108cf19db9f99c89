// Package scheduler runs recurring background jobs on cron schedules.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a recurring task with its own schedule.
type Job interface {
	Name() string
	Schedule() string // standard 5-field cron spec
	Run(ctx context.Context) error
}

// Scheduler wraps cron with logging and panic isolation per job.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler.
func New(log zerolog.Logger) *Scheduler {
	logger := log.With().Str("component", "scheduler").Logger()
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger{logger}),
		)),
		log: logger,
	}
}

// Register adds a job to the schedule. Returns an error for invalid cron specs.
func (s *Scheduler) Register(job Job) error {
	_, err := s.cron.AddFunc(job.Schedule(), func() {
		start := time.Now()
		log := s.log.With().Str("job", job.Name()).Logger()
		log.Info().Msg("Job started")

		if err := job.Run(context.Background()); err != nil {
			log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Job failed")
			return
		}
		log.Info().Dur("elapsed", time.Since(start)).Msg("Job finished")
	})
	if err != nil {
		return err
	}

	s.log.Info().Str("job", job.Name()).Str("schedule", job.Schedule()).Msg("Job registered")
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and returns a context that completes when running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger adapts zerolog to cron's logger interface (used by Recover).
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
