package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	"github.com/alex-golts/portfolio-diversity/internal/modules/marketdata"
)

type mockSyncer struct {
	snap  *marketdata.Snapshot
	err   error
	calls int
}

func (m *mockSyncer) Sync(_ context.Context) (*marketdata.Snapshot, error) {
	m.calls++
	return m.snap, m.err
}

func TestWeightRefreshJob_Run(t *testing.T) {
	syncer := &mockSyncer{snap: &marketdata.Snapshot{
		Weights: []benchmark.CountryWeight{{Country: "Japan", Weight: 5.11}},
	}}
	job := NewWeightRefreshJob(syncer, "0 7 * * *", zerolog.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, syncer.calls)
	assert.Equal(t, "weight-refresh", job.Name())
	assert.Equal(t, "0 7 * * *", job.Schedule())
}

func TestWeightRefreshJob_RunPropagatesError(t *testing.T) {
	syncer := &mockSyncer{err: errors.New("source unreachable")}
	job := NewWeightRefreshJob(syncer, "@daily", zerolog.Nop())

	assert.Error(t, job.Run(context.Background()))
}

func TestScheduler_RegisterInvalidSpec(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewWeightRefreshJob(&mockSyncer{}, "not a cron spec", zerolog.Nop())

	assert.Error(t, s.Register(job))
}

func TestScheduler_RegisterValidSpec(t *testing.T) {
	s := New(zerolog.Nop())
	job := NewWeightRefreshJob(&mockSyncer{}, "*/5 * * * *", zerolog.Nop())

	assert.NoError(t, s.Register(job))
}

// blockingSyncer holds its run open until released, so tests can observe a
// job mid-flight.
type blockingSyncer struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSyncer) Sync(_ context.Context) (*marketdata.Snapshot, error) {
	b.started <- struct{}{}
	<-b.release
	return &marketdata.Snapshot{}, nil
}

func TestScheduler_StopWaitsForRunningJobs(t *testing.T) {
	s := New(zerolog.Nop())
	syncer := &blockingSyncer{
		started: make(chan struct{}, 10),
		release: make(chan struct{}),
	}
	job := NewWeightRefreshJob(syncer, "@every 1s", zerolog.Nop())
	require.NoError(t, s.Register(job))
	s.Start()

	<-syncer.started
	ctx := s.Stop()

	select {
	case <-ctx.Done():
		t.Fatal("stop context completed while a job was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(syncer.release)
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("stop context never completed after the job finished")
	}
}
