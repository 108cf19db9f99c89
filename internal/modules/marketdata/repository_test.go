package marketdata

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A memory database exists per connection; keep the pool at one.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewRepository(db)
	require.NoError(t, err)
	return repo
}

func testSnapshotWeights() []benchmark.CountryWeight {
	return []benchmark.CountryWeight{
		{Country: "United States", Weight: 62.94},
		{Country: "Japan", Weight: 5.11},
		{Country: "United Kingdom", Weight: 3.42},
	}
}

func TestRepository_SaveAndLatest(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	snap := &Snapshot{Source: "ssga", Weights: testSnapshotWeights()}
	require.NoError(t, repo.Save(ctx, snap))
	assert.NotEmpty(t, snap.ID, "Save should assign an ID")

	loaded, err := repo.Latest(ctx, "ssga")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.ID, loaded.ID)
	// Payload round-trips with source order preserved.
	assert.Equal(t, testSnapshotWeights(), loaded.Weights)
}

func TestRepository_LatestReturnsNewest(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	old := &Snapshot{
		Source:    "ssga",
		FetchedAt: time.Now().UTC().Add(-24 * time.Hour),
		Weights:   []benchmark.CountryWeight{{Country: "Japan", Weight: 100}},
	}
	require.NoError(t, repo.Save(ctx, old))

	fresh := &Snapshot{Source: "ssga", Weights: testSnapshotWeights()}
	require.NoError(t, repo.Save(ctx, fresh))

	loaded, err := repo.Latest(ctx, "ssga")
	require.NoError(t, err)
	assert.Equal(t, fresh.ID, loaded.ID)
}

func TestRepository_LatestNoRows(t *testing.T) {
	repo := setupTestRepo(t)

	loaded, err := repo.Latest(context.Background(), "ssga")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRepository_SourcesAreIsolated(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &Snapshot{Source: "a", Weights: testSnapshotWeights()}))

	loaded, err := repo.Latest(ctx, "b")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestRepository_Prune(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-12 * time.Hour)
	for i := 0; i < 5; i++ {
		snap := &Snapshot{
			Source:    "ssga",
			FetchedAt: base.Add(time.Duration(i) * time.Hour),
			Weights:   testSnapshotWeights(),
		}
		require.NoError(t, repo.Save(ctx, snap))
	}

	require.NoError(t, repo.Prune(ctx, "ssga", 2))

	var count int
	require.NoError(t, repo.db.QueryRow(
		`SELECT COUNT(*) FROM weight_snapshots WHERE source = 'ssga'`,
	).Scan(&count))
	assert.Equal(t, 2, count)

	// The newest snapshot survives pruning.
	loaded, err := repo.Latest(ctx, "ssga")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, base.Add(4*time.Hour).Unix(), loaded.FetchedAt.Unix())
}

// fakeFetcher returns canned weights or a canned error.
type fakeFetcher struct {
	weights []benchmark.CountryWeight
	err     error
	calls   int
}

func (f *fakeFetcher) FetchCountryWeights(_ context.Context) ([]benchmark.CountryWeight, error) {
	f.calls++
	return f.weights, f.err
}

func TestSyncService_SyncStoresSnapshot(t *testing.T) {
	repo := setupTestRepo(t)
	fetcher := &fakeFetcher{weights: testSnapshotWeights()}
	svc := NewSyncService(fetcher, repo, "ssga", zerolog.Nop())

	snap, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testSnapshotWeights(), snap.Weights)

	loaded, err := repo.Latest(context.Background(), "ssga")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, snap.ID, loaded.ID)
}

func TestSyncService_CountryWeightsFallsBackToCache(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	// Seed the cache, then make the fetcher fail.
	require.NoError(t, repo.Save(ctx, &Snapshot{Source: "ssga", Weights: testSnapshotWeights()}))
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	svc := NewSyncService(fetcher, repo, "ssga", zerolog.Nop())

	weights, err := svc.CountryWeights(ctx)
	require.NoError(t, err)
	assert.Equal(t, testSnapshotWeights(), weights)
}

func TestSyncService_CountryWeightsNoCacheNoSource(t *testing.T) {
	repo := setupTestRepo(t)
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	svc := NewSyncService(fetcher, repo, "ssga", zerolog.Nop())

	_, err := svc.CountryWeights(context.Background())
	assert.Error(t, err)
}
