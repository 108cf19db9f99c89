// Package marketdata persists fetched country-weight snapshots so the engine
// can start offline and survive source outages. Snapshots are ephemeral cache
// data: the newest one per source is authoritative, older ones get pruned.
package marketdata

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
)

// Snapshot is one fetched set of country weights, stored as published by the
// source (percent values, source order preserved).
type Snapshot struct {
	ID        string
	Source    string
	FetchedAt time.Time
	Weights   []benchmark.CountryWeight
}

// Repository provides snapshot storage over the cache database.
type Repository struct {
	db *sql.DB
}

// NewRepository creates the repository and its table if needed.
func NewRepository(db *sql.DB) (*Repository, error) {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS weight_snapshots (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_weight_snapshots_source_time
			ON weight_snapshots(source, fetched_at);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create weight_snapshots table: %w", err)
	}
	return &Repository{db: db}, nil
}

// Save stores a snapshot. An empty ID is filled in; FetchedAt defaults to now.
func (r *Repository) Save(ctx context.Context, snap *Snapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = time.Now().UTC()
	}

	payload, err := msgpack.Marshal(snap.Weights)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot payload: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO weight_snapshots (id, source, fetched_at, payload) VALUES (?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.FetchedAt.Unix(), payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Latest returns the most recent snapshot for a source, or nil when none exists.
func (r *Repository) Latest(ctx context.Context, source string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, source, fetched_at, payload
		 FROM weight_snapshots WHERE source = ?
		 ORDER BY fetched_at DESC LIMIT 1`,
		source,
	)

	var (
		snap      Snapshot
		fetchedAt int64
		payload   []byte
	)
	if err := row.Scan(&snap.ID, &snap.Source, &fetchedAt, &payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}

	snap.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	if err := msgpack.Unmarshal(payload, &snap.Weights); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot payload: %w", err)
	}
	return &snap, nil
}

// Prune deletes all but the newest `keep` snapshots for a source.
func (r *Repository) Prune(ctx context.Context, source string, keep int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM weight_snapshots
		 WHERE source = ? AND id NOT IN (
			SELECT id FROM weight_snapshots WHERE source = ?
			ORDER BY fetched_at DESC LIMIT ?
		 )`,
		source, source, keep,
	)
	if err != nil {
		return fmt.Errorf("failed to prune snapshots: %w", err)
	}
	return nil
}
