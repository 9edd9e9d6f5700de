// Package store persists operational state in a local sqlite database:
// the single-instance account guard and endpoint performance metrics.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/apexarb/flasharb/internal/apperror"
)

const schema = `
CREATE TABLE IF NOT EXISTS instance_guard (
	account    TEXT PRIMARY KEY,
	holder     TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS endpoint_metrics (
	url             TEXT NOT NULL,
	recorded_at     INTEGER NOT NULL,
	avg_latency_ms  REAL NOT NULL,
	last_latency_ms REAL NOT NULL,
	probes          INTEGER NOT NULL,
	failures        INTEGER NOT NULL,
	switches        INTEGER NOT NULL,
	is_primary      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_endpoint_metrics_url
	ON endpoint_metrics (url, recorded_at);
`

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// GuardRecord is the persisted single-instance guard.
type GuardRecord struct {
	Account   string
	Holder    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// AcquireGuard claims the guard for account. It succeeds when no record
// exists, the existing record has expired, or force is set (the explicit
// multi-instance override). Otherwise it fails with CodeInstanceGuardHeld.
func (s *Store) AcquireGuard(ctx context.Context, account, holder string, validity time.Duration, force bool) (*GuardRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now()
	var existingHolder string
	var expiresAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT holder, expires_at FROM instance_guard WHERE account = ?`, account,
	).Scan(&existingHolder, &expiresAt)

	switch {
	case err == sql.ErrNoRows:
		// free to claim
	case err != nil:
		return nil, err
	default:
		held := now.Unix() < expiresAt && existingHolder != holder
		if held && !force {
			return nil, apperror.New(apperror.CodeInstanceGuardHeld,
				apperror.WithContext("held by "+existingHolder))
		}
	}

	rec := &GuardRecord{
		Account:   account,
		Holder:    holder,
		CreatedAt: now,
		ExpiresAt: now.Add(validity),
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO instance_guard (account, holder, created_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(account) DO UPDATE SET
		 holder = excluded.holder, created_at = excluded.created_at, expires_at = excluded.expires_at`,
		rec.Account, rec.Holder, rec.CreatedAt.Unix(), rec.ExpiresAt.Unix())
	if err != nil {
		return nil, err
	}

	return rec, tx.Commit()
}

// RefreshGuard extends the guard's validity window. Holders refresh
// periodically so a crashed instance releases the account on expiry.
func (s *Store) RefreshGuard(ctx context.Context, account, holder string, validity time.Duration) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE instance_guard SET expires_at = ? WHERE account = ? AND holder = ?`,
		time.Now().Add(validity).Unix(), account, holder)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.New(apperror.CodeInstanceGuardHeld,
			apperror.WithContext("guard lost; another instance took over"))
	}
	return nil
}

// ReleaseGuard drops the guard if this holder still owns it.
func (s *Store) ReleaseGuard(ctx context.Context, account, holder string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM instance_guard WHERE account = ? AND holder = ?`, account, holder)
	return err
}

// EndpointSample is one persisted endpoint metrics row.
type EndpointSample struct {
	URL           string
	RecordedAt    time.Time
	AvgLatencyMs  float64
	LastLatencyMs float64
	Probes        int64
	Failures      int64
	Switches      int64
	IsPrimary     bool
}

// RecordEndpointMetrics appends one metrics row per endpoint. These rows
// are for operational visibility only; health state rebuilds from scratch
// on startup.
func (s *Store) RecordEndpointMetrics(ctx context.Context, samples []EndpointSample) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO endpoint_metrics
		 (url, recorded_at, avg_latency_ms, last_latency_ms, probes, failures, switches, is_primary)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sm := range samples {
		primary := 0
		if sm.IsPrimary {
			primary = 1
		}
		if _, err := stmt.ExecContext(ctx,
			sm.URL, sm.RecordedAt.Unix(), sm.AvgLatencyMs, sm.LastLatencyMs,
			sm.Probes, sm.Failures, sm.Switches, primary); err != nil {
			return err
		}
	}
	return tx.Commit()
}
