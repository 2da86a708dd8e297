package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lendstack/docpack/internal/core/domain"
)

// autosaveAliasID is the fixed primary key of the single mutable autosave
// row. Versioned snapshots get their own ids and are never updated.
const autosaveAliasID = "autosave"

type SnapshotRepository struct {
	db *sql.DB
}

func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	package_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	payload JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_kind_created_at ON snapshots(kind, created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// SaveAutosave replaces the single autosave alias row.
func (r *SnapshotRepository) SaveAutosave(ctx context.Context, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO snapshots (id, package_id, kind, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE
SET package_id = EXCLUDED.package_id, payload = EXCLUDED.payload, created_at = EXCLUDED.created_at
`, autosaveAliasID, snap.PackageID, string(domain.SnapshotAutosave), payload, snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert autosave: %w", err)
	}
	return nil
}

// SaveVersion appends an immutable, independently addressable snapshot row.
func (r *SnapshotRepository) SaveVersion(ctx context.Context, snap domain.Snapshot) (string, error) {
	payload, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO snapshots (id, package_id, kind, payload, created_at)
VALUES ($1, $2, $3, $4, $5)
`, snap.ID, snap.PackageID, string(domain.SnapshotVersion), payload, snap.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("insert version: %w", err)
	}
	return snap.ID, nil
}

func (r *SnapshotRepository) LoadAutosave(ctx context.Context) (*domain.Snapshot, error) {
	return r.loadOne(ctx, `
SELECT payload FROM snapshots WHERE id = $1
`, autosaveAliasID)
}

func (r *SnapshotRepository) LoadLatestVersion(ctx context.Context) (*domain.Snapshot, error) {
	return r.loadOne(ctx, `
SELECT payload FROM snapshots WHERE kind = $1 ORDER BY created_at DESC LIMIT 1
`, string(domain.SnapshotVersion))
}

func (r *SnapshotRepository) loadOne(ctx context.Context, query string, arg any) (*domain.Snapshot, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "load snapshot", err)
		}
		return nil, fmt.Errorf("scan snapshot: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		// Corrupt rows are recoverable: callers fall back to older state.
		return nil, domain.WrapError(domain.ErrPersistence, "decode snapshot", err)
	}
	return &snap, nil
}
