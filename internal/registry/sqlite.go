package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver (no CGO required)

	"github.com/costlens/costlens-engine/internal/engine/anomaly"
)

// migrations define the snapshot store schema. Version is tracked in the
// schema_versions table.
var migrations = []struct {
	version int
	sql     string
}{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_versions (
    version     INTEGER PRIMARY KEY,
    applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS model_snapshots (
    id          TEXT PRIMARY KEY,
    tenant_id   TEXT NOT NULL,
    version     INTEGER NOT NULL,
    payload     TEXT NOT NULL,
    trained_at  DATETIME NOT NULL,
    UNIQUE(tenant_id, version)
);
CREATE INDEX IF NOT EXISTS idx_snapshots_tenant ON model_snapshots(tenant_id, version DESC);
`,
	},
}

// SQLiteStore persists model snapshots. Each snapshot is written as a new
// row in one transaction, so the previous version stays readable until the
// new one is fully committed.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the snapshot database and applies pending
// migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	// Snapshot writes are rare; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	var current int
	row := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_versions`)
	if err := row.Scan(&current); err != nil {
		current = 0
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_versions (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// Save writes the snapshot as a new immutable row.
func (s *SQLiteStore) Save(ctx context.Context, snapshot *anomaly.ModelSnapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO model_snapshots (id, tenant_id, version, payload, trained_at) VALUES (?, ?, ?, ?, ?)`,
		snapshot.ID, snapshot.TenantID, snapshot.Version, string(payload), snapshot.TrainedAt)
	if err != nil {
		return fmt.Errorf("insert snapshot %s v%d: %w", snapshot.TenantID, snapshot.Version, err)
	}
	return nil
}

// Latest loads the highest-version snapshot for the tenant.
func (s *SQLiteStore) Latest(ctx context.Context, tenantID string) (*anomaly.ModelSnapshot, error) {
	var payload string
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM model_snapshots WHERE tenant_id = ? ORDER BY version DESC LIMIT 1`, tenantID)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load latest snapshot for %s: %w", tenantID, err)
	}

	var snapshot anomaly.ModelSnapshot
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot for %s: %w", tenantID, err)
	}
	return &snapshot, nil
}

// LatestVersion returns the highest stored version for the tenant, 0 when
// none exists.
func (s *SQLiteStore) LatestVersion(ctx context.Context, tenantID string) (int, error) {
	var version int
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM model_snapshots WHERE tenant_id = ?`, tenantID)
	if err := row.Scan(&version); err != nil {
		return 0, fmt.Errorf("latest version for %s: %w", tenantID, err)
	}
	return version, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
