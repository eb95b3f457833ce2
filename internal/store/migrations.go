package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "agents",
		sql: `
CREATE TABLE IF NOT EXISTS agents (
	id              INTEGER PRIMARY KEY,
	display_name    TEXT NOT NULL DEFAULT '',
	xp              INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
	rank            TEXT NOT NULL DEFAULT 'INTERN',
	current_mission TEXT,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);`,
	},
	{
		version: 2,
		name:    "agents_rank_index",
		sql:     `CREATE INDEX IF NOT EXISTS idx_agents_xp ON agents(xp DESC);`,
	},
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_version (
	version     INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	applied_at  INTEGER NOT NULL
);`); err != nil {
		return fmt.Errorf("ensure schema_version table: %w", err)
	}

	for _, m := range migrations {
		applied, err := migrationApplied(ctx, db, m.version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if applied {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

func migrationApplied(ctx context.Context, db *sql.DB, version int) (bool, error) {
	var count int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM schema_version WHERE version = ?",
		version,
	).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func applyMigration(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)",
		m.version, m.name, time.Now().Unix(),
	); err != nil {
		return err
	}
	return tx.Commit()
}
