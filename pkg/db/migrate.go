package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const migrateLogPrefix = "db:migrate"

const createSchemaMigrations = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	applied TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// MigrationState is a known migration and when it was applied; Applied is nil while pending.
type MigrationState struct {
	Version string
	Applied *time.Time
}

// RunMigrations applies every migration not yet recorded in schema_migrations, each in its own
// transaction, and returns how many were applied.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, all []Migration) (int, error) {
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return 0, err
	}

	pending := pendingMigrations(all, toSet(applied))
	slog.Info(fmt.Sprintf("%s - %d of %d migrations pending", migrateLogPrefix, len(pending), len(all)))

	for i, m := range pending {
		if err := applyMigration(ctx, pool, m); err != nil {
			return i, err
		}
		slog.Info(fmt.Sprintf("%s - Applied %s", migrateLogPrefix, m.Version))
	}
	return len(pending), nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin %s: %w", migrateLogPrefix, m.Version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("%s - migration %s failed: %w", migrateLogPrefix, m.Version, err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("%s - record %s: %w", migrateLogPrefix, m.Version, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit %s: %w", migrateLogPrefix, m.Version, err)
	}
	return nil
}

// MigrationStatus reports every known migration with its applied time, in apply order.
// Versions recorded in the database but missing from all are appended at the end.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, all []Migration) ([]MigrationState, error) {
	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return nil, err
	}
	return mergeStatus(all, applied), nil
}

func mergeStatus(all []Migration, applied []MigrationState) []MigrationState {
	byVersion := make(map[string]*time.Time, len(applied))
	for _, a := range applied {
		byVersion[a.Version] = a.Applied
	}

	out := make([]MigrationState, 0, len(all))
	known := make(map[string]bool, len(all))
	for _, m := range all {
		known[m.Version] = true
		out = append(out, MigrationState{Version: m.Version, Applied: byVersion[m.Version]})
	}
	for _, a := range applied {
		if !known[a.Version] {
			out = append(out, a)
		}
	}
	return out
}

func appliedMigrations(ctx context.Context, pool *pgxpool.Pool) ([]MigrationState, error) {
	if _, err := pool.Exec(ctx, createSchemaMigrations); err != nil {
		return nil, fmt.Errorf("%s - create schema_migrations: %w", migrateLogPrefix, err)
	}

	rows, err := pool.Query(ctx, `SELECT version, applied FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("%s - list applied migrations: %w", migrateLogPrefix, err)
	}
	defer rows.Close()

	var out []MigrationState
	for rows.Next() {
		var (
			version string
			applied time.Time
		)
		if err := rows.Scan(&version, &applied); err != nil {
			return nil, fmt.Errorf("%s - scan applied migration: %w", migrateLogPrefix, err)
		}
		out = append(out, MigrationState{Version: version, Applied: &applied})
	}
	return out, rows.Err()
}

func toSet(states []MigrationState) map[string]bool {
	set := make(map[string]bool, len(states))
	for _, s := range states {
		set[s.Version] = true
	}
	return set
}
