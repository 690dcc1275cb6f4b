package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearData empties whitelist_artifacts, product_versions and products in one transaction
// and resets their id sequences. schema_migrations is left alone.
func ClearData(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin failed: %w", clearLogPrefix, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var products, versions, artifacts int64
	err = tx.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM products),
		(SELECT count(*) FROM product_versions),
		(SELECT count(*) FROM whitelist_artifacts)`).Scan(&products, &versions, &artifacts)
	if err != nil {
		return fmt.Errorf("%s - count failed: %w", clearLogPrefix, err)
	}

	if _, err := tx.Exec(ctx, `TRUNCATE TABLE whitelist_artifacts, product_versions, products RESTART IDENTITY`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Cleared %d products, %d versions, %d whitelisted artifacts", clearLogPrefix, products, versions, artifacts))
	return nil
}
