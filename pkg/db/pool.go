// Package db is the PostgreSQL storage of products, product versions and whitelists: pooling,
// schema migrations, seeding and the repository used by the whitelist service.
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// ApplicationName is reported to PostgreSQL in pg_stat_activity.
const ApplicationName = "dependency-analysis"

// NewPool creates a pgx connection pool from the given database URL and verifies connectivity.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := poolConfig(databaseURL)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established (%s@%s/%s)", logPrefix,
		config.ConnConfig.User, config.ConnConfig.Host, config.ConnConfig.Database))
	return pool, nil
}

// poolConfig parses databaseURL and applies pool defaults. Pool settings given in the URL
// (pool_max_conns and friends) win over the defaults.
func poolConfig(databaseURL string) (*pgxpool.Config, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("%s - database URL is empty", logPrefix)
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}

	if !strings.Contains(databaseURL, "pool_max_conns") {
		config.MaxConns = 20
	}
	if !strings.Contains(databaseURL, "pool_min_conns") {
		config.MinConns = 2
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}
	return config, nil
}
