package db

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matejonnet/dependency-analysis/pkg/bootstrap"
	"github.com/matejonnet/dependency-analysis/pkg/semver"
)

const seedLogPrefix = "db:seed"

// SeedFromFile loads a seed file and upserts its products, product versions and whitelist
// entries in one transaction. An empty path falls back to the bootstrap search order.
// If baseDir is non-empty, path must resolve to a location under baseDir.
// Idempotent: existing rows are kept.
func SeedFromFile(ctx context.Context, pool *pgxpool.Pool, path string, baseDir string) error {
	if path != "" && baseDir != "" {
		absPath, err := resolveUnder(baseDir, path)
		if err != nil {
			return err
		}
		path = absPath
	}
	slog.Info(fmt.Sprintf("%s - seeding from %q", seedLogPrefix, path))

	cfg, err := bootstrap.LoadSeedConfig(path)
	if err != nil {
		return fmt.Errorf("%s - load seed config: %w", seedLogPrefix, err)
	}
	if err := bootstrap.Validate(cfg); err != nil {
		return err
	}
	if len(cfg.Products) == 0 {
		slog.Info(fmt.Sprintf("%s - no products to seed", seedLogPrefix))
		return nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s - begin tx: %w", seedLogPrefix, err)
	}
	defer tx.Rollback(ctx)

	for _, p := range cfg.Products {
		var desc *string
		if p.Description != "" {
			desc = &p.Description
		}

		var productID int64
		err := tx.QueryRow(ctx,
			`INSERT INTO products (name, description)
			 VALUES ($1, $2)
			 ON CONFLICT (name) DO UPDATE SET
			   description = COALESCE(EXCLUDED.description, products.description)
			 RETURNING id`,
			p.Name, desc).Scan(&productID)
		if err != nil {
			return fmt.Errorf("%s - insert product %s: %w", seedLogPrefix, p.Name, err)
		}

		for _, v := range p.Versions {
			_, err = tx.Exec(ctx,
				`INSERT INTO product_versions (product_id, version, current_product_milestone_id)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (product_id, version) DO NOTHING`,
				productID, v.Version, v.CurrentProductMilestoneID)
			if err != nil {
				return fmt.Errorf("%s - insert version %s %s: %w", seedLogPrefix, p.Name, v.Version, err)
			}
		}

		for _, coord := range p.Whitelist {
			// Validate already rejected malformed coordinates.
			gav, _ := semver.ParseGAV(coord)
			_, err = tx.Exec(ctx,
				`INSERT INTO whitelist_artifacts (product_id, group_id, artifact_id, version)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (product_id, group_id, artifact_id, version) DO NOTHING`,
				productID, gav.GroupID, gav.ArtifactID, gav.Version)
			if err != nil {
				return fmt.Errorf("%s - insert whitelist entry %s for %s: %w", seedLogPrefix, coord, p.Name, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s - commit: %w", seedLogPrefix, err)
	}
	products, versions, artifacts := cfg.Counts()
	slog.Info(fmt.Sprintf("%s - seeded %d products, %d versions, %d whitelist entries", seedLogPrefix, products, versions, artifacts))
	return nil
}

func resolveUnder(baseDir, path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%s - resolve path: %w", seedLogPrefix, err)
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("%s - resolve base dir: %w", seedLogPrefix, err)
	}
	rel, err := filepath.Rel(absBase, absPath)
	if err != nil {
		return "", fmt.Errorf("%s - path not under base: %w", seedLogPrefix, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s - path must be under base directory", seedLogPrefix)
	}
	return absPath, nil
}
