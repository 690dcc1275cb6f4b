package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for products, product versions and whitelists.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%s - ping failed: %w", repoLogPrefix, err)
	}
	return nil
}

// =========================================================================
// PRODUCT OPERATIONS
// =========================================================================

// GetProduct finds a product by ID. Returns nil, nil when it does not exist.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*Product, error) {
	slog.Debug(fmt.Sprintf("%s - GetProduct id=%d", repoLogPrefix, id))

	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created
		 FROM products
		 WHERE id = $1`, id)

	return scanProduct(row)
}

// GetProductByName finds a product by its unique name. Returns nil, nil when it does not exist.
func (r *Repository) GetProductByName(ctx context.Context, name string) (*Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, name, description, created
		 FROM products
		 WHERE name = $1`, name)

	return scanProduct(row)
}

// ProductExists reports whether a product with the given ID exists.
func (r *Repository) ProductExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s - ProductExists failed: %w", repoLogPrefix, err)
	}
	return exists, nil
}

// UpsertProduct creates a product or updates the description of an existing one with the same name.
func (r *Repository) UpsertProduct(ctx context.Context, name string, description *string) (*Product, error) {
	slog.Info(fmt.Sprintf("%s - UpsertProduct name=%s", repoLogPrefix, name))

	row := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description)
		 VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET
		   description = COALESCE($2, products.description)
		 RETURNING id, name, description, created`,
		name, description)

	return scanProduct(row)
}

// =========================================================================
// PRODUCT VERSION OPERATIONS
// =========================================================================

// GetProductVersion finds a product version by ID. Returns nil, nil when it does not exist.
func (r *Repository) GetProductVersion(ctx context.Context, id int64) (*ProductVersion, error) {
	slog.Debug(fmt.Sprintf("%s - GetProductVersion id=%d", repoLogPrefix, id))

	row := r.pool.QueryRow(ctx,
		`SELECT id, product_id, version, current_product_milestone_id, created
		 FROM product_versions
		 WHERE id = $1`, id)

	return scanProductVersion(row)
}

// ListProductVersions returns the versions of a product in insertion order.
// Callers that need version ordering sort the result themselves.
func (r *Repository) ListProductVersions(ctx context.Context, productID int64) ([]ProductVersion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, version, current_product_milestone_id, created
		 FROM product_versions
		 WHERE product_id = $1
		 ORDER BY id`, productID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListProductVersions failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var versions []ProductVersion
	for rows.Next() {
		var v ProductVersion
		if err := rows.Scan(&v.ID, &v.ProductID, &v.Version, &v.CurrentProductMilestoneID, &v.Created); err != nil {
			return nil, fmt.Errorf("%s - scan product versions failed: %w", repoLogPrefix, err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - ListProductVersions rows: %w", repoLogPrefix, err)
	}
	return versions, nil
}

// UpsertProductVersion creates a product version if it does not exist and returns the stored row.
func (r *Repository) UpsertProductVersion(ctx context.Context, productID int64, version string, milestoneID *int64) (*ProductVersion, error) {
	slog.Info(fmt.Sprintf("%s - UpsertProductVersion productID=%d version=%s", repoLogPrefix, productID, version))

	row := r.pool.QueryRow(ctx,
		`INSERT INTO product_versions (product_id, version, current_product_milestone_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (product_id, version) DO UPDATE SET
		   current_product_milestone_id = COALESCE($3, product_versions.current_product_milestone_id)
		 RETURNING id, product_id, version, current_product_milestone_id, created`,
		productID, version, milestoneID)

	return scanProductVersion(row)
}

// =========================================================================
// WHITELIST OPERATIONS
// =========================================================================

// AddWhitelistArtifact whitelists a GAV for a product. Returns true when a new row was
// inserted and false when the artifact was already on the whitelist.
func (r *Repository) AddWhitelistArtifact(ctx context.Context, productID int64, groupID, artifactID, version string) (bool, error) {
	slog.Debug(fmt.Sprintf("%s - AddWhitelistArtifact productID=%d %s:%s:%s", repoLogPrefix, productID, groupID, artifactID, version))

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO whitelist_artifacts (product_id, group_id, artifact_id, version)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, group_id, artifact_id, version) DO NOTHING`,
		productID, groupID, artifactID, version)
	if err != nil {
		return false, fmt.Errorf("%s - AddWhitelistArtifact failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListWhitelist returns the whitelisted artifacts of a product ordered by groupId, artifactId, version.
func (r *Repository) ListWhitelist(ctx context.Context, productID int64) ([]WhitelistArtifact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, product_id, group_id, artifact_id, version, created
		 FROM whitelist_artifacts
		 WHERE product_id = $1
		 ORDER BY group_id, artifact_id, version`, productID)
	if err != nil {
		return nil, fmt.Errorf("%s - ListWhitelist failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	var artifacts []WhitelistArtifact
	for rows.Next() {
		var a WhitelistArtifact
		if err := rows.Scan(&a.ID, &a.ProductID, &a.GroupID, &a.ArtifactID, &a.Version, &a.Created); err != nil {
			return nil, fmt.Errorf("%s - scan whitelist failed: %w", repoLogPrefix, err)
		}
		artifacts = append(artifacts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - ListWhitelist rows: %w", repoLogPrefix, err)
	}
	return artifacts, nil
}

// =========================================================================
// SCAN HELPERS
// =========================================================================

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Created)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan product failed: %w", repoLogPrefix, err)
	}
	return &p, nil
}

func scanProductVersion(row pgx.Row) (*ProductVersion, error) {
	var v ProductVersion
	err := row.Scan(&v.ID, &v.ProductID, &v.Version, &v.CurrentProductMilestoneID, &v.Created)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan product version failed: %w", repoLogPrefix, err)
	}
	return &v, nil
}
