package db

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/jackc/pgx/v5"
)

const ensureLogPrefix = "db:ensure"

// maintenanceDatabase is connected to while the target database may not exist yet.
const maintenanceDatabase = "postgres"

// safeDBName matches allowed database names (alphanumeric and underscore only).
var safeDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// EnsureDatabase creates the database named in databaseURL when it does not exist, connecting
// through the maintenance database on the same server. It reports whether it created it.
// Both URL and keyword/value connection strings are accepted.
func EnsureDatabase(ctx context.Context, databaseURL string) (bool, error) {
	target, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return false, fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	name := target.Database
	if name == "" {
		return false, fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	}
	if !safeDBName.MatchString(name) {
		return false, fmt.Errorf("%s - database name %q contains invalid characters", ensureLogPrefix, name)
	}

	conn, err := pgx.ConnectConfig(ctx, maintenanceConfig(target))
	if err != nil {
		return false, fmt.Errorf("%s - failed to connect to %s: %w", ensureLogPrefix, maintenanceDatabase, err)
	}
	defer conn.Close(ctx)

	var exists bool
	if err := conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s - failed to check database: %w", ensureLogPrefix, err)
	}
	if exists {
		slog.Info(fmt.Sprintf("%s - Database %q exists", ensureLogPrefix, name))
		return false, nil
	}

	slog.Info(fmt.Sprintf("%s - Creating database %q", ensureLogPrefix, name))
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		return false, fmt.Errorf("%s - CREATE DATABASE failed: %w", ensureLogPrefix, err)
	}
	return true, nil
}

// maintenanceConfig copies target onto the maintenance database. CREATE DATABASE cannot run
// in a prepared statement, so the copy uses the simple protocol.
func maintenanceConfig(target *pgx.ConnConfig) *pgx.ConnConfig {
	admin := target.Copy()
	admin.Database = maintenanceDatabase
	admin.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	return admin
}
