// Package main is the entrypoint for the dependency-analysis server (binary name "da-server").
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/matejonnet/dependency-analysis/internal/config"
	"github.com/matejonnet/dependency-analysis/internal/server"
	"github.com/matejonnet/dependency-analysis/pkg/db"
	"github.com/matejonnet/dependency-analysis/pkg/whitelist"
)

const defaultTestDB = "da_test"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "da-server: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "da-server",
		Short: "JSON-RPC server for product whitelists and dependency analysis",
		Long: `da-server serves JSON-RPC 2.0 over WebSocket (and optionally a NATS subject) for
whitelisting Maven artifacts per product.

Running without a command starts the server.

Environment: DATABASE_URL, MIGRATION_PATH, HTTP_ADDR (default :8080), WS_PATH (default /ws),
COMMS_ENABLED, COMMS_URL, RPC_SUBJECT, SEED_FILE, LOG_LEVEL. A .env file is read first when present.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE:         runServe,
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the server (default)",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		newMigrateCmd(),
		&cobra.Command{
			Use:   "clear",
			Short: "Truncate all whitelist data; schema is preserved",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, _ *config.Config, pool *pgxpool.Pool) error {
					return db.ClearData(ctx, pool)
				})
			},
		},
		&cobra.Command{
			Use:   "seed [file]",
			Short: "Seed products, versions and whitelists from a JSON seed file",
			Long:  "Seed from the given file, SEED_FILE, DA_SEED_FILE, config/seed.json or seed.json, in that order. A file given on the command line must be under the working directory.",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runSeed,
		},
		&cobra.Command{
			Use:   "ensure-db [name]",
			Short: "Create the database if missing (default " + defaultTestDB + ") on the DATABASE_URL host",
			Args:  cobra.MaximumNArgs(1),
			RunE:  runEnsureDB,
		},
		&cobra.Command{
			Use:   "methods",
			Short: "Print the registered JSON-RPC methods with their parameter schemas",
			Args:  cobra.NoArgs,
			RunE:  runMethods,
		},
	)
	return root
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending database migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					all, err := db.LoadMigrations(migrationPath(cmd, cfg))
					if err != nil {
						return err
					}
					applied, err := db.RunMigrations(ctx, pool, all)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Applied %d of %d migrations.\n", applied, len(all))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show which migrations are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withPool(cmd.Context(), func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
					all, err := db.LoadMigrations(migrationPath(cmd, cfg))
					if err != nil {
						return err
					}
					states, err := db.MigrationStatus(ctx, pool, all)
					if err != nil {
						return err
					}
					printMigrationStatus(cmd.OutOrStdout(), states)
					return nil
				})
			},
		},
	)
	migrate.PersistentFlags().String("path", "", "migration directory (default MIGRATION_PATH, else the embedded migrations)")
	return migrate
}

func runServe(cmd *cobra.Command, _ []string) error {
	return server.Run(cmd.Context())
}

// migrationPath is the --path flag, or MIGRATION_PATH when the flag is empty.
func migrationPath(cmd *cobra.Command, cfg *config.Config) string {
	if p, _ := cmd.Flags().GetString("path"); p != "" {
		return p
	}
	return cfg.MigrationPath
}

// withPool loads config, connects to DATABASE_URL and runs fn with the pool.
func withPool(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	server.SetupLogging(cfg)
	return cfg, nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	seedPath := cfg.SeedFile
	baseDir := ""
	if len(args) == 1 {
		seedPath = args[0]
		if baseDir, err = os.Getwd(); err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
	}

	pool, err := db.NewPool(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.SeedFromFile(cmd.Context(), pool, seedPath, baseDir); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	return nil
}

func runEnsureDB(cmd *cobra.Command, args []string) error {
	dbName := defaultTestDB
	if len(args) == 1 && args[0] != "" {
		dbName = args[0]
	}
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	targetURL, err := withDatabaseName(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	created, err := db.EnsureDatabase(cmd.Context(), targetURL)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.OutOrStdout(), "Database %q created.\n", dbName)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Database %q already exists.\n", dbName)
	}
	return nil
}

// withDatabaseName replaces the path of a postgres URL with dbName, keeping the query.
func withDatabaseName(databaseURL, dbName string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	u.Path = "/" + dbName
	return u.String(), nil
}

func printMigrationStatus(w io.Writer, states []db.MigrationState) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tAPPLIED")
	pending := 0
	for _, st := range states {
		applied := "pending"
		if st.Applied != nil {
			applied = st.Applied.UTC().Format(time.RFC3339)
		} else {
			pending++
		}
		fmt.Fprintf(tw, "%s\t%s\n", st.Version, applied)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "%d pending.\n", pending)
}

func runMethods(cmd *cobra.Command, _ []string) error {
	reg, err := server.BuildRegistry(whitelist.NewService(whitelist.NewServiceParams{}))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(server.DescribeMethods(reg))
}
