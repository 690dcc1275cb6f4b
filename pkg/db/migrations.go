package db

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/matejonnet/dependency-analysis/migrations"
)

const migrationsLogPrefix = "db:migrations"

// Migration is one forward-only schema change. Version is the file name without ".sql".
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations reads the .sql files of dir sorted by name. An empty dir loads the
// migrations embedded in the binary.
func LoadMigrations(dir string) ([]Migration, error) {
	if dir == "" {
		return loadMigrationsFS(migrations.FS, "embedded")
	}
	return loadMigrationsFS(os.DirFS(dir), dir)
}

func loadMigrationsFS(fsys fs.FS, source string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("%s - failed to read migration dir %s: %w", migrationsLogPrefix, source, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to read %s/%s: %w", migrationsLogPrefix, source, name, err)
		}
		out = append(out, Migration{Version: strings.TrimSuffix(name, ".sql"), SQL: string(data)})
	}
	slog.Info(fmt.Sprintf("%s - Loaded %d migrations from %s", migrationsLogPrefix, len(out), source))
	return out, nil
}

// pendingMigrations returns the migrations whose version is not in applied, keeping their order.
func pendingMigrations(all []Migration, applied map[string]bool) []Migration {
	var pending []Migration
	for _, m := range all {
		if !applied[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}
