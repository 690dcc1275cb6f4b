package db

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const migrationsTestPrefix = "db:migrations_test"

func writeMigrations(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatalf("%s - failed to write %s: %v", migrationsTestPrefix, name, err)
		}
	}
	return dir
}

func versions(ms []Migration) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Version)
	}
	return out
}

func TestLoadMigrations_SortedAndFiltered(t *testing.T) {
	dir := writeMigrations(t, map[string]string{
		"003_third.sql":  "THIRD",
		"001_first.sql":  "FIRST",
		"002_second.sql": "SECOND",
		"README.md":      "# Migrations",
		"config.json":    "{}",
	})
	// A directory with a .sql name is not a migration.
	if err := os.Mkdir(filepath.Join(dir, "004_dir.sql"), 0o755); err != nil {
		t.Fatalf("%s - mkdir: %v", migrationsTestPrefix, err)
	}

	got, err := LoadMigrations(dir)
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}

	want := []Migration{
		{Version: "001_first", SQL: "FIRST"},
		{Version: "002_second", SQL: "SECOND"},
		{Version: "003_third", SQL: "THIRD"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("%s - LoadMigrations = %+v, want %+v", migrationsTestPrefix, got, want)
	}
}

func TestLoadMigrations_EmptyDir(t *testing.T) {
	got, err := LoadMigrations(t.TempDir())
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", migrationsTestPrefix, err)
	}
	if len(got) != 0 {
		t.Errorf("%s - expected no migrations, got %d", migrationsTestPrefix, len(got))
	}
}

func TestLoadMigrations_NonExistentDir(t *testing.T) {
	if _, err := LoadMigrations(filepath.Join(t.TempDir(), "nonexistent")); err == nil {
		t.Errorf("%s - expected error for non-existent directory", migrationsTestPrefix)
	}
}

func TestLoadMigrations_EmbeddedMatchesDirectory(t *testing.T) {
	embedded, err := LoadMigrations("")
	if err != nil {
		t.Fatalf("%s - embedded: %v", migrationsTestPrefix, err)
	}
	onDisk, err := LoadMigrations(filepath.Join("..", "..", "migrations"))
	if err != nil {
		t.Fatalf("%s - directory: %v", migrationsTestPrefix, err)
	}
	if !reflect.DeepEqual(embedded, onDisk) {
		t.Errorf("%s - embedded migrations differ from migrations/", migrationsTestPrefix)
	}

	if len(embedded) == 0 || embedded[0].Version != "001_init" {
		t.Fatalf("%s - expected 001_init first, got %v", migrationsTestPrefix, versions(embedded))
	}
	for _, table := range []string{"products", "product_versions", "whitelist_artifacts"} {
		if !strings.Contains(embedded[0].SQL, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("%s - 001_init does not create %s", migrationsTestPrefix, table)
		}
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: "001"}, {Version: "002"}, {Version: "003"}}

	tests := []struct {
		name    string
		applied map[string]bool
		want    []string
	}{
		{"none applied", nil, []string{"001", "002", "003"}},
		{"first applied", map[string]bool{"001": true}, []string{"002", "003"}},
		{"gap", map[string]bool{"001": true, "003": true}, []string{"002"}},
		{"all applied", map[string]bool{"001": true, "002": true, "003": true}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := versions(pendingMigrations(all, tt.applied))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("%s - pending = %v, want %v", migrationsTestPrefix, got, tt.want)
			}
		})
	}
}

func TestMergeStatus(t *testing.T) {
	when := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	all := []Migration{{Version: "001"}, {Version: "002"}}
	applied := []MigrationState{
		{Version: "000_legacy", Applied: &when},
		{Version: "001", Applied: &when},
	}

	got := mergeStatus(all, applied)
	if len(got) != 3 {
		t.Fatalf("%s - expected 3 states, got %+v", migrationsTestPrefix, got)
	}
	if got[0].Version != "001" || got[0].Applied == nil || !got[0].Applied.Equal(when) {
		t.Errorf("%s - 001 should be applied, got %+v", migrationsTestPrefix, got[0])
	}
	if got[1].Version != "002" || got[1].Applied != nil {
		t.Errorf("%s - 002 should be pending, got %+v", migrationsTestPrefix, got[1])
	}
	if got[2].Version != "000_legacy" {
		t.Errorf("%s - unknown applied version should be listed last, got %+v", migrationsTestPrefix, got[2])
	}
}
