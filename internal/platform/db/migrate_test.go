package db

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMigrations_SortsByVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "002_catalog.sql", "CREATE TABLE b();")
	writeFile(t, dir, "001_accounts.sql", "CREATE TABLE a();")
	writeFile(t, dir, "010_visits.sql", "CREATE TABLE c();")
	writeFile(t, dir, "README.md", "ignored")
	writeFile(t, dir, "notes_misc.sql", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "003_dir"), 0o755); err != nil {
		t.Fatal(err)
	}

	m := NewMigrator(nil, dir)
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) != 3 {
		t.Fatalf("expected 3 migrations, got %d", len(migrations))
	}
	want := []int{1, 2, 10}
	for i, v := range want {
		if migrations[i].Version != v {
			t.Errorf("migration %d: expected version %d, got %d", i, v, migrations[i].Version)
		}
	}
	if migrations[0].SQL != "CREATE TABLE a();" {
		t.Errorf("unexpected SQL: %q", migrations[0].SQL)
	}
}

func TestLoadMigrations_DuplicateVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "001_a.sql", "")
	writeFile(t, dir, "0001_b.sql", "")

	if _, err := NewMigrator(nil, dir).LoadMigrations(); err == nil {
		t.Fatal("expected duplicate version error")
	}
}

func TestLoadMigrations_MissingDir(t *testing.T) {
	m := NewMigrator(nil, filepath.Join(t.TempDir(), "nope"))
	if _, err := m.LoadMigrations(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestLoadMigrations_RepositoryMigrations(t *testing.T) {
	m := NewMigrator(nil, "../../../migrations")
	migrations, err := m.LoadMigrations()
	if err != nil {
		t.Fatalf("LoadMigrations: %v", err)
	}
	if len(migrations) == 0 {
		t.Fatal("expected repository migrations to load")
	}
	if migrations[0].Version != 1 {
		t.Errorf("expected first migration version 1, got %d", migrations[0].Version)
	}
}
