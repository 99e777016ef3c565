package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

func tempDB(t *testing.T) *SQLiteStore {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New(%q): %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew_creates_database(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.db")
	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestNew_invalid_path(t *testing.T) {
	_, err := New("/nonexistent/path/to/db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestTx_commit(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (id, name) VALUES (1, 'lobby')")
		return err
	})
	if err != nil {
		t.Fatalf("Tx commit: %v", err)
	}

	var name string
	err = s.DB().QueryRowContext(ctx, "SELECT name FROM test WHERE id = 1").Scan(&name)
	if err != nil {
		t.Fatalf("query after commit: %v", err)
	}
	if name != "lobby" {
		t.Errorf("got name %q, want %q", name, "lobby")
	}
}

func TestTx_rollback(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx, "CREATE TABLE test (id INTEGER PRIMARY KEY, name TEXT)")
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	err = s.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (id, name) VALUES (1, 'atrium')")
		if err != nil {
			return err
		}
		return sql.ErrNoRows // Simulate an error to trigger rollback
	})
	if err != sql.ErrNoRows {
		t.Fatalf("expected ErrNoRows, got %v", err)
	}

	var count int
	err = s.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM test").Scan(&count)
	if err != nil {
		t.Fatalf("count after rollback: %v", err)
	}
	if count != 0 {
		t.Errorf("got count %d after rollback, want 0", count)
	}
}

func TestMigrate_applies_in_order(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	migrations := []plugin.Migration{
		{
			Version:     1,
			Description: "create terminals table",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE fleet_terminals (code TEXT PRIMARY KEY, title TEXT)")
				return err
			},
		},
		{
			Version:     2,
			Description: "add grp column",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("ALTER TABLE fleet_terminals ADD COLUMN grp TEXT")
				return err
			},
		},
	}

	if err := s.Migrate(ctx, "fleet", migrations); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	_, err := s.DB().ExecContext(ctx,
		"INSERT INTO fleet_terminals (code, title, grp) VALUES ('BOX-01', 'Lobby', 'hq')")
	if err != nil {
		t.Fatalf("insert after migrations: %v", err)
	}
}

func TestMigrate_is_idempotent(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	applied := 0
	migrations := []plugin.Migration{
		{
			Version:     1,
			Description: "create table",
			Up: func(tx *sql.Tx) error {
				applied++
				_, err := tx.Exec("CREATE TABLE once_only (id INTEGER)")
				return err
			},
		},
	}

	if err := s.Migrate(ctx, "fleet", migrations); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := s.Migrate(ctx, "fleet", migrations); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if applied != 1 {
		t.Errorf("migration applied %d times, want 1", applied)
	}
}

func TestMigrate_failure_rolls_back(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	migrations := []plugin.Migration{
		{
			Version:     1,
			Description: "fails midway",
			Up: func(tx *sql.Tx) error {
				if _, err := tx.Exec("CREATE TABLE partial (id INTEGER)"); err != nil {
					return err
				}
				return boom
			},
		},
	}

	err := s.Migrate(ctx, "fleet", migrations)
	if !errors.Is(err, boom) {
		t.Fatalf("Migrate error = %v, want %v", err, boom)
	}

	var count int
	err = s.DB().QueryRowContext(ctx,
		"SELECT COUNT(*) FROM _migrations WHERE module_name = 'fleet'").Scan(&count)
	if err != nil {
		t.Fatalf("query migrations table: %v", err)
	}
	if count != 0 {
		t.Errorf("got %d recorded migrations after failure, want 0", count)
	}
}

func TestCheckVersion_first_run_and_older_binary(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
		t.Fatalf("first CheckVersion: %v", err)
	}

	// Same version passes again.
	if err := s.CheckVersion(ctx, "1.2.0"); err != nil {
		t.Fatalf("second CheckVersion: %v", err)
	}

	// Older binary must be refused.
	err := s.CheckVersion(ctx, "1.1.0")
	if !errors.Is(err, ErrNewerSchema) {
		t.Errorf("CheckVersion with older binary = %v, want ErrNewerSchema", err)
	}
}

func TestCheckVersion_dev_always_passes(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if err := s.CheckVersion(ctx, "9.9.9"); err != nil {
		t.Fatalf("CheckVersion(9.9.9): %v", err)
	}
	if err := s.CheckVersion(ctx, "dev"); err != nil {
		t.Errorf("CheckVersion(dev) after 9.9.9: %v", err)
	}
}
