package backup_test

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/studiorstv10-png/studio-rs-tv/internal/backup"
	_ "modernc.org/sqlite"
)

func createTestDB(t *testing.T, dir string) string {
	t.Helper()

	dbPath := filepath.Join(dir, "studiotv.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE terminals (code TEXT PRIMARY KEY, display_name TEXT);
		INSERT INTO terminals (code, display_name) VALUES ('BOX-01', 'Lobby'), ('BOX-02', 'Bar');
	`)
	require.NoError(t, err)
	return dbPath
}

func verifyDB(t *testing.T, dbPath string) {
	t.Helper()

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM terminals").Scan(&count))
	require.Equal(t, 2, count)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	restoreDir := t.TempDir()
	dbPath := createTestDB(t, srcDir)

	cfgPath := filepath.Join(srcDir, "studiotv.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server:\n  port: 8080\n"), 0o644))

	uploadsDir := filepath.Join(srcDir, "uploads")
	require.NoError(t, os.MkdirAll(filepath.Join(uploadsDir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(uploadsDir, "promo.mp4"), []byte("video"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(uploadsDir, "nested", "logo.png"), []byte("png"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "backup.tar.gz")
	ctx := context.Background()

	require.NoError(t, backup.Backup(ctx, dbPath, cfgPath, uploadsDir, archivePath))
	require.NoError(t, backup.Restore(ctx, archivePath, restoreDir, false))

	verifyDB(t, filepath.Join(restoreDir, "studiotv.db"))

	data, err := os.ReadFile(filepath.Join(restoreDir, "studiotv.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, data)

	_, err = os.Stat(filepath.Join(restoreDir, "uploads", "nested", "logo.png"))
	require.NoError(t, err, "nested upload not restored")
}

func TestBackupMissingOptionalParts(t *testing.T) {
	srcDir := t.TempDir()
	dbPath := createTestDB(t, srcDir)
	archivePath := filepath.Join(t.TempDir(), "backup.tar.gz")
	restoreDir := t.TempDir()
	ctx := context.Background()

	// No config, uploads dir does not exist.
	require.NoError(t, backup.Backup(ctx, dbPath, "", filepath.Join(srcDir, "no-such-dir"), archivePath))
	require.NoError(t, backup.Restore(ctx, archivePath, restoreDir, false))
	verifyDB(t, filepath.Join(restoreDir, "studiotv.db"))
}

func TestBackupMissingDB(t *testing.T) {
	err := backup.Backup(context.Background(), filepath.Join(t.TempDir(), "nope.db"), "", "", filepath.Join(t.TempDir(), "a.tar.gz"))
	require.Error(t, err)
}

func TestRestoreRefusesOverwrite(t *testing.T) {
	srcDir := t.TempDir()
	restoreDir := t.TempDir()
	dbPath := createTestDB(t, srcDir)
	createTestDB(t, restoreDir)

	archivePath := filepath.Join(t.TempDir(), "backup.tar.gz")
	ctx := context.Background()

	require.NoError(t, backup.Backup(ctx, dbPath, "", "", archivePath))

	err := backup.Restore(ctx, archivePath, restoreDir, false)
	require.ErrorContains(t, err, "file already exists")

	// Force wins.
	require.NoError(t, backup.Restore(ctx, archivePath, restoreDir, true))
	verifyDB(t, filepath.Join(restoreDir, "studiotv.db"))
}

func TestRestoreRejectsPathTraversal(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "evil.tar.gz")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "../../../etc/evil.db", Size: 4, Mode: 0o644}))
	_, err = tw.Write([]byte("evil"))
	require.NoError(t, err)
	tw.Close()
	gw.Close()
	f.Close()

	err = backup.Restore(context.Background(), archivePath, t.TempDir(), false)
	require.ErrorContains(t, err, "path traversal")
}

func TestRestoreRejectsCorruptArchive(t *testing.T) {
	corruptPath := filepath.Join(t.TempDir(), "corrupt.tar.gz")
	require.NoError(t, os.WriteFile(corruptPath, []byte("not a valid gzip"), 0o644))

	err := backup.Restore(context.Background(), corruptPath, t.TempDir(), false)
	require.Error(t, err)
}

func TestRestoreRejectsArchiveWithoutDB(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "nodb.tar.gz")

	f, err := os.Create(archivePath)
	require.NoError(t, err)
	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{Name: "studiotv.yaml", Size: 5, Mode: 0o644}))
	_, err = tw.Write([]byte("hello"))
	require.NoError(t, err)
	tw.Close()
	gw.Close()
	f.Close()

	err = backup.Restore(context.Background(), archivePath, t.TempDir(), false)
	require.ErrorContains(t, err, "does not contain a .db file")
}
