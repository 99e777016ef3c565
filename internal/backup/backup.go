// Package backup creates and restores portable archives of a server
// installation: the SQLite database, the active configuration file, and the
// uploaded media assets. Archives are plain tar.gz so they can be inspected
// and unpacked with standard tools.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Backup writes a tar.gz archive containing a consistent snapshot of the
// database at dbPath, plus the config file and the uploads directory when
// those paths are non-empty. The database is snapshotted with VACUUM INTO,
// which is safe against a live WAL database.
func Backup(ctx context.Context, dbPath, cfgPath, uploadsDir, archivePath string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database not found: %w", err)
	}

	// Snapshot the database into a temp file first. Copying the .db file
	// directly would race against WAL checkpoints.
	tmpDir, err := os.MkdirTemp("", "studiotv-backup-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	snapshot := filepath.Join(tmpDir, filepath.Base(dbPath))
	if err := snapshotDB(ctx, dbPath, snapshot); err != nil {
		return err
	}

	f, err := os.Create(archivePath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	tw := tar.NewWriter(gw)

	if err := addFile(tw, snapshot, filepath.Base(dbPath)); err != nil {
		return fmt.Errorf("archiving database: %w", err)
	}
	if cfgPath != "" {
		if err := addFile(tw, cfgPath, filepath.Base(cfgPath)); err != nil {
			return fmt.Errorf("archiving config: %w", err)
		}
	}
	if uploadsDir != "" {
		if err := addDir(tw, uploadsDir, "uploads"); err != nil {
			return fmt.Errorf("archiving uploads: %w", err)
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("finalizing archive: %w", err)
	}
	if err := gw.Close(); err != nil {
		return fmt.Errorf("compressing archive: %w", err)
	}
	return f.Close()
}

// snapshotDB produces a consistent copy of the database using VACUUM INTO.
func snapshotDB(ctx context.Context, src, dst string) error {
	db, err := sql.Open("sqlite", src)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", dst); err != nil {
		return fmt.Errorf("snapshotting database: %w", err)
	}
	return nil
}

// addFile writes a single file into the archive under the given name.
func addFile(tw *tar.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Name:    name,
		Size:    info.Size(),
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(tw, in)
	return err
}

// addDir walks a directory and writes every regular file under prefix/.
// A missing directory is not an error; a fresh install has no uploads yet.
func addDir(tw *tar.Writer, dir, prefix string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		return addFile(tw, path, filepath.ToSlash(filepath.Join(prefix, rel)))
	})
}

// DefaultArchiveName returns a timestamped archive file name.
func DefaultArchiveName(now time.Time) string {
	return fmt.Sprintf("studiotv-backup-%s.tar.gz", now.Format("20060102-150405"))
}
