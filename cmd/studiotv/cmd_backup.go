package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/internal/backup"
	"github.com/studiorstv10-png/studio-rs-tv/internal/server"
)

// runBackup implements the "studiotv backup" subcommand. It archives the
// database, the active config file, and the uploads directory into a tar.gz.
func runBackup(args []string) {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	configPath := fs.String("config", "", "path to configuration file")
	out := fs.String("out", "", "archive output path (default: timestamped file in the current directory)")
	_ = fs.Parse(args)

	viperCfg, err := server.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	dbPath := viperCfg.GetString("database.path")
	uploadsDir := viperCfg.GetString("modules.media.upload_dir")
	cfgFile := viperCfg.ConfigFileUsed()

	archivePath := *out
	if archivePath == "" {
		archivePath = backup.DefaultArchiveName(time.Now())
	}

	if err := backup.Backup(context.Background(), dbPath, cfgFile, uploadsDir, archivePath); err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("backup written to %s\n", archivePath)
}

// runRestore implements the "studiotv restore" subcommand.
func runRestore(args []string) {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	target := fs.String("target", "./data", "directory to restore into")
	force := fs.Bool("force", false, "overwrite existing files")
	_ = fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: studiotv restore [-target dir] [-force] <archive.tar.gz>")
		os.Exit(2)
	}
	archivePath := fs.Arg(0)

	if err := backup.Restore(context.Background(), archivePath, *target, *force); err != nil {
		fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("restored %s into %s\n", archivePath, *target)
}
