// Package version exposes build version information, populated at link time.
package version

import "fmt"

// Set via -ldflags "-X github.com/studiorstv10-png/studio-rs-tv/internal/version.Version=..."
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a human-readable version line.
func Info() string {
	return fmt.Sprintf("studiotv %s (commit %s, built %s)", Version, Commit, Date)
}

// Map returns the version fields for JSON health responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
