package fleet

import (
	"database/sql"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create terminals and branding tables",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS terminals (
					code               TEXT PRIMARY KEY,
					display_name       TEXT NOT NULL DEFAULT '',
					grp                TEXT NOT NULL DEFAULT '',
					license_expires_at TEXT,
					direct_playlist    TEXT NOT NULL DEFAULT '[]',
					config_version     INTEGER NOT NULL DEFAULT 1,
					created_at         TEXT NOT NULL,
					updated_at         TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_terminals_grp ON terminals(grp);

				CREATE TABLE IF NOT EXISTS branding (
					id         INTEGER PRIMARY KEY CHECK (id = 1),
					doc        TEXT NOT NULL,
					updated_at TEXT NOT NULL
				);
			`)
			return err
		},
	},
}

// Migrations exposes the schema migrations for callers that assemble the
// database outside the module lifecycle, such as composition tests.
func Migrations() []plugin.Migration {
	return migrations
}
