package pairing

import (
	"database/sql"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create pairing_sessions table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS pairing_sessions (
					code                   TEXT PRIMARY KEY,
					device_id              TEXT NOT NULL DEFAULT '',
					created_at             TEXT NOT NULL,
					expires_at             TEXT NOT NULL,
					attached_terminal_code TEXT
				);
				CREATE INDEX IF NOT EXISTS idx_pairing_expires ON pairing_sessions(expires_at);
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
