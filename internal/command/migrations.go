package command

import (
	"database/sql"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create commands table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS commands (
					id            TEXT PRIMARY KEY,
					terminal_code TEXT NOT NULL,
					type          TEXT NOT NULL,
					params        TEXT NOT NULL DEFAULT '{}',
					status        TEXT NOT NULL DEFAULT 'pending',
					issued_at     TEXT NOT NULL,
					sent_at       TEXT
				);
				CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(terminal_code, status);
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
