package campaign

import (
	"database/sql"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create campaigns and campaign_targets tables",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS campaigns (
					id         TEXT PRIMARY KEY,
					name       TEXT NOT NULL,
					name_key   TEXT NOT NULL UNIQUE,
					items      TEXT NOT NULL DEFAULT '[]',
					schedule   TEXT,
					created_at TEXT NOT NULL,
					updated_at TEXT NOT NULL
				);

				CREATE TABLE IF NOT EXISTS campaign_targets (
					campaign_id   TEXT NOT NULL,
					terminal_code TEXT NOT NULL,
					PRIMARY KEY (campaign_id, terminal_code)
				);
				CREATE INDEX IF NOT EXISTS idx_campaign_targets_code ON campaign_targets(terminal_code);
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
