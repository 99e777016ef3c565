package liveness

import (
	"database/sql"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

var migrations = []plugin.Migration{
	{
		Version:     1,
		Description: "create terminal_status and alert_events tables",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS terminal_status (
					terminal_code         TEXT PRIMARY KEY,
					last_seen_at          TEXT NOT NULL DEFAULT '',
					is_online             INTEGER,
					last_state_changed_at TEXT,
					playing               TEXT NOT NULL DEFAULT '',
					player_version        TEXT NOT NULL DEFAULT '',
					ip                    TEXT NOT NULL DEFAULT '',
					acked_config_version  INTEGER NOT NULL DEFAULT 0
				);

				CREATE TABLE IF NOT EXISTS alert_events (
					id            INTEGER PRIMARY KEY AUTOINCREMENT,
					terminal_code TEXT NOT NULL,
					at            TEXT NOT NULL,
					reason        TEXT NOT NULL
				);
				CREATE INDEX IF NOT EXISTS idx_alert_events_code ON alert_events(terminal_code);
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
