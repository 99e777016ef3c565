package liveness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Store persists status records and the bounded alert log.
type Store struct {
	db       *sql.DB
	st       plugin.Store
	alertCap int
}

// NewStore wraps the shared database handle. alertCap bounds the alert
// log; values below 1 fall back to the default of 500.
func NewStore(st plugin.Store, alertCap int) *Store {
	if alertCap < 1 {
		alertCap = 500
	}
	return &Store{db: st.DB(), st: st, alertCap: alertCap}
}

// RecordHeartbeat upserts the terminal's status row: refreshes last_seen_at,
// merges informational fields, and marks the terminal online immediately.
// A terminal is trivially known-alive at the instant it speaks. When the
// previous state was offline or unknown, last_state_changed_at is updated.
func (s *Store) RecordHeartbeat(ctx context.Context, code string, fields HeartbeatFields, now time.Time) (*StatusRecord, error) {
	nowStr := now.UTC().Format(time.RFC3339Nano)

	var rec *StatusRecord
	err := s.st.Tx(ctx, func(tx *sql.Tx) error {
		var prevOnline sql.NullBool
		err := tx.QueryRowContext(ctx,
			`SELECT is_online FROM terminal_status WHERE terminal_code = ?`, code,
		).Scan(&prevOnline)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup status %s: %w", code, err)
		}

		stateChanged := !prevOnline.Valid || !prevOnline.Bool
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO terminal_status
				(terminal_code, last_seen_at, is_online, last_state_changed_at, playing, player_version, ip, acked_config_version)
			VALUES (?, ?, 1, ?, ?, ?, ?, 0)
			ON CONFLICT(terminal_code) DO UPDATE SET
				last_seen_at = excluded.last_seen_at,
				is_online = 1,
				last_state_changed_at = CASE WHEN ? THEN excluded.last_state_changed_at ELSE last_state_changed_at END,
				playing = excluded.playing,
				player_version = excluded.player_version,
				ip = excluded.ip`,
			code, nowStr, nowStr, fields.Playing, fields.PlayerVersion, fields.IP,
			stateChanged); err != nil {
			return fmt.Errorf("upsert status %s: %w", code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	rec, err = s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Get returns the status record for a terminal, or nil if it has never
// sent a heartbeat.
func (s *Store) Get(ctx context.Context, code string) (*StatusRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT terminal_code, last_seen_at, is_online, last_state_changed_at, playing, player_version, ip, acked_config_version
		FROM terminal_status WHERE terminal_code = ?`, code)
	rec, err := scanStatus(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get status %s: %w", code, err)
	}
	return rec, nil
}

// List returns every status record ordered by terminal code.
func (s *Store) List(ctx context.Context) ([]*StatusRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT terminal_code, last_seen_at, is_online, last_state_changed_at, playing, player_version, ip, acked_config_version
		FROM terminal_status ORDER BY terminal_code`)
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	defer rows.Close()

	var out []*StatusRecord
	for rows.Next() {
		rec, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveLiveness persists a computed state flip. Callers invoke this only
// when the state actually changed; unchanged recomputations skip the write.
func (s *Store) SaveLiveness(ctx context.Context, code string, online bool, changedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE terminal_status SET is_online = ?, last_state_changed_at = ?
		WHERE terminal_code = ?`,
		online, changedAt.UTC().Format(time.RFC3339Nano), code)
	if err != nil {
		return fmt.Errorf("save liveness %s: %w", code, err)
	}
	return nil
}

// AckConfig records the config version the terminal reports as applied.
func (s *Store) AckConfig(ctx context.Context, code string, version int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE terminal_status SET acked_config_version = ?
		WHERE terminal_code = ? AND acked_config_version < ?`,
		version, code, version)
	if err != nil {
		return fmt.Errorf("ack config %s: %w", code, err)
	}
	return nil
}

// AppendAlert writes an alert event and trims the log to the configured
// cap in the same transaction, evicting oldest entries first.
func (s *Store) AppendAlert(ctx context.Context, code, reason string, when time.Time) error {
	return s.st.Tx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO alert_events (terminal_code, at, reason) VALUES (?, ?, ?)`,
			code, when.UTC().Format(time.RFC3339Nano), reason); err != nil {
			return fmt.Errorf("append alert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM alert_events WHERE id NOT IN (
				SELECT id FROM alert_events ORDER BY id DESC LIMIT ?
			)`, s.alertCap); err != nil {
			return fmt.Errorf("trim alert log: %w", err)
		}
		return nil
	})
}

// ListAlerts returns the newest alert events, newest first, up to limit.
// A non-positive limit returns the whole retained log.
func (s *Store) ListAlerts(ctx context.Context, limit int) ([]AlertEvent, error) {
	if limit <= 0 || limit > s.alertCap {
		limit = s.alertCap
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, terminal_code, at, reason FROM alert_events
		ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	alerts := []AlertEvent{}
	for rows.Next() {
		var (
			a  AlertEvent
			at string
		)
		if err := rows.Scan(&a.ID, &a.TerminalCode, &at, &a.Reason); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.When, _ = time.Parse(time.RFC3339Nano, at)
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DeleteStatus removes a terminal's status row, used when the terminal
// itself is deleted from the fleet.
func (s *Store) DeleteStatus(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM terminal_status WHERE terminal_code = ?`, code)
	if err != nil {
		return fmt.Errorf("delete status %s: %w", code, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStatus(row rowScanner) (*StatusRecord, error) {
	var (
		rec     StatusRecord
		online  sql.NullBool
		changed sql.NullString
	)
	if err := row.Scan(&rec.TerminalCode, &rec.LastSeenAt, &online, &changed,
		&rec.Playing, &rec.PlayerVersion, &rec.IP, &rec.AckedConfigVersion); err != nil {
		return nil, err
	}
	if online.Valid {
		v := online.Bool
		rec.IsOnline = &v
	}
	if changed.Valid && changed.String != "" {
		if ts, err := time.Parse(time.RFC3339Nano, changed.String); err == nil {
			rec.LastStateChangedAt = &ts
		}
	}
	return &rec, nil
}
