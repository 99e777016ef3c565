package pairing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Session is a short-lived pairing code binding an unregistered device to
// a terminal identity. AttachedTerminalCode is write-once.
type Session struct {
	Code                 string    `json:"code"`
	DeviceID             string    `json:"device_id"`
	CreatedAt            time.Time `json:"created_at"`
	ExpiresAt            time.Time `json:"expires_at"`
	AttachedTerminalCode *string   `json:"attached_terminal_code"`
}

// Store persists pairing sessions.
type Store struct {
	db *sql.DB
	st plugin.Store
}

// NewStore wraps the shared database handle.
func NewStore(st plugin.Store) *Store {
	return &Store{db: st.DB(), st: st}
}

// Purge deletes every session past its expiry. Called before any read or
// write so an expired code can never be observed, claimed, or polled.
func (s *Store) Purge(ctx context.Context, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM pairing_sessions WHERE expires_at <= ?`,
		now.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("purge pairing sessions: %w", err)
	}
	return nil
}

// Insert writes a new session. The code must not collide with a live one;
// the primary key enforces that as a backstop.
func (s *Store) Insert(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pairing_sessions (code, device_id, created_at, expires_at, attached_terminal_code)
		VALUES (?, ?, ?, ?, NULL)`,
		sess.Code, sess.DeviceID,
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.ExpiresAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("insert pairing session: %w", err)
	}
	return nil
}

// Get returns the session for a code, or nil if absent.
func (s *Store) Get(ctx context.Context, code string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, device_id, created_at, expires_at, attached_terminal_code
		FROM pairing_sessions WHERE code = ?`, code)

	var (
		sess     Session
		created  string
		expires  string
		attached sql.NullString
	)
	err := row.Scan(&sess.Code, &sess.DeviceID, &created, &expires, &attached)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pairing session: %w", err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sess.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expires)
	if attached.Valid {
		sess.AttachedTerminalCode = &attached.String
	}
	return &sess, nil
}

// Attach sets the terminal code on an unclaimed session. Returns false
// when the session was already claimed; the WHERE clause makes the
// write-once guarantee hold even under concurrent claims.
func (s *Store) Attach(ctx context.Context, code, terminalCode string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pairing_sessions SET attached_terminal_code = ?
		WHERE code = ? AND attached_terminal_code IS NULL`,
		terminalCode, code)
	if err != nil {
		return false, fmt.Errorf("attach pairing session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Exists reports whether a live session currently holds the code.
func (s *Store) Exists(ctx context.Context, code string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pairing_sessions WHERE code = ?`, code,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check pairing code: %w", err)
	}
	return n > 0, nil
}
