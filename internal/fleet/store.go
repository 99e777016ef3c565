package fleet

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Store errors surfaced to handlers.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("terminal code already registered")
)

// Store persists terminals and the branding document.
type Store struct {
	db *sql.DB
	st plugin.Store
}

// NewStore wraps the shared database handle.
func NewStore(st plugin.Store) *Store {
	return &Store{db: st.DB(), st: st}
}

// CreateTerminal registers a new terminal. Codes are unique across the fleet.
func (s *Store) CreateTerminal(ctx context.Context, t *Terminal) error {
	t.Code = strings.TrimSpace(t.Code)
	if t.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalidInput)
	}
	if t.DirectPlaylist == nil {
		t.DirectPlaylist = []PlaylistItem{}
	}
	playlist, err := json.Marshal(t.DirectPlaylist)
	if err != nil {
		return fmt.Errorf("marshal playlist: %w", err)
	}

	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	t.ConfigVersion = 1

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO terminals (code, display_name, grp, license_expires_at, direct_playlist, config_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Code, t.DisplayName, t.Group, nullableTime(t.LicenseExpiresAt), string(playlist),
		t.ConfigVersion, now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrDuplicate, t.Code)
		}
		return fmt.Errorf("insert terminal: %w", err)
	}
	return nil
}

// GetTerminal returns the terminal with the given code, or nil if absent.
func (s *Store) GetTerminal(ctx context.Context, code string) (*Terminal, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT code, display_name, grp, license_expires_at, direct_playlist, config_version, created_at, updated_at
		FROM terminals WHERE code = ?`, code)
	t, err := scanTerminal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get terminal %s: %w", code, err)
	}
	return t, nil
}

// ListTerminals returns every registered terminal ordered by code.
func (s *Store) ListTerminals(ctx context.Context) ([]*Terminal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, display_name, grp, license_expires_at, direct_playlist, config_version, created_at, updated_at
		FROM terminals ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list terminals: %w", err)
	}
	defer rows.Close()

	var out []*Terminal
	for rows.Next() {
		t, err := scanTerminal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan terminal: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTerminal rewrites mutable metadata for an existing terminal.
// The playlist is left untouched; use SetDirectPlaylist for that.
// Returns false when no terminal with the code exists.
func (s *Store) UpdateTerminal(ctx context.Context, code string, displayName, group string, licenseExpiresAt *time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE terminals SET display_name = ?, grp = ?, license_expires_at = ?, updated_at = ?
		WHERE code = ?`,
		displayName, group, nullableTime(licenseExpiresAt), time.Now().UTC().Format(time.RFC3339Nano), code)
	if err != nil {
		return false, fmt.Errorf("update terminal %s: %w", code, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// SetDirectPlaylist replaces the terminal's own playlist and bumps its
// config version so players pick up the change on their next poll.
func (s *Store) SetDirectPlaylist(ctx context.Context, code string, items []PlaylistItem) (bool, error) {
	if items == nil {
		items = []PlaylistItem{}
	}
	playlist, err := json.Marshal(items)
	if err != nil {
		return false, fmt.Errorf("marshal playlist: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE terminals
		SET direct_playlist = ?, config_version = config_version + 1, updated_at = ?
		WHERE code = ?`,
		string(playlist), time.Now().UTC().Format(time.RFC3339Nano), code)
	if err != nil {
		return false, fmt.Errorf("set playlist for %s: %w", code, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// BumpConfigVersions increments the config version for the given codes in a
// single transaction. Unknown codes are ignored.
func (s *Store) BumpConfigVersions(ctx context.Context, codes []string) error {
	if len(codes) == 0 {
		return nil
	}
	return s.st.Tx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC().Format(time.RFC3339Nano)
		for _, code := range codes {
			if _, err := tx.ExecContext(ctx, `
				UPDATE terminals SET config_version = config_version + 1, updated_at = ?
				WHERE code = ?`, now, code); err != nil {
				return fmt.Errorf("bump config version for %s: %w", code, err)
			}
		}
		return nil
	})
}

// DeleteTerminal removes a terminal. Returns false when it did not exist.
func (s *Store) DeleteTerminal(ctx context.Context, code string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM terminals WHERE code = ?`, code)
	if err != nil {
		return false, fmt.Errorf("delete terminal %s: %w", code, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetBranding returns the fleet branding document, falling back to the
// default when none was saved yet.
func (s *Store) GetBranding(ctx context.Context) (Branding, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM branding WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultBranding(), nil
	}
	if err != nil {
		return Branding{}, fmt.Errorf("get branding: %w", err)
	}
	var b Branding
	if err := json.Unmarshal([]byte(doc), &b); err != nil {
		return Branding{}, fmt.Errorf("decode branding: %w", err)
	}
	return b, nil
}

// SaveBranding replaces the fleet branding document.
func (s *Store) SaveBranding(ctx context.Context, b Branding) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("marshal branding: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO branding (id, doc, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		string(doc), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save branding: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTerminal(row rowScanner) (*Terminal, error) {
	var (
		t        Terminal
		license  sql.NullString
		playlist string
		created  string
		updated  string
	)
	if err := row.Scan(&t.Code, &t.DisplayName, &t.Group, &license, &playlist, &t.ConfigVersion, &created, &updated); err != nil {
		return nil, err
	}
	if license.Valid {
		if ts, err := time.Parse(time.RFC3339Nano, license.String); err == nil {
			t.LicenseExpiresAt = &ts
		}
	}
	if err := json.Unmarshal([]byte(playlist), &t.DirectPlaylist); err != nil {
		t.DirectPlaylist = []PlaylistItem{}
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	t.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
