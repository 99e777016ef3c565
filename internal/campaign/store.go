package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studiorstv10-png/studio-rs-tv/internal/fleet"
	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// ErrInvalidInput marks validation failures on campaign writes.
var ErrInvalidInput = errors.New("invalid input")

// Store persists campaigns and their target index.
type Store struct {
	db *sql.DB
	st plugin.Store
}

// NewStore wraps the shared database handle.
func NewStore(st plugin.Store) *Store {
	return &Store{db: st.DB(), st: st}
}

// Upsert creates or replaces a campaign keyed by its normalized name.
// An existing campaign with the same name keeps its ID and created_at;
// everything else is rewritten and updated_at is refreshed. The campaign
// row and its target index are written in one transaction, so resolution
// reads never observe a half-written campaign.
func (s *Store) Upsert(ctx context.Context, c *Campaign) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("%w: at least one target is required", ErrInvalidInput)
	}

	items, err := json.Marshal(c.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	var schedule sql.NullString
	if c.Schedule != nil {
		raw, err := json.Marshal(c.Schedule)
		if err != nil {
			return fmt.Errorf("marshal schedule: %w", err)
		}
		schedule = sql.NullString{String: string(raw), Valid: true}
	}

	key := NameKey(c.Name)
	now := time.Now().UTC()

	return s.st.Tx(ctx, func(tx *sql.Tx) error {
		var existingID string
		var createdAt string
		err := tx.QueryRowContext(ctx,
			`SELECT id, created_at FROM campaigns WHERE name_key = ?`, key,
		).Scan(&existingID, &createdAt)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			c.ID = uuid.NewString()
			c.CreatedAt = now
		case err != nil:
			return fmt.Errorf("lookup campaign %q: %w", key, err)
		default:
			c.ID = existingID
			c.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		}
		c.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO campaigns (id, name, name_key, items, schedule, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(name_key) DO UPDATE SET
				name = excluded.name,
				items = excluded.items,
				schedule = excluded.schedule,
				updated_at = excluded.updated_at`,
			c.ID, c.Name, key, string(items), schedule,
			c.CreatedAt.Format(time.RFC3339Nano), c.UpdatedAt.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("upsert campaign %q: %w", c.Name, err)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM campaign_targets WHERE campaign_id = ?`, c.ID); err != nil {
			return fmt.Errorf("clear targets: %w", err)
		}
		for _, code := range c.Targets {
			code = strings.TrimSpace(code)
			if code == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO campaign_targets (campaign_id, terminal_code) VALUES (?, ?)`,
				c.ID, code); err != nil {
				return fmt.Errorf("insert target %s: %w", code, err)
			}
		}
		return nil
	})
}

// Get returns a campaign by ID, or nil if absent.
func (s *Store) Get(ctx context.Context, id string) (*Campaign, error) {
	campaigns, err := s.query(ctx, `
		SELECT id, name, items, schedule, created_at, updated_at
		FROM campaigns WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign %s: %w", id, err)
	}
	if len(campaigns) == 0 {
		return nil, nil
	}
	return campaigns[0], nil
}

// List returns every campaign ordered by name.
func (s *Store) List(ctx context.Context) ([]*Campaign, error) {
	return s.query(ctx, `
		SELECT id, name, items, schedule, created_at, updated_at
		FROM campaigns ORDER BY name_key`)
}

// ListTargeting returns campaigns whose target set contains the terminal
// code, using the campaign_targets index rather than scanning every row.
func (s *Store) ListTargeting(ctx context.Context, code string) ([]*Campaign, error) {
	return s.query(ctx, `
		SELECT c.id, c.name, c.items, c.schedule, c.created_at, c.updated_at
		FROM campaigns c
		JOIN campaign_targets t ON t.campaign_id = c.id
		WHERE t.terminal_code = ?
		ORDER BY c.name_key`, code)
}

// Delete removes a campaign and its target index entries. Returns false
// when no campaign with the ID exists.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	var existed bool
	err := s.st.Tx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete campaign %s: %w", id, err)
		}
		n, _ := res.RowsAffected()
		existed = n > 0
		_, err = tx.ExecContext(ctx, `DELETE FROM campaign_targets WHERE campaign_id = ?`, id)
		return err
	})
	return existed, err
}

// query scans the campaign rows first and loads target sets afterwards.
// The store runs on a single connection, so nested queries while a rows
// cursor is open would deadlock.
func (s *Store) query(ctx context.Context, q string, args ...any) ([]*Campaign, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query campaigns: %w", err)
	}

	var out []*Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for _, c := range out {
		targets, err := s.targetsFor(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		c.Targets = targets
	}
	return out, nil
}

func scanCampaign(rows *sql.Rows) (*Campaign, error) {
	var (
		c        Campaign
		items    string
		schedule sql.NullString
		created  string
		updated  string
	)
	if err := rows.Scan(&c.ID, &c.Name, &items, &schedule, &created, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &c.Items); err != nil {
		c.Items = []fleet.PlaylistItem{}
	}
	if schedule.Valid && schedule.String != "" {
		var rule ScheduleRule
		if err := json.Unmarshal([]byte(schedule.String), &rule); err == nil {
			c.Schedule = &rule
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	c.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	return &c, nil
}

func (s *Store) targetsFor(ctx context.Context, campaignID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT terminal_code FROM campaign_targets WHERE campaign_id = ? ORDER BY terminal_code`,
		campaignID)
	if err != nil {
		return nil, fmt.Errorf("load targets: %w", err)
	}
	defer rows.Close()

	targets := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		targets = append(targets, code)
	}
	return targets, rows.Err()
}
