// Package command implements the per-terminal administrator command queue.
// Delivery is pull-based: commands wait as pending until the terminal's
// next poll drains them. The guarantee is at most once with no redelivery;
// a command flipped to sent during a poll the terminal never processed is
// lost. Acceptable for repeatable commands like restart.
package command

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studiorstv10-png/studio-rs-tv/pkg/plugin"
)

// Command statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
)

// ErrInvalidInput marks validation failures on enqueue.
var ErrInvalidInput = errors.New("invalid input")

// Command is one administrator-issued instruction for a terminal.
type Command struct {
	ID           string         `json:"id"`
	TerminalCode string         `json:"terminal_code"`
	Type         string         `json:"type"`
	Params       map[string]any `json:"params,omitempty"`
	Status       string         `json:"status"`
	IssuedAt     time.Time      `json:"issued_at"`
	SentAt       *time.Time     `json:"sent_at,omitempty"`
}

// Store persists the per-terminal command queues.
type Store struct {
	db *sql.DB
	st plugin.Store
}

// NewStore wraps the shared database handle.
func NewStore(st plugin.Store) *Store {
	return &Store{db: st.DB(), st: st}
}

// Enqueue appends a pending command to the terminal's queue. Duplicate
// submissions create duplicate entries; commands are naturally repeatable.
func (s *Store) Enqueue(ctx context.Context, code, cmdType string, params map[string]any) (*Command, error) {
	cmdType = strings.TrimSpace(cmdType)
	if cmdType == "" {
		return nil, fmt.Errorf("%w: command type is required", ErrInvalidInput)
	}

	raw := "{}"
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		raw = string(b)
	}

	cmd := &Command{
		ID:           uuid.NewString(),
		TerminalCode: code,
		Type:         cmdType,
		Params:       params,
		Status:       StatusPending,
		IssuedAt:     time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commands (id, terminal_code, type, params, status, issued_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		cmd.ID, cmd.TerminalCode, cmd.Type, raw, cmd.Status,
		cmd.IssuedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("enqueue command: %w", err)
	}
	return cmd, nil
}

// DrainOnPoll returns every pending command for the terminal and flips
// them to sent in the same transaction, so a command is never handed out
// twice even under concurrent polls.
func (s *Store) DrainOnPoll(ctx context.Context, code string) ([]Command, error) {
	var drained []Command
	now := time.Now().UTC()

	err := s.st.Tx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT id, terminal_code, type, params, issued_at
			FROM commands WHERE terminal_code = ? AND status = ?
			ORDER BY issued_at, id`, code, StatusPending)
		if err != nil {
			return fmt.Errorf("select pending: %w", err)
		}

		drained = nil
		for rows.Next() {
			var (
				cmd    Command
				params string
				issued string
			)
			if err := rows.Scan(&cmd.ID, &cmd.TerminalCode, &cmd.Type, &params, &issued); err != nil {
				rows.Close()
				return fmt.Errorf("scan command: %w", err)
			}
			_ = json.Unmarshal([]byte(params), &cmd.Params)
			cmd.IssuedAt, _ = time.Parse(time.RFC3339Nano, issued)
			cmd.Status = StatusSent
			sent := now
			cmd.SentAt = &sent
			drained = append(drained, cmd)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, cmd := range drained {
			if _, err := tx.ExecContext(ctx, `
				UPDATE commands SET status = ?, sent_at = ? WHERE id = ?`,
				StatusSent, now.Format(time.RFC3339Nano), cmd.ID); err != nil {
				return fmt.Errorf("mark sent %s: %w", cmd.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if drained == nil {
		drained = []Command{}
	}
	return drained, nil
}

// List returns the terminal's commands, newest first, for inspection.
func (s *Store) List(ctx context.Context, code string) ([]Command, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, terminal_code, type, params, status, issued_at, sent_at
		FROM commands WHERE terminal_code = ?
		ORDER BY issued_at DESC, id DESC`, code)
	if err != nil {
		return nil, fmt.Errorf("list commands: %w", err)
	}
	defer rows.Close()

	cmds := []Command{}
	for rows.Next() {
		var (
			cmd    Command
			params string
			issued string
			sent   sql.NullString
		)
		if err := rows.Scan(&cmd.ID, &cmd.TerminalCode, &cmd.Type, &params, &cmd.Status, &issued, &sent); err != nil {
			return nil, fmt.Errorf("scan command: %w", err)
		}
		_ = json.Unmarshal([]byte(params), &cmd.Params)
		cmd.IssuedAt, _ = time.Parse(time.RFC3339Nano, issued)
		if sent.Valid && sent.String != "" {
			if ts, err := time.Parse(time.RFC3339Nano, sent.String); err == nil {
				cmd.SentAt = &ts
			}
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}
