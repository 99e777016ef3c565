package liveness

import "time"

// StatusRecord tracks the reachability of one terminal. IsOnline is nil
// until the first liveness computation settles the state.
type StatusRecord struct {
	TerminalCode       string     `json:"terminal_code"`
	LastSeenAt         string     `json:"last_seen_at"` // RFC 3339; kept raw so a corrupt value degrades instead of erroring
	IsOnline           *bool      `json:"is_online"`
	LastStateChangedAt *time.Time `json:"last_state_changed_at,omitempty"`
	Playing            string     `json:"playing,omitempty"`
	PlayerVersion      string     `json:"player_version,omitempty"`
	IP                 string     `json:"ip,omitempty"`
	AckedConfigVersion int64      `json:"acked_config_version"`
}

// LastSeen parses the stored heartbeat timestamp. A missing or corrupt
// value returns ok=false and is treated as "never seen".
func (s *StatusRecord) LastSeen() (time.Time, bool) {
	if s.LastSeenAt == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.LastSeenAt)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// HeartbeatFields carries the informational payload of a heartbeat.
type HeartbeatFields struct {
	Playing       string `json:"playing,omitempty"`
	PlayerVersion string `json:"player_version,omitempty"`
	IP            string `json:"-"`
}

// AlertEvent is an immutable log entry recorded on an online-to-offline
// transition. The log is bounded; oldest entries are evicted first.
type AlertEvent struct {
	ID           int64     `json:"id"`
	TerminalCode string    `json:"terminal_code"`
	When         time.Time `json:"when"`
	Reason       string    `json:"reason"`
}

// ReasonOffline is currently the only recorded alert reason.
const ReasonOffline = "offline"
